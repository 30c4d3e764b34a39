package hostsim

import (
	"encoding/json"
	"fmt"

	"github.com/nplastio/zmkipc/pkg/registry"
)

// Behavior is a keymap binding's runtime behavior, named after ZMK's own
// behavior model ("kp", "mo", ...): a stateless creator parses a
// binding's parameters each time its matrix position is pressed, and the
// returned value handles that press and the matching release.
type Behavior interface {
	Press(h *Host, position uint32)
	Release(h *Host, position uint32)
}

// NewBehaviorRegistry returns the registry of behavior creators bound to
// h, used to resolve a keymap binding whenever its position is pressed.
func NewBehaviorRegistry(h *Host) *registry.Registry[Behavior, *Host] {
	r := registry.NewRegistry[Behavior, *Host](h)
	r.Register("kp", newKeyPressBehavior)
	r.Register("mo", newMomentaryLayerBehavior)
	r.Register("trans", newTransparentBehavior)
	return r
}

// keyPressBehavior reports a single HID keyboard usage while held,
// ZMK's &kp.
type keyPressBehavior struct {
	usage uint8
}

func newKeyPressBehavior(config json.RawMessage, _ *Host) (Behavior, error) {
	var usage uint8
	if err := json.Unmarshal(config, &usage); err != nil {
		return nil, fmt.Errorf("kp: decode usage: %w", err)
	}
	return keyPressBehavior{usage: usage}, nil
}

func (b keyPressBehavior) Press(h *Host, position uint32) {
	h.usages.Store(position, b.usage)
	h.commitKeyboardReport()
}

func (b keyPressBehavior) Release(h *Host, position uint32) {
	h.usages.Delete(position)
	h.commitKeyboardReport()
}

// momentaryLayerBehavior activates a layer while held, ZMK's &mo.
type momentaryLayerBehavior struct {
	layer int32
}

func newMomentaryLayerBehavior(config json.RawMessage, _ *Host) (Behavior, error) {
	var layer int32
	if err := json.Unmarshal(config, &layer); err != nil {
		return nil, fmt.Errorf("mo: decode layer: %w", err)
	}
	return momentaryLayerBehavior{layer: layer}, nil
}

func (b momentaryLayerBehavior) Press(h *Host, _ uint32) {
	h.layer.Store(b.layer)
}

func (b momentaryLayerBehavior) Release(h *Host, _ uint32) {
	h.layer.Store(0)
}

// transparentBehavior does nothing, ZMK's &trans: the binding exists to
// document "fall through to the base layer" without emitting a usage.
type transparentBehavior struct{}

func newTransparentBehavior(json.RawMessage, *Host) (Behavior, error) {
	return transparentBehavior{}, nil
}

func (transparentBehavior) Press(*Host, uint32)   {}
func (transparentBehavior) Release(*Host, uint32) {}
