// Package hostsim is a simulated firmware host: it plays the role the
// spec places out of scope (kscan matrix, keymap, HID report state),
// wired against the bridge core's narrow interfaces (kscanipc.Server's
// configure/enable/disable contract and ipcobserver.Broadcaster's
// notify functions) exactly as real firmware would be.
package hostsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/nplastio/zmkipc/internal/configsvc"
	"github.com/nplastio/zmkipc/internal/ipcobserver"
	"github.com/nplastio/zmkipc/internal/kscanipc"
	"github.com/nplastio/zmkipc/pkg/registry"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const maxKeyboardKeys = 6
const maxConsumerKeys = 2

// Host owns the in-memory matrix/report state and bridges the ingress
// server's decoded key events into outgoing HID reports on the egress
// broadcaster.
type Host struct {
	log *zap.Logger

	ingress   *kscanipc.Server
	egress    *ipcobserver.Broadcaster
	configSvc *configsvc.Service
	history   *History

	keymapPath string
	keymap     atomic.Pointer[KeymapConfig]
	behaviors  *registry.Registry[Behavior, *Host]
	layer      atomic.Int32

	usages *xsync.MapOf[uint32, uint8]    // matrix position -> resolved HID usage, while held
	held   *xsync.MapOf[uint32, Behavior] // matrix position -> behavior instance active since press

	reportMu  sync.Mutex
	modifiers uint8
}

// New creates a Host bound to the given ingress server and egress
// broadcaster. Neither is started by New; call Start once both have
// been started by the caller.
func New(log *zap.Logger, ingress *kscanipc.Server, egress *ipcobserver.Broadcaster, configSvc *configsvc.Service, keymapPath string, history *History) *Host {
	h := &Host{
		log:        log,
		ingress:    ingress,
		egress:     egress,
		configSvc:  configSvc,
		history:    history,
		keymapPath: keymapPath,
		usages:     xsync.NewMapOf[uint32, uint8](),
		held:       xsync.NewMapOf[uint32, Behavior](),
	}
	h.behaviors = NewBehaviorRegistry(h)
	return h
}

// Start loads the keymap (registering it for live reload) and registers
// the key-scan callback with the ingress server.
func (h *Host) Start(ctx context.Context) error {
	if _, err := os.Stat(h.keymapPath); errors.Is(err, os.ErrNotExist) {
		def, _ := json.Marshal(DefaultKeymapConfig())
		if err := os.WriteFile(h.keymapPath, def, 0644); err != nil {
			return fmt.Errorf("hostsim: write default keymap: %w", err)
		}
	}
	cfg, err := configsvc.Register(h.configSvc, h.keymapPath, DefaultKeymapConfig(), func(cfg KeymapConfig, err error) {
		if err != nil {
			h.log.Error("keymap reload failed, keeping previous keymap", zap.Error(err))
			return
		}
		h.log.Info("keymap reloaded", zap.Int("layers", len(cfg.Layers)))
		h.keymap.Store(&cfg)
	})
	if err != nil {
		return fmt.Errorf("hostsim: load keymap: %w", err)
	}
	h.keymap.Store(&cfg)

	if err := h.ingress.Configure(h.handleKeyEvent); err != nil {
		return fmt.Errorf("hostsim: configure ingress: %w", err)
	}
	h.ingress.Enable()
	return nil
}

// handleKeyEvent is the kscanipc.Callback registered with the ingress
// server. It mutates only the host's own matrix/report state, which is
// safe to do directly from the reader goroutine — no handoff goroutine
// or extra synchronization is needed beyond the concurrent maps already
// used for the held set.
func (h *Host) handleKeyEvent(row, col uint32, pressed bool) {
	cfg := h.keymap.Load()
	if cfg == nil {
		return
	}
	columns := cfg.Columns
	if columns == 0 {
		columns = 1
	}
	position := row*columns + col

	h.history.Record(Event{
		Kind:      EventKindKscan,
		Position:  position,
		Pressed:   pressed,
		Timestamp: time.Now(),
	})
	h.egress.NotifyKscan(0, position, pressed, uint32(time.Now().UnixMilli()))

	if pressed {
		h.press(cfg, position)
	} else {
		h.release(position)
	}
}

func (h *Host) press(cfg *KeymapConfig, position uint32) {
	layer := int(h.layer.Load())
	if layer < 0 || layer >= len(cfg.Layers) {
		return
	}
	binding, ok := cfg.Layers[layer].Bindings[position]
	if !ok {
		return
	}
	behavior, err := h.behaviors.New(binding.Behavior, binding.Param)
	if err != nil {
		h.log.Warn("hostsim: unresolvable binding", zap.Uint32("position", position), zap.String("behavior", binding.Behavior), zap.Error(err))
		return
	}
	h.held.Store(position, behavior)
	behavior.Press(h, position)
}

func (h *Host) release(position uint32) {
	behavior, ok := h.held.LoadAndDelete(position)
	if !ok {
		return
	}
	behavior.Release(h, position)
}

// commitKeyboardReport recomputes the boot-protocol key array from the
// live held-usage set and broadcasts it. It is always a full snapshot,
// never an incremental edit, so a stale report can never leak a usage
// the matrix no longer holds.
func (h *Host) commitKeyboardReport() {
	h.reportMu.Lock()
	defer h.reportMu.Unlock()

	keys := make([]byte, 0, maxKeyboardKeys)
	h.usages.Range(func(_ uint32, usage uint8) bool {
		keys = append(keys, usage)
		return len(keys) < maxKeyboardKeys
	})
	h.history.Record(Event{Kind: EventKindKeyboardReport, Timestamp: time.Now()})
	h.egress.NotifyKeyboardReport("USB", h.modifiers, keys)
}

// InjectMouseMove reports a synthetic pointing-device delta on the egress
// broadcaster and records it in the history log.
func (h *Host) InjectMouseMove(buttons uint32, dx, dy, scrollX, scrollY int32) {
	h.history.Record(Event{Kind: EventKindMouseReport, Timestamp: time.Now()})
	h.egress.NotifyMouseReport("USB", buttons, dx, dy, scrollX, scrollY)
}

// InjectConsumerUsage reports a momentary consumer-control press (media
// keys and similar), truncated to wire.MaxConsumerKeys by the adapter.
func (h *Host) InjectConsumerUsage(usages ...byte) {
	h.history.Record(Event{Kind: EventKindConsumerReport, Timestamp: time.Now()})
	h.egress.NotifyConsumerReport("USB", usages)
}

// SetLayer switches the active keymap layer used to resolve newly
// pressed positions. Already-held keys are not reevaluated.
func (h *Host) SetLayer(layer int32) {
	h.layer.Store(layer)
}
