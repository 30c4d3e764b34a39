package hostsim

import "encoding/json"

// KeymapConfig is the user-editable matrix-position-to-behavior binding,
// loaded from YAML via internal/configsvc and live-reloaded on write. It
// stands in for the keymap a real ZMK keymap.overlay would compile to.
type KeymapConfig struct {
	Rows    uint32        `json:"rows"`
	Columns uint32        `json:"columns"`
	Layers  []KeymapLayer `json:"layers"`
}

// KeymapLayer maps linear matrix positions to behavior bindings. A
// position absent from Bindings produces no effect when pressed.
type KeymapLayer struct {
	Name     string             `json:"name"`
	Bindings map[uint32]Binding `json:"bindings"`
}

// Binding names a behavior (ZMK's "kp", "mo", "trans", ...) and carries
// its raw parameter payload, resolved against a Behavior registry each
// time the bound position is pressed.
type Binding struct {
	Behavior string          `json:"behavior"`
	Param    json.RawMessage `json:"param,omitempty"`
}

// KeyPress is a convenience constructor for the common &kp binding.
func KeyPress(usage uint8) Binding {
	param, _ := json.Marshal(usage)
	return Binding{Behavior: "kp", Param: param}
}

// MomentaryLayer is a convenience constructor for the &mo binding.
func MomentaryLayer(layer int32) Binding {
	param, _ := json.Marshal(layer)
	return Binding{Behavior: "mo", Param: param}
}

// DefaultKeymapConfig is used when no keymap file exists yet; Host.Start
// writes it out so the file is always present after first run.
func DefaultKeymapConfig() KeymapConfig {
	return KeymapConfig{
		Rows:    4,
		Columns: 12,
		Layers: []KeymapLayer{
			{
				Name:     "default",
				Bindings: map[uint32]Binding{},
			},
		},
	}
}
