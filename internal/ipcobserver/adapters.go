package ipcobserver

import (
	"strconv"
	"strings"

	"github.com/nplastio/zmkipc/pkg/wire"
)

// ParseEndpoint parses a host-produced transport label (e.g. "USB",
// "BLE:0", "None") into an Endpoint. Anything not recognized becomes
// TransportNone rather than an error: an adapter never fails a broadcast
// over a malformed label.
func ParseEndpoint(transport string) wire.Endpoint {
	switch {
	case strings.HasPrefix(transport, "USB"):
		return wire.Endpoint{Transport: wire.TransportUSB}
	case strings.HasPrefix(transport, "BLE:"):
		idx, _ := strconv.ParseUint(strings.TrimPrefix(transport, "BLE:"), 10, 32)
		return wire.Endpoint{Transport: wire.TransportBLE, BLEProfileIdx: uint32(idx)}
	default:
		return wire.Endpoint{Transport: wire.TransportNone}
	}
}

// NotifyKscan builds a KscanEvent from a raw matrix transition and
// broadcasts it. source identifies which kscan instance produced the
// transition, mirroring the ingress side's multi-instance addressing.
func (b *Broadcaster) NotifyKscan(source, position uint32, pressed bool, timestamp uint32) {
	b.Broadcast(&wire.ZmkEvent{
		Kscan: &wire.KscanEvent{
			Source:    source,
			Position:  position,
			Pressed:   pressed,
			Timestamp: timestamp,
		},
	})
}

// NotifyKeyboardReport builds a HidKeyboardReport from the current report
// snapshot and broadcasts it. keys is truncated to wire.MaxKeyboardKeys.
func (b *Broadcaster) NotifyKeyboardReport(transport string, modifiers uint8, keys []byte) {
	b.Broadcast(&wire.ZmkEvent{
		Keyboard: &wire.HidKeyboardReport{
			Endpoint:  ParseEndpoint(transport),
			Modifiers: modifiers,
			Keys:      truncate(keys, wire.MaxKeyboardKeys),
		},
	})
}

// NotifyConsumerReport builds a HidConsumerReport from the current report
// snapshot and broadcasts it. keys is truncated to wire.MaxConsumerKeys.
func (b *Broadcaster) NotifyConsumerReport(transport string, keys []byte) {
	b.Broadcast(&wire.ZmkEvent{
		Consumer: &wire.HidConsumerReport{
			Endpoint: ParseEndpoint(transport),
			Keys:     truncate(keys, wire.MaxConsumerKeys),
		},
	})
}

// NotifyMouseReport builds a HidMouseReport from the current report
// snapshot and broadcasts it. Only meaningful when the pointing
// capability is enabled on the caller's side; the wire schema always
// supports the variant.
func (b *Broadcaster) NotifyMouseReport(transport string, buttons uint32, dx, dy, scrollX, scrollY int32) {
	b.Broadcast(&wire.ZmkEvent{
		Mouse: &wire.HidMouseReport{
			Endpoint: ParseEndpoint(transport),
			Buttons:  buttons,
			DX:       dx,
			DY:       dy,
			ScrollX:  scrollX,
			ScrollY:  scrollY,
		},
	})
}

func truncate(b []byte, max int) []byte {
	if len(b) <= max {
		return b
	}
	return b[:max]
}
