// Package wire implements the length-prefixed, schema-encoded framing used
// by both IPC endpoints, and the message schema itself. Messages are
// encoded with the protobuf wire format (via the low-level
// encoding/protowire primitives rather than generated descriptor types,
// since the schema is small and its field numbers are pinned here) so
// that the byte layout stays compatible with a conventional protobuf or
// nanopb encoding of the same schema.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers, fixed for binary compatibility. Do not renumber existing
// fields; only append new ones with fresh numbers.
const (
	fieldClientMessageKeyEvent protowire.Number = 1

	fieldKeyEventAction  protowire.Number = 1
	fieldKeyEventKeyPos  protowire.Number = 2
	fieldKeyEventPosition protowire.Number = 3

	fieldKeyPositionRow protowire.Number = 1
	fieldKeyPositionCol protowire.Number = 2

	fieldZmkEventKscan    protowire.Number = 1
	fieldZmkEventKeyboard protowire.Number = 2
	fieldZmkEventConsumer protowire.Number = 3
	fieldZmkEventMouse    protowire.Number = 4

	fieldEndpointTransport     protowire.Number = 1
	fieldEndpointBLEProfileIdx protowire.Number = 2

	fieldKscanEventSource    protowire.Number = 1
	fieldKscanEventPosition  protowire.Number = 2
	fieldKscanEventPressed   protowire.Number = 3
	fieldKscanEventTimestamp protowire.Number = 4

	fieldHidKeyboardReportEndpoint  protowire.Number = 1
	fieldHidKeyboardReportModifiers protowire.Number = 2
	fieldHidKeyboardReportKeys      protowire.Number = 3

	fieldHidConsumerReportEndpoint protowire.Number = 1
	fieldHidConsumerReportKeys     protowire.Number = 2

	fieldHidMouseReportEndpoint  protowire.Number = 1
	fieldHidMouseReportButtons   protowire.Number = 2
	fieldHidMouseReportDX        protowire.Number = 3
	fieldHidMouseReportDY        protowire.Number = 4
	fieldHidMouseReportScrollX   protowire.Number = 5
	fieldHidMouseReportScrollY   protowire.Number = 6
)

// Maxima govern receive-buffer sizing; re-derive by hand whenever a field
// is added to either schema message.
const (
	MaxKeyboardKeys      = 6
	MaxConsumerKeys      = 2
	MaxClientMessageSize = 64
	MaxZmkEventSize      = 128
)

// Action is the KeyEvent's press/release discriminator.
type Action uint8

const (
	ActionPress   Action = 0
	ActionRelease Action = 1
)

// KeyPosition is explicit matrix coordinates.
type KeyPosition struct {
	Row uint32
	Col uint32
}

// KeyEvent's Address is a oneof: exactly one of KeyPos or Position is set.
// Neither set, or both set, are represented (the latter by KeyPos taking
// precedence on encode) but callers constructing a KeyEvent should set
// exactly one.
type KeyEvent struct {
	Action   Action
	KeyPos   *KeyPosition
	Position *uint32
}

// ClientMessage is the ingress wire message: a single-variant union today,
// additive tomorrow.
type ClientMessage struct {
	KeyEvent *KeyEvent
}

// TransportType is the destination transport of a HID report.
type TransportType uint8

const (
	TransportNone TransportType = 0
	TransportUSB  TransportType = 1
	TransportBLE  TransportType = 2
)

// Endpoint describes where a HID report is directed.
type Endpoint struct {
	Transport     TransportType
	BLEProfileIdx uint32
}

// KscanEvent is a raw matrix transition, before keymap processing.
type KscanEvent struct {
	Source    uint32
	Position  uint32
	Pressed   bool
	Timestamp uint32
}

// HidKeyboardReport mirrors a boot/NKRO keyboard report. Keys is truncated
// to MaxKeyboardKeys by adapters before it reaches the wire.
type HidKeyboardReport struct {
	Endpoint  Endpoint
	Modifiers uint8
	Keys      []byte
}

// HidConsumerReport mirrors a consumer-control report.
type HidConsumerReport struct {
	Endpoint Endpoint
	Keys     []byte
}

// HidMouseReport mirrors a relative pointing report. Present only when the
// pointing capability is compiled in on the producing side; the schema
// itself always supports the variant.
type HidMouseReport struct {
	Endpoint Endpoint
	Buttons  uint32
	DX       int32
	DY       int32
	ScrollX  int32
	ScrollY  int32
}

// ZmkEvent is the egress wire message: a tagged union over four report
// kinds. Exactly one field should be non-nil.
type ZmkEvent struct {
	Kscan    *KscanEvent
	Keyboard *HidKeyboardReport
	Consumer *HidConsumerReport
	Mouse    *HidMouseReport
}

// Message is implemented by every top-level schema type.
type Message interface {
	appendTo(b []byte) []byte
}

func (m *ClientMessage) appendTo(b []byte) []byte {
	if m.KeyEvent != nil {
		embedded := m.KeyEvent.appendTo(nil)
		b = protowire.AppendTag(b, fieldClientMessageKeyEvent, protowire.BytesType)
		b = protowire.AppendBytes(b, embedded)
	}
	return b
}

func (e *KeyEvent) appendTo(b []byte) []byte {
	b = protowire.AppendTag(b, fieldKeyEventAction, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Action))
	switch {
	case e.KeyPos != nil:
		embedded := e.KeyPos.appendTo(nil)
		b = protowire.AppendTag(b, fieldKeyEventKeyPos, protowire.BytesType)
		b = protowire.AppendBytes(b, embedded)
	case e.Position != nil:
		b = protowire.AppendTag(b, fieldKeyEventPosition, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(*e.Position))
	}
	return b
}

func (p *KeyPosition) appendTo(b []byte) []byte {
	b = protowire.AppendTag(b, fieldKeyPositionRow, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Row))
	b = protowire.AppendTag(b, fieldKeyPositionCol, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Col))
	return b
}

func (e *Endpoint) appendTo(b []byte) []byte {
	b = protowire.AppendTag(b, fieldEndpointTransport, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Transport))
	b = protowire.AppendTag(b, fieldEndpointBLEProfileIdx, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.BLEProfileIdx))
	return b
}

func (e *KscanEvent) appendTo(b []byte) []byte {
	b = protowire.AppendTag(b, fieldKscanEventSource, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Source))
	b = protowire.AppendTag(b, fieldKscanEventPosition, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Position))
	b = protowire.AppendTag(b, fieldKscanEventPressed, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(e.Pressed))
	b = protowire.AppendTag(b, fieldKscanEventTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Timestamp))
	return b
}

func (r *HidKeyboardReport) appendTo(b []byte) []byte {
	embedded := r.Endpoint.appendTo(nil)
	b = protowire.AppendTag(b, fieldHidKeyboardReportEndpoint, protowire.BytesType)
	b = protowire.AppendBytes(b, embedded)
	b = protowire.AppendTag(b, fieldHidKeyboardReportModifiers, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Modifiers))
	b = protowire.AppendTag(b, fieldHidKeyboardReportKeys, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Keys)
	return b
}

func (r *HidConsumerReport) appendTo(b []byte) []byte {
	embedded := r.Endpoint.appendTo(nil)
	b = protowire.AppendTag(b, fieldHidConsumerReportEndpoint, protowire.BytesType)
	b = protowire.AppendBytes(b, embedded)
	b = protowire.AppendTag(b, fieldHidConsumerReportKeys, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Keys)
	return b
}

func (r *HidMouseReport) appendTo(b []byte) []byte {
	embedded := r.Endpoint.appendTo(nil)
	b = protowire.AppendTag(b, fieldHidMouseReportEndpoint, protowire.BytesType)
	b = protowire.AppendBytes(b, embedded)
	b = protowire.AppendTag(b, fieldHidMouseReportButtons, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Buttons))
	b = protowire.AppendTag(b, fieldHidMouseReportDX, protowire.VarintType)
	b = protowire.AppendVarint(b, int32Varint(r.DX))
	b = protowire.AppendTag(b, fieldHidMouseReportDY, protowire.VarintType)
	b = protowire.AppendVarint(b, int32Varint(r.DY))
	b = protowire.AppendTag(b, fieldHidMouseReportScrollX, protowire.VarintType)
	b = protowire.AppendVarint(b, int32Varint(r.ScrollX))
	b = protowire.AppendTag(b, fieldHidMouseReportScrollY, protowire.VarintType)
	b = protowire.AppendVarint(b, int32Varint(r.ScrollY))
	return b
}

func (e *ZmkEvent) appendTo(b []byte) []byte {
	switch {
	case e.Kscan != nil:
		embedded := e.Kscan.appendTo(nil)
		b = protowire.AppendTag(b, fieldZmkEventKscan, protowire.BytesType)
		b = protowire.AppendBytes(b, embedded)
	case e.Keyboard != nil:
		embedded := e.Keyboard.appendTo(nil)
		b = protowire.AppendTag(b, fieldZmkEventKeyboard, protowire.BytesType)
		b = protowire.AppendBytes(b, embedded)
	case e.Consumer != nil:
		embedded := e.Consumer.appendTo(nil)
		b = protowire.AppendTag(b, fieldZmkEventConsumer, protowire.BytesType)
		b = protowire.AppendBytes(b, embedded)
	case e.Mouse != nil:
		embedded := e.Mouse.appendTo(nil)
		b = protowire.AppendTag(b, fieldZmkEventMouse, protowire.BytesType)
		b = protowire.AppendBytes(b, embedded)
	}
	return b
}

func boolVarint(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}

// int32Varint encodes v the way protobuf's (non-zigzag) int32 fields do:
// sign-extend to int64 and take the bit pattern as a uint64 varint.
func int32Varint(v int32) uint64 {
	return uint64(int64(v))
}

func varintInt32(v uint64) int32 {
	return int32(int64(v))
}

// Marshal encodes m and returns a freshly allocated buffer.
func Marshal(m Message) ([]byte, error) {
	return m.appendTo(nil), nil
}

// UnmarshalClientMessage decodes a ClientMessage, skipping unknown fields
// and unknown union variants (logged by the caller, never here).
func UnmarshalClientMessage(data []byte) (*ClientMessage, error) {
	msg := &ClientMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: client message tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldClientMessageKeyEvent && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: key_event body: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ev, err := unmarshalKeyEvent(body)
			if err != nil {
				return nil, err
			}
			msg.KeyEvent = ev
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return msg, nil
}

func unmarshalKeyEvent(data []byte) (*KeyEvent, error) {
	ev := &KeyEvent{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: key event tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldKeyEventAction && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: action: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ev.Action = Action(v)
		case num == fieldKeyEventKeyPos && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: key_pos: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			kp, err := unmarshalKeyPosition(body)
			if err != nil {
				return nil, err
			}
			ev.KeyPos = kp
		case num == fieldKeyEventPosition && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: position: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			pos := uint32(v)
			ev.Position = &pos
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return ev, nil
}

func unmarshalKeyPosition(data []byte) (*KeyPosition, error) {
	kp := &KeyPosition{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: key position tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldKeyPositionRow && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: row: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			kp.Row = uint32(v)
		case num == fieldKeyPositionCol && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: col: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			kp.Col = uint32(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return kp, nil
}

func unmarshalEndpoint(data []byte) (Endpoint, error) {
	var ep Endpoint
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ep, fmt.Errorf("%w: endpoint tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldEndpointTransport && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return ep, fmt.Errorf("%w: transport: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ep.Transport = TransportType(v)
		case num == fieldEndpointBLEProfileIdx && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return ep, fmt.Errorf("%w: ble_profile_idx: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ep.BLEProfileIdx = uint32(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return ep, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return ep, nil
}

// UnmarshalZmkEvent decodes a ZmkEvent, skipping unknown fields and
// unknown union variants.
func UnmarshalZmkEvent(data []byte) (*ZmkEvent, error) {
	ev := &ZmkEvent{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: zmk event tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		if typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
			continue
		}
		body, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return nil, fmt.Errorf("%w: zmk event body: %v", ErrDecode, protowire.ParseError(m))
		}
		data = data[m:]
		switch num {
		case fieldZmkEventKscan:
			kscan, err := unmarshalKscanEvent(body)
			if err != nil {
				return nil, err
			}
			ev.Kscan = kscan
		case fieldZmkEventKeyboard:
			kb, err := unmarshalHidKeyboardReport(body)
			if err != nil {
				return nil, err
			}
			ev.Keyboard = kb
		case fieldZmkEventConsumer:
			cr, err := unmarshalHidConsumerReport(body)
			if err != nil {
				return nil, err
			}
			ev.Consumer = cr
		case fieldZmkEventMouse:
			mr, err := unmarshalHidMouseReport(body)
			if err != nil {
				return nil, err
			}
			ev.Mouse = mr
		}
		// An unrecognized field number that still carries BytesType is a
		// forward-compatible addition: dropped silently, per schema policy.
	}
	return ev, nil
}

func unmarshalKscanEvent(data []byte) (*KscanEvent, error) {
	e := &KscanEvent{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: kscan event tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldKscanEventSource && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: source: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			e.Source = uint32(v)
		case num == fieldKscanEventPosition && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: position: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			e.Position = uint32(v)
		case num == fieldKscanEventPressed && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: pressed: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			e.Pressed = v != 0
		case num == fieldKscanEventTimestamp && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: timestamp: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			e.Timestamp = uint32(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return e, nil
}

func unmarshalHidKeyboardReport(data []byte) (*HidKeyboardReport, error) {
	r := &HidKeyboardReport{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: keyboard report tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldHidKeyboardReportEndpoint && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: endpoint: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ep, err := unmarshalEndpoint(body)
			if err != nil {
				return nil, err
			}
			r.Endpoint = ep
		case num == fieldHidKeyboardReportModifiers && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: modifiers: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.Modifiers = uint8(v)
		case num == fieldHidKeyboardReportKeys && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: keys: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.Keys = append([]byte(nil), v...)
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return r, nil
}

func unmarshalHidConsumerReport(data []byte) (*HidConsumerReport, error) {
	r := &HidConsumerReport{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: consumer report tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldHidConsumerReportEndpoint && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: endpoint: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ep, err := unmarshalEndpoint(body)
			if err != nil {
				return nil, err
			}
			r.Endpoint = ep
		case num == fieldHidConsumerReportKeys && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: keys: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.Keys = append([]byte(nil), v...)
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return r, nil
}

func unmarshalHidMouseReport(data []byte) (*HidMouseReport, error) {
	r := &HidMouseReport{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: mouse report tag: %v", ErrDecode, protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case num == fieldHidMouseReportEndpoint && typ == protowire.BytesType:
			body, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: endpoint: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			ep, err := unmarshalEndpoint(body)
			if err != nil {
				return nil, err
			}
			r.Endpoint = ep
		case num == fieldHidMouseReportButtons && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: buttons: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.Buttons = uint32(v)
		case num == fieldHidMouseReportDX && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: dx: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.DX = varintInt32(v)
		case num == fieldHidMouseReportDY && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: dy: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.DY = varintInt32(v)
		case num == fieldHidMouseReportScrollX && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: scroll_x: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.ScrollX = varintInt32(v)
		case num == fieldHidMouseReportScrollY && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return nil, fmt.Errorf("%w: scroll_y: %v", ErrDecode, protowire.ParseError(m))
			}
			data = data[m:]
			r.ScrollY = varintInt32(v)
		default:
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return nil, fmt.Errorf("%w: skipping unknown field %d: %v", ErrDecode, num, protowire.ParseError(m))
			}
			data = data[m:]
		}
	}
	return r, nil
}
