package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestClientMessageRoundTrip_KeyPos(t *testing.T) {
	msg := &ClientMessage{
		KeyEvent: &KeyEvent{
			Action: ActionPress,
			KeyPos: &KeyPosition{Row: 1, Col: 3},
		},
	}
	data, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := UnmarshalClientMessage(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.KeyEvent)
	require.Equal(t, ActionPress, decoded.KeyEvent.Action)
	require.NotNil(t, decoded.KeyEvent.KeyPos)
	require.Equal(t, uint32(1), decoded.KeyEvent.KeyPos.Row)
	require.Equal(t, uint32(3), decoded.KeyEvent.KeyPos.Col)
	require.Nil(t, decoded.KeyEvent.Position)
}

func TestClientMessageRoundTrip_Position(t *testing.T) {
	pos := uint32(25)
	msg := &ClientMessage{
		KeyEvent: &KeyEvent{
			Action:   ActionRelease,
			Position: &pos,
		},
	}
	data, err := Marshal(msg)
	require.NoError(t, err)

	decoded, err := UnmarshalClientMessage(data)
	require.NoError(t, err)
	require.Equal(t, ActionRelease, decoded.KeyEvent.Action)
	require.Nil(t, decoded.KeyEvent.KeyPos)
	require.NotNil(t, decoded.KeyEvent.Position)
	require.Equal(t, uint32(25), *decoded.KeyEvent.Position)
}

func TestZmkEventRoundTrip_Kscan(t *testing.T) {
	ev := &ZmkEvent{
		Kscan: &KscanEvent{Source: 1, Position: 5, Pressed: true, Timestamp: 1234},
	}
	data, err := Marshal(ev)
	require.NoError(t, err)

	decoded, err := UnmarshalZmkEvent(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Kscan)
	require.Equal(t, *ev.Kscan, *decoded.Kscan)
}

func TestZmkEventRoundTrip_Keyboard(t *testing.T) {
	ev := &ZmkEvent{
		Keyboard: &HidKeyboardReport{
			Endpoint:  Endpoint{Transport: TransportUSB},
			Modifiers: 0x02,
			Keys:      []byte{0x04, 0, 0, 0, 0, 0},
		},
	}
	data, err := Marshal(ev)
	require.NoError(t, err)

	decoded, err := UnmarshalZmkEvent(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Keyboard)
	require.Equal(t, TransportUSB, decoded.Keyboard.Endpoint.Transport)
	require.Equal(t, uint8(0x02), decoded.Keyboard.Modifiers)
	require.Equal(t, []byte{0x04, 0, 0, 0, 0, 0}, decoded.Keyboard.Keys)
}

func TestZmkEventRoundTrip_Consumer_BLE(t *testing.T) {
	ev := &ZmkEvent{
		Consumer: &HidConsumerReport{
			Endpoint: Endpoint{Transport: TransportBLE, BLEProfileIdx: 2},
			Keys:     []byte{0x01, 0x02},
		},
	}
	data, err := Marshal(ev)
	require.NoError(t, err)

	decoded, err := UnmarshalZmkEvent(data)
	require.NoError(t, err)
	require.Equal(t, TransportBLE, decoded.Consumer.Endpoint.Transport)
	require.Equal(t, uint32(2), decoded.Consumer.Endpoint.BLEProfileIdx)
}

func TestZmkEventRoundTrip_Mouse(t *testing.T) {
	ev := &ZmkEvent{
		Mouse: &HidMouseReport{
			Endpoint: Endpoint{Transport: TransportUSB},
			Buttons:  1,
			DX:       -5,
			DY:       10,
			ScrollX:  -1,
			ScrollY:  2,
		},
	}
	data, err := Marshal(ev)
	require.NoError(t, err)

	decoded, err := UnmarshalZmkEvent(data)
	require.NoError(t, err)
	require.Equal(t, *ev.Mouse, *decoded.Mouse)
}

func TestEncodeMessage_BufferTooSmall(t *testing.T) {
	msg := &ClientMessage{
		KeyEvent: &KeyEvent{Action: ActionPress, KeyPos: &KeyPosition{Row: 1, Col: 1}},
	}
	buf := make([]byte, 1)
	_, err := EncodeMessage(msg, buf)
	require.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestUnmarshalZmkEvent_UnknownVariantIgnored(t *testing.T) {
	// A well-formed but unrecognized future tag (field 9, bytes) should be
	// skipped rather than rejected, per the additive-union policy.
	data, err := Marshal(&ZmkEvent{Kscan: &KscanEvent{Source: 1}})
	require.NoError(t, err)

	data = protowire.AppendTag(data, 9, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte{0xAA})

	decoded, err := UnmarshalZmkEvent(data)
	require.NoError(t, err)
	require.NotNil(t, decoded.Kscan)
}
