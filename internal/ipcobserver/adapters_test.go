package ipcobserver

import (
	"testing"

	"github.com/nplastio/zmkipc/pkg/wire"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		want wire.Endpoint
	}{
		{"USB", wire.Endpoint{Transport: wire.TransportUSB}},
		{"USB-HID", wire.Endpoint{Transport: wire.TransportUSB}},
		{"BLE:0", wire.Endpoint{Transport: wire.TransportBLE, BLEProfileIdx: 0}},
		{"BLE:3", wire.Endpoint{Transport: wire.TransportBLE, BLEProfileIdx: 3}},
		{"None", wire.Endpoint{Transport: wire.TransportNone}},
		{"", wire.Endpoint{Transport: wire.TransportNone}},
		{"BLE:not-a-number", wire.Endpoint{Transport: wire.TransportBLE, BLEProfileIdx: 0}},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ParseEndpoint(c.in), "input %q", c.in)
	}
}

func TestTruncate(t *testing.T) {
	require.Equal(t, []byte{1, 2}, truncate([]byte{1, 2}, 4))
	require.Equal(t, []byte{1, 2, 3, 4}, truncate([]byte{1, 2, 3, 4, 5}, 4))
	require.Equal(t, []byte{}, truncate([]byte{}, 4))
}
