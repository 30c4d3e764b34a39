package hostsim

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/ghodss/yaml"
	"github.com/nplastio/zmkipc/internal/configsvc"
	"github.com/nplastio/zmkipc/internal/ipcobserver"
	"github.com/nplastio/zmkipc/internal/kscanipc"
	"github.com/nplastio/zmkipc/pkg/wire"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeKeymapYAML(t *testing.T, path string, cfg KeymapConfig) {
	t.Helper()
	jsonB, err := json.Marshal(cfg)
	require.NoError(t, err)
	yamlB, err := yaml.JSONToYAML(jsonB)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, yamlB, 0644))
}

func newTestHost(t *testing.T, bindings map[uint32]Binding) (*Host, string, string, *ipcobserver.Broadcaster) {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)

	ingressPath := filepath.Join(dir, "kscan.sock")
	egressPath := filepath.Join(dir, "observer.sock")

	ingress := kscanipc.New(log, ingressPath, kscanipc.WithRows(1), kscanipc.WithColumns(4))
	require.NoError(t, ingress.Start())
	t.Cleanup(func() { ingress.Close() })

	egress := ipcobserver.New(log, egressPath)
	require.NoError(t, egress.Start())
	t.Cleanup(func() { egress.Close() })

	opts := badger.DefaultOptions(filepath.Join(dir, "db"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	history := NewHistory(db, log, 0)

	configSvc := configsvc.New(log)
	go configSvc.Start(context.Background())
	<-configSvc.Ready()

	keymapPath := filepath.Join(dir, "keymap.yml")
	cfg := KeymapConfig{Rows: 1, Columns: 4, Layers: []KeymapLayer{{Name: "default", Bindings: bindings}}}
	writeKeymapYAML(t, keymapPath, cfg)

	host := New(log, ingress, egress, configSvc, keymapPath, history)
	require.NoError(t, host.Start(context.Background()))

	return host, ingressPath, egressPath, egress
}

func waitForLiveClients(t *testing.T, egress *ipcobserver.Broadcaster, n int64) {
	t.Helper()
	require.Eventually(t, func() bool { return egress.LiveClients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHost_PressResolvedKeyEmitsKeyboardReport(t *testing.T) {
	_, ingressPath, egressPath, egress := newTestHost(t, map[uint32]Binding{1: KeyPress(0x04)})

	observer, err := net.Dial("unix", egressPath)
	require.NoError(t, err)
	defer observer.Close()
	waitForLiveClients(t, egress, 1)

	injector, err := net.Dial("unix", ingressPath)
	require.NoError(t, err)
	defer injector.Close()

	pos := uint32(1)
	msg := &wire.ClientMessage{KeyEvent: &wire.KeyEvent{Action: wire.ActionPress, Position: &pos}}
	payload, err := wire.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, wire.FrameSend(injector, payload))

	// First frame observed is the kscan notification, second is the
	// resulting keyboard report.
	observer.SetReadDeadline(time.Now().Add(2 * time.Second))
	ev1, err := wire.FrameRecv(observer, wire.MaxZmkEventSize, wire.UnmarshalZmkEvent)
	require.NoError(t, err)
	require.NotNil(t, ev1.Kscan)
	require.Equal(t, uint32(1), ev1.Kscan.Position)
	require.True(t, ev1.Kscan.Pressed)

	ev2, err := wire.FrameRecv(observer, wire.MaxZmkEventSize, wire.UnmarshalZmkEvent)
	require.NoError(t, err)
	require.NotNil(t, ev2.Keyboard)
	require.Contains(t, ev2.Keyboard.Keys, byte(0x04))
}

func TestHost_PressUnboundPositionSkipsKeyboardReport(t *testing.T) {
	_, ingressPath, egressPath, egress := newTestHost(t, map[uint32]Binding{})

	observer, err := net.Dial("unix", egressPath)
	require.NoError(t, err)
	defer observer.Close()
	waitForLiveClients(t, egress, 1)

	injector, err := net.Dial("unix", ingressPath)
	require.NoError(t, err)
	defer injector.Close()

	pos := uint32(2)
	msg := &wire.ClientMessage{KeyEvent: &wire.KeyEvent{Action: wire.ActionPress, Position: &pos}}
	payload, err := wire.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, wire.FrameSend(injector, payload))

	observer.SetReadDeadline(time.Now().Add(2 * time.Second))
	ev, err := wire.FrameRecv(observer, wire.MaxZmkEventSize, wire.UnmarshalZmkEvent)
	require.NoError(t, err)
	require.NotNil(t, ev.Kscan)

	// No second frame should arrive; reading again should time out.
	observer.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, err = wire.FrameRecv(observer, wire.MaxZmkEventSize, wire.UnmarshalZmkEvent)
	require.Error(t, err)
}

func TestHost_ReleaseRemovesUsageFromReport(t *testing.T) {
	_, ingressPath, egressPath, egress := newTestHost(t, map[uint32]Binding{0: KeyPress(0x04), 1: KeyPress(0x05)})

	observer, err := net.Dial("unix", egressPath)
	require.NoError(t, err)
	defer observer.Close()
	observer.SetReadDeadline(time.Now().Add(2 * time.Second))
	waitForLiveClients(t, egress, 1)

	injector, err := net.Dial("unix", ingressPath)
	require.NoError(t, err)
	defer injector.Close()

	press := func(pos uint32) {
		msg := &wire.ClientMessage{KeyEvent: &wire.KeyEvent{Action: wire.ActionPress, Position: &pos}}
		payload, err := wire.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, wire.FrameSend(injector, payload))
	}
	release := func(pos uint32) {
		msg := &wire.ClientMessage{KeyEvent: &wire.KeyEvent{Action: wire.ActionRelease, Position: &pos}}
		payload, err := wire.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, wire.FrameSend(injector, payload))
	}

	press(0)
	drainZmkEvent(t, observer) // kscan
	ev := drainZmkEvent(t, observer) // keyboard report: {0x04}
	require.ElementsMatch(t, []byte{0x04}, ev.Keyboard.Keys)

	press(1)
	drainZmkEvent(t, observer)
	ev = drainZmkEvent(t, observer)
	require.ElementsMatch(t, []byte{0x04, 0x05}, ev.Keyboard.Keys)

	release(0)
	drainZmkEvent(t, observer)
	ev = drainZmkEvent(t, observer)
	require.ElementsMatch(t, []byte{0x05}, ev.Keyboard.Keys)
}

func drainZmkEvent(t *testing.T, conn net.Conn) *wire.ZmkEvent {
	t.Helper()
	ev, err := wire.FrameRecv(conn, wire.MaxZmkEventSize, wire.UnmarshalZmkEvent)
	require.NoError(t, err)
	return ev
}
