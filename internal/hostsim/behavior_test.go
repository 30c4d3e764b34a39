package hostsim

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger"
	"github.com/nplastio/zmkipc/internal/configsvc"
	"github.com/nplastio/zmkipc/internal/ipcobserver"
	"github.com/nplastio/zmkipc/internal/kscanipc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newBareHost(t *testing.T) *Host {
	t.Helper()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)

	ingress := kscanipc.New(log, filepath.Join(dir, "kscan.sock"))
	egress := ipcobserver.New(log, filepath.Join(dir, "observer.sock"))
	require.NoError(t, egress.Start())
	t.Cleanup(func() { egress.Close() })

	opts := badger.DefaultOptions(filepath.Join(dir, "db"))
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(log, ingress, egress, configsvc.New(log), filepath.Join(dir, "keymap.yml"), NewHistory(db, log, 0))
}

func TestBehaviorRegistry_UnknownBehaviorErrors(t *testing.T) {
	h := newBareHost(t)
	_, err := h.behaviors.New("no-such-behavior", nil)
	require.Error(t, err)
}

func TestKeyPressBehavior_PressThenReleaseClearsUsage(t *testing.T) {
	h := newBareHost(t)
	b, err := h.behaviors.New("kp", mustJSON(t, uint8(0x1A)))
	require.NoError(t, err)

	b.Press(h, 5)
	_, ok := h.usages.Load(5)
	require.True(t, ok)

	b.Release(h, 5)
	_, ok = h.usages.Load(5)
	require.False(t, ok)
}

func TestMomentaryLayerBehavior_PressSetsLayerReleaseResetsToZero(t *testing.T) {
	h := newBareHost(t)
	b, err := h.behaviors.New("mo", mustJSON(t, int32(2)))
	require.NoError(t, err)

	b.Press(h, 0)
	require.Equal(t, int32(2), h.layer.Load())

	b.Release(h, 0)
	require.Equal(t, int32(0), h.layer.Load())
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
