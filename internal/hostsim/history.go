package hostsim

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

// EventKind distinguishes the entries recorded into History.
type EventKind string

const (
	EventKindKscan          EventKind = "kscan"
	EventKindKeyboardReport EventKind = "keyboard_report"
	EventKindConsumerReport EventKind = "consumer_report"
	EventKindMouseReport    EventKind = "mouse_report"
)

// Event is one entry in the bounded history log, the data backing the
// CLI's `history` command.
type Event struct {
	Kind      EventKind `json:"kind"`
	Position  uint32    `json:"position,omitempty"`
	Pressed   bool      `json:"pressed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const historyKeyPrefix = "hostsim/history/"
const defaultHistoryLimit = 256

// History persists the last N ingress/egress events to badger, mirroring
// the teacher's device-registry use of badger as a small embedded store
// rather than an in-memory ring buffer that loses state on restart.
type History struct {
	db    *badger.DB
	log   *zap.Logger
	limit int
	seq   uint64
}

// NewHistory opens a history log backed by db, keeping at most limit
// entries (oldest are pruned as new ones are recorded).
func NewHistory(db *badger.DB, log *zap.Logger, limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	h := &History{db: db, log: log, limit: limit}
	h.seq = h.loadSeq()
	return h
}

func (h *History) loadSeq() uint64 {
	var max uint64
	err := h.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(historyKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			seq := binary.BigEndian.Uint64(it.Item().Key()[len(prefix):])
			if seq > max {
				max = seq
			}
		}
		return nil
	})
	if err != nil {
		h.log.Warn("history: failed to scan for last sequence, starting from zero", zap.Error(err))
	}
	return max
}

// Record appends ev to the log and prunes the oldest entry once the
// configured limit is exceeded. Failures are logged, not returned: a
// broken history log must never interrupt the event it is recording.
func (h *History) Record(ev Event) {
	h.seq++
	seq := h.seq
	payload, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("history: failed to marshal event", zap.Error(err))
		return
	}

	err = h.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(historyKey(seq), payload); err != nil {
			return err
		}
		if seq > uint64(h.limit) {
			return txn.Delete(historyKey(seq - uint64(h.limit)))
		}
		return nil
	})
	if err != nil {
		h.log.Error("history: failed to persist event", zap.Error(err))
	}
}

// Recent returns up to n most recently recorded events, oldest first.
func (h *History) Recent(n int) ([]Event, error) {
	var events []Event
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(historyKeyPrefix)
		seekKey := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(events) < n; it.Next() {
			var ev Event
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			})
			if err != nil {
				return fmt.Errorf("decode history entry: %w", err)
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func historyKey(seq uint64) []byte {
	key := make([]byte, len(historyKeyPrefix)+8)
	copy(key, historyKeyPrefix)
	binary.BigEndian.PutUint64(key[len(historyKeyPrefix):], seq)
	return key
}
