// Package storage persists the presence audit trail: one record per
// connect/disconnect, append-only, queryable newest-first.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dkeye/Presence/internal/core"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "presence:event:"

// AuditLog writes audit records to BadgerDB. Record never blocks: entries
// go through a buffered channel to a single writer goroutine, and are
// dropped with a warning if the buffer is full. Losing an audit row must
// never stall the hub's dispatch.
type AuditLog struct {
	db      *badger.DB
	records chan core.AuditRecord
	done    chan struct{}
}

// Open opens the audit log at path. An empty path opens an in-memory
// store, used by tests.
func Open(path string) (*AuditLog, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l := &AuditLog{
		db:      db,
		records: make(chan core.AuditRecord, 256),
		done:    make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Record implements core.AuditSink.
func (l *AuditLog) Record(rec core.AuditRecord) {
	select {
	case l.records <- rec:
	default:
		log.Warn().Str("module", "storage.audit").Str("conn", string(rec.ConnID)).Msg("audit buffer full, record dropped")
	}
}

func (l *AuditLog) run() {
	defer close(l.done)
	for rec := range l.records {
		if err := l.write(rec); err != nil {
			log.Error().Err(err).Str("module", "storage.audit").Msg("audit write failed")
		}
	}
}

func (l *AuditLog) write(rec core.AuditRecord) error {
	// Zero-padded nanos keep keys in chronological order.
	key := fmt.Sprintf("%s%020d:%s", keyPrefix, rec.At, rec.ConnID)
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Recent returns up to limit records, newest first.
func (l *AuditLog) Recent(limit int) ([]core.AuditRecord, error) {
	var out []core.AuditRecord
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchSize = limit
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var rec core.AuditRecord
				if err := json.Unmarshal(v, &rec); err != nil {
					return err
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Close stops the writer and closes the database. Call after the hub has
// drained so in-flight records land.
func (l *AuditLog) Close() error {
	close(l.records)
	<-l.done
	return l.db.Close()
}
