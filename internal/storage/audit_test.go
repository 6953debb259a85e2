package storage

import (
	"testing"
	"time"

	"github.com/dkeye/Presence/internal/core"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_RecordAndRecent(t *testing.T) {
	req := require.New(t)
	log, err := Open("")
	req.NoError(err)
	defer log.Close()

	log.Record(core.AuditRecord{ConnID: "c1", UserID: "alice", Event: "connect", At: 100})
	log.Record(core.AuditRecord{ConnID: "c2", UserID: "bob", Event: "connect", At: 200})
	log.Record(core.AuditRecord{ConnID: "c1", UserID: "alice", Event: "disconnect", At: 300})

	// Record is async; wait for the writer to land all three.
	req.Eventually(func() bool {
		recs, err := log.Recent(10)
		return err == nil && len(recs) == 3
	}, time.Second, 5*time.Millisecond)

	recs, err := log.Recent(10)
	req.NoError(err)
	// Newest first.
	req.Equal("disconnect", recs[0].Event)
	req.Equal(core.ConnID("c2"), recs[1].ConnID)
	req.Equal(core.ConnID("c1"), recs[2].ConnID)
}

func TestAuditLog_RecentHonorsLimit(t *testing.T) {
	req := require.New(t)
	log, err := Open("")
	req.NoError(err)
	defer log.Close()

	for i := 0; i < 10; i++ {
		log.Record(core.AuditRecord{ConnID: "c", UserID: "alice", Event: "connect", At: int64(i + 1)})
	}
	req.Eventually(func() bool {
		recs, err := log.Recent(100)
		return err == nil && len(recs) == 10
	}, time.Second, 5*time.Millisecond)

	recs, err := log.Recent(3)
	req.NoError(err)
	req.Len(recs, 3)
	req.Equal(int64(10), recs[0].At)
}

func TestAuditLog_CloseFlushesPending(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	log, err := Open(dir)
	req.NoError(err)
	log.Record(core.AuditRecord{ConnID: "c1", UserID: "alice", Event: "connect", At: 100})
	req.NoError(log.Close())

	reopened, err := Open(dir)
	req.NoError(err)
	defer reopened.Close()

	recs, err := reopened.Recent(10)
	req.NoError(err)
	req.Len(recs, 1)
	req.Equal(core.ConnID("c1"), recs[0].ConnID)
}
