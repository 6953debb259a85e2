package core

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Presence/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testUser(id string) *domain.User {
	return &domain.User{ID: domain.UserID(id), Name: id}
}

func TestRegistry_AdmitAndRemove(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	now := time.Now()

	id := ConnID(uuid.NewString())
	h, err := reg.Admit(id, testUser("alice"), "192.168.1.10:5050", "test-agent", now)
	req.NoError(err)
	req.Equal(id, h.ID)
	req.Equal(now, h.ConnectedAt)
	req.Equal(1, reg.CountFor("alice"))
	req.Equal(1, reg.Len())

	user, ok := reg.Remove(id)
	req.True(ok)
	req.Equal(domain.UserID("alice"), user.ID)
	req.Zero(reg.CountFor("alice"))
	req.Zero(reg.Len())
}

func TestRegistry_DuplicateConnRejected(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	id := ConnID(uuid.NewString())
	_, err := reg.Admit(id, testUser("alice"), "10.0.0.1:1", "", time.Now())
	req.NoError(err)

	_, err = reg.Admit(id, testUser("bob"), "10.0.0.2:2", "", time.Now())
	req.ErrorIs(err, ErrDuplicateConn)
	// The failed admit must not disturb existing state.
	req.Equal(1, reg.Len())
	req.Zero(reg.CountFor("bob"))
}

func TestRegistry_RemoveAbsentIsBenign(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	user, ok := reg.Remove(ConnID(uuid.NewString()))
	req.False(ok)
	req.Nil(user)
}

func TestRegistry_TouchUpdatesLastActive(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	start := time.Now()

	id := ConnID(uuid.NewString())
	_, err := reg.Admit(id, testUser("alice"), "10.0.0.1:1", "", start)
	req.NoError(err)

	later := start.Add(30 * time.Second)
	req.True(reg.Touch(id, later))
	req.Empty(reg.Stale(start.Add(10*time.Second)))

	req.False(reg.Touch(ConnID(uuid.NewString()), later))
}

func TestRegistry_SnapshotFirstSeenOrderDistinct(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	now := time.Now()

	alice := testUser("alice")
	bob := testUser("bob")

	a1 := ConnID(uuid.NewString())
	b1 := ConnID(uuid.NewString())
	a2 := ConnID(uuid.NewString())

	_, err := reg.Admit(a1, alice, "10.0.0.1:1", "", now)
	req.NoError(err)
	_, err = reg.Admit(b1, bob, "10.0.0.2:2", "", now)
	req.NoError(err)
	_, err = reg.Admit(a2, alice, "10.0.0.1:3", "", now)
	req.NoError(err)

	// Two alice connections, one snapshot entry, first-seen order.
	snap := reg.Snapshot()
	req.Len(snap, 2)
	req.Equal(domain.UserID("alice"), snap[0].ID)
	req.Equal(domain.UserID("bob"), snap[1].ID)
	req.Equal(2, reg.CountFor("alice"))

	reg.Remove(a1)
	snap = reg.Snapshot()
	req.Len(snap, 2)
	req.Equal(1, reg.CountFor("alice"))

	reg.Remove(a2)
	snap = reg.Snapshot()
	req.Len(snap, 1)
	req.Equal(domain.UserID("bob"), snap[0].ID)
}

func TestRegistry_StaleFindsIdleConnections(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()
	start := time.Now()

	idle := ConnID(uuid.NewString())
	live := ConnID(uuid.NewString())
	_, err := reg.Admit(idle, testUser("alice"), "10.0.0.1:1", "", start)
	req.NoError(err)
	_, err = reg.Admit(live, testUser("bob"), "10.0.0.2:2", "", start)
	req.NoError(err)

	reg.Touch(live, start.Add(2*time.Minute))

	stale := reg.Stale(start.Add(time.Minute))
	req.Equal([]ConnID{idle}, stale)
}

func TestRegistry_ConcurrentAdmitRemove(t *testing.T) {
	req := require.New(t)
	reg := NewRegistry()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user := testUser("shared")
			for j := 0; j < 50; j++ {
				id := ConnID(fmt.Sprintf("conn-%d-%d", n, j))
				_, err := reg.Admit(id, user, "10.0.0.1:1", "", time.Now())
				if err != nil {
					continue
				}
				reg.Touch(id, time.Now())
				reg.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	req.Zero(reg.Len())
	req.Zero(reg.CountFor("shared"))
	req.Empty(reg.Snapshot())
}
