//go:build integration

package repositories

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/BradenHooton/vestibule/internal/testutil"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testutil.SetupTestDatabase(ctx)
	if err != nil {
		panic(err)
	}

	code := m.Run()
	testDB.Close(ctx)
	os.Exit(code)
}

func TestBlacklistRepository_ConcurrentFailuresAreNotLost(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := NewBlacklistRepository(testDB.DB)

	const n = 20
	var wg sync.WaitGroup
	now := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RecordFailure(ctx, "203.0.113.7", now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entry, err := repo.Get(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, n, entry.LoginAttempts)
	assert.True(t, entry.Blacklisted)
}

func TestBlacklistRepository_ConcurrentThresholdFlipsOnce(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := NewBlacklistRepository(testDB.DB)

	now := time.Now()
	for i := 0; i < models.BlacklistThreshold-1; i++ {
		_, err := repo.RecordFailure(ctx, "203.0.113.8", now)
		require.NoError(t, err)
	}

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		flipped int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := repo.RecordFailure(ctx, "203.0.113.8", now)
			if !assert.NoError(t, err) {
				return
			}
			assert.True(t, entry.Blacklisted)
			if entry.Transitioned {
				mu.Lock()
				flipped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, flipped)
}

func TestBlacklistRepository_ConcurrentNewAddressFlipsOnce(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := NewBlacklistRepository(testDB.DB)

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		flipped int
	)
	now := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := repo.RecordFailure(ctx, "203.0.113.9", now)
			if !assert.NoError(t, err) {
				return
			}
			if entry.Transitioned {
				mu.Lock()
				flipped++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, flipped)
}

func TestBlacklistRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := NewBlacklistRepository(testDB.DB)

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	entry, err := repo.RecordFailure(ctx, "198.51.100.1", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.LoginAttempts)
	assert.False(t, entry.Blacklisted)

	entry, err = repo.RecordFailure(ctx, "198.51.100.1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, entry.LoginAttempts)
	assert.True(t, entry.LastEvent.Equal(t0), "below threshold keeps the creation stamp")

	t3 := t0.Add(2 * time.Minute)
	entry, err = repo.RecordFailure(ctx, "198.51.100.1", t3)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.LoginAttempts)
	assert.True(t, entry.Blacklisted)
	assert.True(t, entry.Transitioned)
	assert.True(t, entry.LastEvent.Equal(t3))

	cleared, err := repo.ClearBlacklist(ctx, "198.51.100.1", t3)
	require.NoError(t, err)
	assert.False(t, cleared)

	cleared, err = repo.ClearBlacklist(ctx, "198.51.100.1", t3.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, cleared)

	entry, err = repo.Get(ctx, "198.51.100.1")
	require.NoError(t, err)
	assert.False(t, entry.Blacklisted)
	assert.Equal(t, 3, entry.LoginAttempts)

	deleted, err := repo.DeleteStale(ctx, t3.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, "198.51.100.1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := NewUserRepository(testDB.DB)

	created, err := repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "hash", IsAdmin: true})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.IsAdmin)

	_, err = repo.Create(ctx, &models.User{Username: "alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSessionRepository_SaveLoadExpire(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := NewSessionRepository(testDB.DB)

	require.NoError(t, repo.Save(ctx, "live", []byte(`{"username":"alice"}`), time.Now().Add(time.Hour)))
	require.NoError(t, repo.Save(ctx, "stale", []byte(`{}`), time.Now().Add(-time.Hour)))

	data, err := repo.Load(ctx, "live")
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice"}`, string(data))

	_, err = repo.Load(ctx, "stale")
	assert.ErrorIs(t, err, models.ErrNotFound)

	purged, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.Load(ctx, "live")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
