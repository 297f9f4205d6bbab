package pin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/redactd/internal/store"
)

func newGuard(t *testing.T, st store.ProfileStore, cfg Config) *Guard {
	t.Helper()
	g, err := NewGuard(st, cfg, nil)
	require.NoError(t, err)
	return g
}

func TestGuard_SetThenVerify(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t, store.NewMemoryStore(), DefaultConfig())

	require.NoError(t, g.SetPin(ctx, "u1", "1234"))
	assert.True(t, g.VerifyPin(ctx, "u1", "1234"))
	assert.False(t, g.VerifyPin(ctx, "u1", "9999"))
}

func TestGuard_VerifyWithoutPin(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	g := newGuard(t, st, DefaultConfig())

	assert.False(t, g.VerifyPin(ctx, "never-seen", "1234"))

	_, err := st.GetOrCreateProfile(ctx, "profile-only")
	require.NoError(t, err)
	assert.False(t, g.VerifyPin(ctx, "profile-only", ""))
	assert.False(t, g.VerifyPin(ctx, "profile-only", "1234"))
}

func TestGuard_StoresDigestOnly(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	g := newGuard(t, st, Config{Salt: "pepper"})

	require.NoError(t, g.SetPin(ctx, "u1", "1234"))
	p, err := st.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Hash("1234", "pepper"), p.VoicePinHash)
	assert.NotContains(t, p.VoicePinHash, "1234")

	// A different salt never verifies.
	other := newGuard(t, st, Config{Salt: "other"})
	assert.False(t, other.VerifyPin(ctx, "u1", "1234"))
}

func TestGuard_SetPinValidation(t *testing.T) {
	g := newGuard(t, store.NewMemoryStore(), DefaultConfig())
	assert.ErrorIs(t, g.SetPin(context.Background(), "u1", ""), ErrInvalidPIN)
	assert.ErrorIs(t, g.SetPin(context.Background(), "", "1234"), ErrEmptyUserID)
}

type brokenStore struct {
	getErr   error
	saveErr  error
	panicGet bool
}

func (b *brokenStore) GetProfile(ctx context.Context, id string) (*store.UserProfile, error) {
	if b.panicGet {
		panic("corrupt row")
	}
	return nil, b.getErr
}

func (b *brokenStore) GetOrCreateProfile(ctx context.Context, id string) (*store.UserProfile, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	return &store.UserProfile{SubjectID: id}, nil
}

func (b *brokenStore) SaveProfile(ctx context.Context, p *store.UserProfile) error {
	return b.saveErr
}

func TestGuard_SetPinPersistenceError(t *testing.T) {
	g := newGuard(t, &brokenStore{saveErr: errors.New("readonly database")}, DefaultConfig())
	err := g.SetPin(context.Background(), "u1", "1234")
	require.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "readonly database")

	g = newGuard(t, &brokenStore{getErr: errors.New("locked")}, DefaultConfig())
	assert.ErrorIs(t, g.SetPin(context.Background(), "u1", "1234"), ErrPersistence)
}

func TestGuard_VerifyNeverFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g, err := NewGuard(&brokenStore{panicGet: true}, DefaultConfig(), zap.New(core))
	require.NoError(t, err)

	before := testutil.ToFloat64(VerificationsTotal.WithLabelValues(resultError))
	assert.NotPanics(t, func() {
		assert.False(t, g.VerifyPin(context.Background(), "u1", "1234"))
	})
	assert.Equal(t, 1, logs.FilterMessage("pin verification panicked").Len())
	assert.Equal(t, before+1, testutil.ToFloat64(VerificationsTotal.WithLabelValues(resultError)))

	g = newGuard(t, &brokenStore{getErr: errors.New("io error")}, DefaultConfig())
	assert.False(t, g.VerifyPin(context.Background(), "u1", "1234"))
}

func TestGuard_Throttle(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t, store.NewMemoryStore(), Config{VerifyBurst: 3})
	require.NoError(t, g.SetPin(ctx, "u1", "1234"))

	for i := 0; i < 3; i++ {
		assert.False(t, g.VerifyPin(ctx, "u1", "0000"))
	}
	assert.False(t, g.VerifyPin(ctx, "u1", "1234"), "correct pin is rejected once throttled")

	// Other users are unaffected.
	require.NoError(t, g.SetPin(ctx, "u2", "1234"))
	assert.True(t, g.VerifyPin(ctx, "u2", "1234"))
}

func TestGuard_RepeatedSuccessNotThrottled(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t, store.NewMemoryStore(), DefaultConfig())
	require.NoError(t, g.SetPin(ctx, "u1", "1234"))

	for i := 0; i < 3*DefaultConfig().VerifyBurst; i++ {
		require.True(t, g.VerifyPin(ctx, "u1", "1234"), "attempt %d", i+1)
	}

	for i := 0; i < DefaultConfig().VerifyBurst; i++ {
		assert.False(t, g.VerifyPin(ctx, "u1", "0000"))
	}
	assert.False(t, g.VerifyPin(ctx, "u1", "1234"), "mismatches still exhaust the limit")
}

func TestGuard_LimitersOnlyForStoredPins(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t, store.NewMemoryStore(), DefaultConfig())

	for _, id := range []string{"a", "b", "c", "d"} {
		assert.False(t, g.VerifyPin(ctx, id, "1234"))
	}
	assert.Empty(t, g.limiters)

	require.NoError(t, g.SetPin(ctx, "u1", "1234"))
	assert.True(t, g.VerifyPin(ctx, "u1", "1234"))
	assert.Empty(t, g.limiters)

	assert.False(t, g.VerifyPin(ctx, "u1", "0000"))
	assert.Len(t, g.limiters, 1)
}

func TestGuard_EvictIdleKeepsThrottledUsers(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t, store.NewMemoryStore(), Config{VerifyBurst: 2, VerifyInterval: time.Millisecond})
	require.NoError(t, g.SetPin(ctx, "idle", "1234"))
	require.NoError(t, g.SetPin(ctx, "attacked", "1234"))

	assert.False(t, g.VerifyPin(ctx, "idle", "0000"))
	require.Eventually(t, func() bool {
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.limiters["idle"].Tokens() >= 2
	}, time.Second, time.Millisecond)

	// A limiter that cannot refill in time stays.
	g.limiters["attacked"] = rate.NewLimiter(rate.Every(time.Hour), 2)
	g.limiters["attacked"].AllowN(time.Now(), 2)

	g.mu.Lock()
	g.evictIdle()
	g.mu.Unlock()

	assert.NotContains(t, g.limiters, "idle")
	assert.Contains(t, g.limiters, "attacked")
	assert.False(t, g.VerifyPin(ctx, "attacked", "1234"))
}

func TestGuard_ThrottleDisabled(t *testing.T) {
	ctx := context.Background()
	g := newGuard(t, store.NewMemoryStore(), Config{VerifyBurst: -1})
	require.NoError(t, g.SetPin(ctx, "u1", "1234"))

	for i := 0; i < 20; i++ {
		g.VerifyPin(ctx, "u1", "0000")
	}
	assert.True(t, g.VerifyPin(ctx, "u1", "1234"))
}

func TestHash(t *testing.T) {
	h := Hash("1234", DefaultSalt)
	assert.Equal(t, "BIT6fKiBOEEJl188RNsqM6wFCgTVVmxeaNB83+uqELI=", h)
	assert.NotEqual(t, h, Hash("1235", DefaultSalt))
}
