// Package pin gates full disclosure of confidential notes behind a per-user
// PIN. Only a salted SHA-256 digest of the PIN is stored.
package pin

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/redactd/internal/store"
)

// DefaultSalt is used when no salt is configured.
const DefaultSalt = "redactd-voice-pin"

// Config configures a Guard.
type Config struct {
	Salt string

	// VerifyBurst is the number of attempts a user may make at once.
	// Negative disables throttling; zero uses 5.
	VerifyBurst int

	// VerifyInterval is the time to regain one attempt (zero uses 10s).
	VerifyInterval time.Duration
}

// DefaultConfig returns the guard defaults.
func DefaultConfig() Config {
	return Config{
		Salt:           DefaultSalt,
		VerifyBurst:    5,
		VerifyInterval: 10 * time.Second,
	}
}

// Guard sets and verifies PINs.
type Guard struct {
	store  store.ProfileStore
	salt   string
	logger *zap.Logger

	burst    int
	interval time.Duration

	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewGuard creates a guard over the profile store.
func NewGuard(st store.ProfileStore, cfg Config, logger *zap.Logger) (*Guard, error) {
	if st == nil {
		return nil, errors.New("profile store is required")
	}
	defaults := DefaultConfig()
	if cfg.Salt == "" {
		cfg.Salt = defaults.Salt
	}
	if cfg.VerifyBurst == 0 {
		cfg.VerifyBurst = defaults.VerifyBurst
	}
	if cfg.VerifyInterval <= 0 {
		cfg.VerifyInterval = defaults.VerifyInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Guard{
		store:       st,
		salt:        cfg.Salt,
		logger:      logger,
		burst:       cfg.VerifyBurst,
		interval:    cfg.VerifyInterval,
		limiters:    make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}, nil
}

// Hash returns base64(SHA-256(pin + salt)).
func Hash(pin, salt string) string {
	sum := sha256.Sum256([]byte(pin + salt))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SetPin stores the user's PIN digest, creating the profile if needed.
// Store failures wrap ErrPersistence.
func (g *Guard) SetPin(ctx context.Context, userID, pin string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if pin == "" {
		return ErrInvalidPIN
	}

	profile, err := g.store.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: load profile: %v", ErrPersistence, err)
	}
	profile.VoicePinHash = Hash(pin, g.salt)
	if err := g.store.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("%w: save profile: %v", ErrPersistence, err)
	}

	g.logger.Info("voice pin set", zap.String("user.id", userID))
	return nil
}

// VerifyPin reports whether pin matches the user's stored PIN. It never
// fails or panics: a missing profile, a missing PIN, a throttled attempt
// and any internal fault all resolve to false. Only mismatches count
// against the per-user attempt limit.
func (g *Guard) VerifyPin(ctx context.Context, userID, pin string) (ok bool) {
	result := resultError
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("pin verification panicked",
				zap.String("user.id", userID),
				zap.Any("panic", r),
			)
			ok = false
			result = resultError
		}
		VerificationsTotal.WithLabelValues(result).Inc()
	}()

	if g.throttled(userID) {
		result = resultThrottled
		g.logger.Warn("pin verification throttled", zap.String("user.id", userID))
		return false
	}

	profile, err := g.store.GetProfile(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		result = resultNoPin
		return false
	}
	if err != nil {
		g.logger.Warn("pin verification failed", zap.String("user.id", userID), zap.Error(err))
		return false
	}
	if !profile.HasPin() {
		result = resultNoPin
		return false
	}

	candidate := Hash(pin, g.salt)
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(profile.VoicePinHash)) != 1 {
		result = resultMismatch
		g.recordFailure(userID)
		return false
	}
	result = resultSuccess
	return true
}

// throttled reports whether the user has no failed attempts left. It does
// not spend an attempt.
func (g *Guard) throttled(userID string) bool {
	if g.burst < 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	l, ok := g.limiters[userID]
	return ok && l.Tokens() < 1
}

// recordFailure spends one attempt for a PIN mismatch. Limiters exist only
// for users with a stored PIN, since only they can mismatch.
func (g *Guard) recordFailure(userID string) {
	if g.burst < 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if now.Sub(g.lastCleanup) > g.refillWindow() {
		g.evictIdle()
		g.lastCleanup = now
	}

	l, ok := g.limiters[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(g.interval), g.burst)
		g.limiters[userID] = l
	}
	l.AllowN(now, 1)
}

// evictIdle drops limiters that have refilled completely. A full limiter
// behaves exactly like a new one, so users still being throttled keep theirs.
// Callers hold g.mu.
func (g *Guard) evictIdle() {
	for id, l := range g.limiters {
		if l.Tokens() >= float64(g.burst) {
			delete(g.limiters, id)
		}
	}
}

func (g *Guard) refillWindow() time.Duration {
	return g.interval * time.Duration(g.burst)
}
