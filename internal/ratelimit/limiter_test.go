package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeply/pkg/requestcontext"

	"keeply/internal/platform/logger"
)

func TestLimiter_AdmitsUpToLimitThenBlocks(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), 3, time.Minute, logger.New())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, "1.2.3.4").Allowed)
	}
	result := l.Allow(ctx, "1.2.3.4")
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), 1, time.Minute, logger.New())
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "1.1.1.1").Allowed)
	assert.False(t, l.Allow(ctx, "1.1.1.1").Allowed)
	assert.True(t, l.Allow(ctx, "2.2.2.2").Allowed)
}

func TestMemoryStore_WindowExpiryResetsCount(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	count, _, err := store.Incr(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, _, _ = store.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(2), count)

	now = now.Add(61 * time.Second)
	count, reset, _ := store.Incr(ctx, "k", time.Minute)
	assert.Equal(t, int64(1), count, "expired window starts over")
	assert.Equal(t, time.Minute, reset)
}

type brokenStore struct{}

func (brokenStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func TestLimiter_FailsOpenOnStoreError(t *testing.T) {
	l := NewLimiter(brokenStore{}, 1, time.Minute, logger.New())
	assert.True(t, l.Allow(context.Background(), "1.2.3.4").Allowed)
}

func TestMiddleware_Returns429WithRetryAfter(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), 1, time.Minute, logger.New())
	var reached int
	handler := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req = req.WithContext(requestcontext.WithClientIP(req.Context(), "9.9.9.9"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, do().Code)
	rec := do()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Muitas tentativas")
	assert.Equal(t, 1, reached)
}
