package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestGuard(t *testing.T) (*WindowGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWindowGuard(client, zap.NewNop()), mr
}

func TestWindowGuardFirstCallerWins(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	now := time.Date(2025, time.January, 15, 11, 5, 0, 0, time.UTC)

	assert.True(t, guard.Acquire(ctx, CategoryMorningCheckIn, now))
	assert.False(t, guard.Acquire(ctx, CategoryMorningCheckIn, now))
	assert.False(t, guard.Acquire(ctx, CategoryMorningCheckIn, now.Add(10*time.Minute)),
		"same hour window, still held")
}

func TestWindowGuardScopesByCategoryAndHour(t *testing.T) {
	guard, _ := newTestGuard(t)
	ctx := context.Background()
	now := time.Date(2025, time.January, 15, 11, 5, 0, 0, time.UTC)

	assert.True(t, guard.Acquire(ctx, CategoryMorningCheckIn, now))
	assert.True(t, guard.Acquire(ctx, CategoryMedicationReminder, now),
		"other categories share the hour freely")
	assert.True(t, guard.Acquire(ctx, CategoryMorningCheckIn, now.Add(time.Hour)),
		"next hour is a fresh window")
}

func TestWindowGuardExpires(t *testing.T) {
	guard, mr := newTestGuard(t)
	ctx := context.Background()
	now := time.Date(2025, time.January, 15, 11, 5, 0, 0, time.UTC)

	assert.True(t, guard.Acquire(ctx, CategoryMorningCheckIn, now))
	mr.FastForward(51 * time.Minute)
	assert.True(t, guard.Acquire(ctx, CategoryMorningCheckIn, now),
		"the slot frees itself before the same wall-clock window recurs")
}

func TestWindowGuardDegradesOpen(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	guard, mr := newTestGuard(t)
	mr.Close()
	assert.True(t, guard.Acquire(ctx, CategoryMorningCheckIn, now),
		"redis down must never block a send")

	assert.True(t, NewWindowGuard(nil, zap.NewNop()).Acquire(ctx, CategoryMorningCheckIn, now))

	var nilGuard *WindowGuard
	assert.True(t, nilGuard.Acquire(ctx, CategoryMorningCheckIn, now))
}
