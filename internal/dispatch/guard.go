package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// guardTTL outlives the trigger window but expires before the same wall-clock
// window can come around again.
const guardTTL = 50 * time.Minute

// WindowGuard suppresses duplicate sends when the external scheduler fires
// more than once inside the same hour window. It is best-effort: with no
// Redis configured, or Redis down, dispatch proceeds — an accidental
// double-send is the accepted degraded mode, a blocked send is not.
type WindowGuard struct {
	client *redis.Client
	log    *zap.Logger
}

func NewWindowGuard(client *redis.Client, log *zap.Logger) *WindowGuard {
	return &WindowGuard{client: client, log: log}
}

// Acquire claims the (category, hour window) slot. Only the first caller in
// a window gets true.
func (g *WindowGuard) Acquire(ctx context.Context, category Category, now time.Time) bool {
	if g == nil || g.client == nil {
		return true
	}
	key := fmt.Sprintf("dispatch:window:%s:%s", category, now.UTC().Format("2006-01-02T15"))
	acquired, err := g.client.SetNX(ctx, key, "1", guardTTL).Result()
	if err != nil {
		g.log.Warn("window guard unavailable, proceeding without dedup", zap.Error(err))
		return true
	}
	return acquired
}
