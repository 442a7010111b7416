package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fibrodiario-backend/pkg/fcm"
)

// BatchSender is one multicast request to the push provider, for mocking.
type BatchSender interface {
	SendBatch(ctx context.Context, tokens []string, n fcm.Notification) (*fcm.SendReport, error)
}

// Result aggregates one dispatch run over all chunks.
type Result struct {
	SuccessCount    int
	FailureCount    int
	PerTokenOutcome []fcm.TokenOutcome
}

// Dispatcher partitions a token list into provider-bounded chunks and sends
// them sequentially, one atomic request each. Chunk order matches token
// order; chunk N+1 is not started until chunk N's response is observed.
type Dispatcher struct {
	sender  BatchSender
	log     *zap.Logger
	backoff time.Duration // pause after a throttled chunk; 0 disables
}

func NewDispatcher(sender BatchSender, backoff time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, backoff: backoff, log: log}
}

// Dispatch sends every chunk and always reaches the aggregated result, even
// when every chunk fails. A whole-chunk request error counts each of its
// tokens as failed and never aborts the remaining chunks.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, n fcm.Notification) *Result {
	result := &Result{
		PerTokenOutcome: make([]fcm.TokenOutcome, 0, len(tokens)),
	}

	for start := 0; start < len(tokens); start += fcm.MulticastLimit {
		end := min(start+fcm.MulticastLimit, len(tokens))
		chunk := tokens[start:end]

		report, err := d.sender.SendBatch(ctx, chunk, n)
		if err != nil {
			d.log.Warn("chunk send failed, continuing with remaining chunks",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			for _, token := range chunk {
				result.PerTokenOutcome = append(result.PerTokenOutcome, fcm.TokenOutcome{
					Token:  token,
					Reason: fcm.ReasonBatchSendError,
				})
			}
			result.FailureCount += len(chunk)
			continue
		}

		result.SuccessCount += report.SuccessCount
		result.FailureCount += report.FailureCount
		result.PerTokenOutcome = append(result.PerTokenOutcome, report.Outcomes...)

		if d.backoff > 0 && end < len(tokens) && report.Throttled() {
			d.log.Info("provider throttling detected, backing off before next chunk",
				zap.Duration("backoff", d.backoff))
			select {
			case <-time.After(d.backoff):
			case <-ctx.Done():
			}
		}
	}

	return result
}
