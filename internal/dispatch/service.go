package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	accountdomain "fibrodiario-backend/internal/account/domain"
)

// RecipientSource is the filtered recipient read. Implemented by the account
// repository.
type RecipientSource interface {
	SelectRecipients(ctx context.Context, category string, zones []string) ([]accountdomain.Account, error)
}

// TokenStore is the slice of the token store the dispatch path writes to
// after aggregation: evicting dead tokens and confirming live ones.
type TokenStore interface {
	DeleteAll(ctx context.Context, tokens []string) (int64, error)
	TouchLastActive(ctx context.Context, tokens []string, at time.Time) error
}

// Summary is the outcome of one trigger invocation.
type Summary struct {
	Category      Category `json:"category"`
	TargetHour    int      `json:"target_hour"`
	Zones         []string `json:"zones,omitempty"`
	Accounts      int      `json:"accounts"`
	Tokens        int      `json:"tokens"`
	SuccessCount  int      `json:"success_count"`
	FailureCount  int      `json:"failed_count"`
	EvictedTokens int      `json:"evicted_tokens"`
	Skipped       bool     `json:"skipped"`
}

// Service is the dispatch entry point. It is a pure function of (category,
// targetHour, now) plus the injected store, provider, and guard, so any
// scheduler — cron, Pub/Sub consumer, HTTP trigger — can invoke it.
type Service struct {
	window     *WindowResolver
	recipients RecipientSource
	dispatcher *Dispatcher
	guard      *WindowGuard
	tokens     TokenStore
	log        *zap.Logger
}

func NewService(window *WindowResolver, recipients RecipientSource, dispatcher *Dispatcher, guard *WindowGuard, tokens TokenStore, log *zap.Logger) *Service {
	return &Service{
		window:     window,
		recipients: recipients,
		dispatcher: dispatcher,
		guard:      guard,
		tokens:     tokens,
		log:        log,
	}
}

// Run executes one dispatch: resolve zones, select recipients, send in
// bounded chunks, reconcile failures. Dispatch never mutates the token pool
// until aggregation is complete; a store query error fails the whole run and
// the next scheduled trigger recovers.
func (s *Service) Run(ctx context.Context, category Category, targetHour int, now time.Time) (*Summary, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown notification category: %q", category)
	}
	if targetHour < 0 || targetHour > 23 {
		return nil, fmt.Errorf("target hour %d out of range [0,23]", targetHour)
	}

	summary := &Summary{Category: category, TargetHour: targetHour}

	zones := s.window.Resolve(targetHour, now)
	if len(zones) == 0 {
		s.log.Debug("no zones in window, nothing to dispatch",
			zap.String("category", string(category)),
			zap.Int("target_hour", targetHour),
			zap.Int("minute", now.Minute()))
		summary.Skipped = true
		return summary, nil
	}
	summary.Zones = zones

	accounts, err := s.recipients.SelectRecipients(ctx, string(category), zones)
	if err != nil {
		return nil, fmt.Errorf("recipient query failed: %w", err)
	}
	summary.Accounts = len(accounts)

	// Flatten in account order; chunk order follows from this.
	var tokens []string
	for _, account := range accounts {
		for _, t := range account.DeviceTokens {
			tokens = append(tokens, t.Token)
		}
	}
	summary.Tokens = len(tokens)
	if len(tokens) == 0 {
		s.log.Info("no recipients matched",
			zap.String("category", string(category)),
			zap.Strings("zones", zones))
		return summary, nil
	}

	// Claim the window only once there is something to send, so a failed
	// recipient query never burns the window for the retry trigger.
	if !s.guard.Acquire(ctx, category, now) {
		s.log.Info("window already dispatched, suppressing duplicate send",
			zap.String("category", string(category)))
		summary.Skipped = true
		return summary, nil
	}

	result := s.dispatcher.Dispatch(ctx, tokens, category.Notification())
	summary.SuccessCount = result.SuccessCount
	summary.FailureCount = result.FailureCount

	if delivered := DeliveredTokens(result.PerTokenOutcome); len(delivered) > 0 {
		if err := s.tokens.TouchLastActive(ctx, delivered, now); err != nil {
			s.log.Warn("failed to refresh last-active timestamps", zap.Error(err))
		}
	}

	if candidates := EvictionCandidates(result.PerTokenOutcome); len(candidates) > 0 {
		evicted, err := s.tokens.DeleteAll(ctx, candidates)
		if err != nil {
			// The tokens stay until the next run flags them again.
			s.log.Warn("failed to evict invalid tokens", zap.Error(err),
				zap.Int("candidates", len(candidates)))
		}
		summary.EvictedTokens = int(evicted)
	}

	s.log.Info("dispatch run complete",
		zap.String("category", string(category)),
		zap.Int("target_hour", targetHour),
		zap.Strings("zones", zones),
		zap.Int("accounts", summary.Accounts),
		zap.Int("tokens", summary.Tokens),
		zap.Int("success", summary.SuccessCount),
		zap.Int("failed", summary.FailureCount),
		zap.Int("evicted", summary.EvictedTokens))

	return summary, nil
}
