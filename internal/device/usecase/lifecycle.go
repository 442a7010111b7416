package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountrepo "fibrodiario-backend/internal/account/repository"
	devicedomain "fibrodiario-backend/internal/device/domain"
	devicerepo "fibrodiario-backend/internal/device/repository"
)

var (
	ErrEmptyToken = errors.New("device token must not be empty")

	// ErrNoReplacementToken means the client could not obtain a fresh token.
	// The old token is left untouched so the account never ends up with zero
	// working registrations.
	ErrNoReplacementToken = errors.New("refresh aborted: no replacement token provided")
)

// RefreshResult reports a token rotation.
type RefreshResult struct {
	Success  bool   `json:"success"`
	NewToken string `json:"new_token,omitempty"`
}

// LifecycleManager owns every mutation of the device-token pool: the
// dispatch path only reads it. Registration is idempotent per token string;
// rotation persists the replacement before touching the old token; staleness
// eviction is a pure cutoff filter, safe to rerun.
type LifecycleManager struct {
	accounts accountrepo.AccountRepository
	tokens   devicerepo.TokenRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewLifecycleManager(accounts accountrepo.AccountRepository, tokens devicerepo.TokenRepository, log *zap.Logger) *LifecycleManager {
	return &LifecycleManager{
		accounts: accounts,
		tokens:   tokens,
		log:      log,
		now:      time.Now,
	}
}

// Register adds a token for the account. Registering the same token string
// twice results in exactly one entry; a token previously owned by another
// account is reassigned, never duplicated.
func (m *LifecycleManager) Register(ctx context.Context, accountID, token string, platform devicedomain.Platform, fp devicedomain.Fingerprint) error {
	if token == "" {
		return ErrEmptyToken
	}

	if _, err := m.accounts.EnsureAccount(ctx, accountID); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	now := m.now()
	existing, err := m.tokens.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if existing != nil && existing.AccountID == accountID {
		// Same owner re-registering the same token: refresh activity only,
		// the original issue time keeps counting toward staleness.
		return m.tokens.TouchLastActive(ctx, []string{token}, now)
	}

	record := &devicedomain.DeviceToken{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Token:        token,
		Platform:     platform,
		IssuedAt:     now,
		LastActiveAt: now,
		Fingerprint:  fp,
	}
	if err := m.tokens.Save(ctx, record); err != nil {
		return fmt.Errorf("save device token: %w", err)
	}

	m.log.Info("device token registered",
		zap.String("account_id", accountID),
		zap.String("platform", string(platform)))
	return nil
}

// Refresh rotates a token: the replacement is persisted and confirmed first,
// and only then is the old token deleted. Any failure before that point
// leaves the old token in place.
func (m *LifecycleManager) Refresh(ctx context.Context, accountID, oldToken, newToken string, platform devicedomain.Platform, fp devicedomain.Fingerprint) (*RefreshResult, error) {
	if newToken == "" {
		return &RefreshResult{}, ErrNoReplacementToken
	}

	if err := m.Register(ctx, accountID, newToken, platform, fp); err != nil {
		return &RefreshResult{}, fmt.Errorf("persist replacement token: %w", err)
	}

	// Confirm the replacement actually landed under this account before
	// deleting anything.
	persisted, err := m.tokens.FindByToken(ctx, newToken)
	if err != nil {
		return &RefreshResult{}, fmt.Errorf("confirm replacement token: %w", err)
	}
	if persisted == nil || persisted.AccountID != accountID {
		return &RefreshResult{}, fmt.Errorf("replacement token not confirmed for account %s", accountID)
	}

	if oldToken != "" && oldToken != newToken {
		if err := m.tokens.Delete(ctx, oldToken); err != nil {
			// The replacement is live; the orphaned old token ages out via
			// the staleness sweep.
			m.log.Warn("failed to delete replaced token", zap.Error(err),
				zap.String("account_id", accountID))
		}
	}

	return &RefreshResult{Success: true, NewToken: newToken}, nil
}

// Unregister removes a token, but only for its current owner.
func (m *LifecycleManager) Unregister(ctx context.Context, accountID, token string) error {
	existing, err := m.tokens.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if existing == nil || existing.AccountID != accountID {
		return nil
	}
	return m.tokens.Delete(ctx, token)
}

// EvictStale removes tokens older than the trust window. Idempotent.
func (m *LifecycleManager) EvictStale(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-devicedomain.StaleAfter)
	evicted, err := m.tokens.DeleteIssuedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if evicted > 0 {
		m.log.Info("evicted stale device tokens", zap.Int64("count", evicted))
	}
	return evicted, nil
}
