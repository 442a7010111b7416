package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	accountdomain "fibrodiario-backend/internal/account/domain"
	devicedomain "fibrodiario-backend/internal/device/domain"
)

type fakeAccounts struct {
	ensured []string
	err     error
}

func (f *fakeAccounts) EnsureAccount(_ context.Context, id string) (*accountdomain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ensured = append(f.ensured, id)
	return &accountdomain.Account{ID: id, Preferences: accountdomain.DefaultPreferences()}, nil
}

func (f *fakeAccounts) FindByID(context.Context, string) (*accountdomain.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) UpdateTimezone(context.Context, string, string) error { return nil }

func (f *fakeAccounts) UpdateNotificationsEnabled(context.Context, string, bool) error { return nil }

func (f *fakeAccounts) UpdatePreferences(context.Context, string, accountdomain.CategoryPreferences) error {
	return nil
}

func (f *fakeAccounts) SelectRecipients(context.Context, string, []string) ([]accountdomain.Account, error) {
	return nil, nil
}

// fakeTokens mirrors the store's upsert-by-token-string semantics.
type fakeTokens struct {
	byToken map[string]*devicedomain.DeviceToken

	saveErr   error
	findErr   error
	deleteErr error
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byToken: map[string]*devicedomain.DeviceToken{}}
}

func (f *fakeTokens) Save(_ context.Context, token *devicedomain.DeviceToken) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copied := *token
	f.byToken[token.Token] = &copied
	return nil
}

func (f *fakeTokens) FindByToken(_ context.Context, token string) (*devicedomain.DeviceToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	record, ok := f.byToken[token]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.byToken, token)
	return nil
}

func (f *fakeTokens) DeleteAll(_ context.Context, tokens []string) (int64, error) {
	var n int64
	for _, token := range tokens {
		if _, ok := f.byToken[token]; ok {
			delete(f.byToken, token)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) DeleteIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for token, record := range f.byToken {
		if record.IssuedAt.Before(cutoff) {
			delete(f.byToken, token)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) TouchLastActive(_ context.Context, tokens []string, at time.Time) error {
	for _, token := range tokens {
		if record, ok := f.byToken[token]; ok {
			record.LastActiveAt = at
		}
	}
	return nil
}

func newTestManager(tokens *fakeTokens) (*LifecycleManager, *fakeAccounts, *time.Time) {
	accounts := &fakeAccounts{}
	m := NewLifecycleManager(accounts, tokens, zap.NewNop())
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, accounts, &now
}

func TestRegisterRejectsEmptyToken(t *testing.T) {
	m, _, _ := newTestManager(newFakeTokens())
	err := m.Register(context.Background(), "alice", "", devicedomain.PlatformWeb, devicedomain.Fingerprint{})
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestRegisterCreatesTokenAndAccount(t *testing.T) {
	tokens := newFakeTokens()
	m, accounts, _ := newTestManager(tokens)

	err := m.Register(context.Background(), "alice", "tok-1", devicedomain.PlatformAndroid,
		devicedomain.Fingerprint{Browser: "Chrome", OS: "Android"})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, accounts.ensured)
	record := tokens.byToken["tok-1"]
	require.NotNil(t, record)
	assert.Equal(t, "alice", record.AccountID)
	assert.Equal(t, devicedomain.PlatformAndroid, record.Platform)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "Chrome", record.Fingerprint.Browser)
}

func TestRegisterSameOwnerIsIdempotent(t *testing.T) {
	tokens := newFakeTokens()
	m, _, now := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "tok-1", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))
	first := *tokens.byToken["tok-1"]

	*now = now.Add(48 * time.Hour)
	require.NoError(t, m.Register(ctx, "alice", "tok-1", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))

	require.Len(t, tokens.byToken, 1)
	second := tokens.byToken["tok-1"]
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.IssuedAt, second.IssuedAt, "re-registration must not reset the staleness clock")
	assert.Equal(t, *now, second.LastActiveAt)
}

func TestRegisterReassignsTokenFromOtherAccount(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "shared-device", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))
	require.NoError(t, m.Register(ctx, "bruno", "shared-device", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))

	require.Len(t, tokens.byToken, 1, "a token string never lives under two accounts")
	assert.Equal(t, "bruno", tokens.byToken["shared-device"].AccountID)
}

func TestRefreshRotatesToken(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "old-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))

	result, err := m.Refresh(ctx, "alice", "old-tok", "new-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "new-tok", result.NewToken)

	assert.Nil(t, tokens.byToken["old-tok"])
	assert.NotNil(t, tokens.byToken["new-tok"])
}

func TestRefreshWithoutReplacementKeepsOldToken(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "old-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))

	result, err := m.Refresh(ctx, "alice", "old-tok", "", devicedomain.PlatformWeb, devicedomain.Fingerprint{})
	assert.ErrorIs(t, err, ErrNoReplacementToken)
	assert.False(t, result.Success)
	assert.NotNil(t, tokens.byToken["old-tok"], "the account must never drop to zero registrations")
}

func TestRefreshSaveFailureKeepsOldToken(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "old-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))
	tokens.saveErr = errors.New("disk full")

	_, err := m.Refresh(ctx, "alice", "old-tok", "new-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{})
	require.Error(t, err)
	assert.NotNil(t, tokens.byToken["old-tok"], "old token survives until the replacement is confirmed")
	assert.Nil(t, tokens.byToken["new-tok"])
}

func TestRefreshSameTokenDoesNotDelete(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "tok-1", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))

	result, err := m.Refresh(ctx, "alice", "tok-1", "tok-1", devicedomain.PlatformWeb, devicedomain.Fingerprint{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotNil(t, tokens.byToken["tok-1"])
}

func TestRefreshDeleteFailureStillSucceeds(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "old-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))
	tokens.deleteErr = errors.New("lock timeout")

	result, err := m.Refresh(ctx, "alice", "old-tok", "new-tok", devicedomain.PlatformWeb, devicedomain.Fingerprint{})
	require.NoError(t, err, "the replacement is live, the orphan ages out later")
	assert.True(t, result.Success)
}

func TestUnregisterOnlyForOwner(t *testing.T) {
	tokens := newFakeTokens()
	m, _, _ := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "tok-1", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))

	require.NoError(t, m.Unregister(ctx, "bruno", "tok-1"))
	assert.NotNil(t, tokens.byToken["tok-1"], "another account cannot unregister it")

	require.NoError(t, m.Unregister(ctx, "alice", "tok-1"))
	assert.Nil(t, tokens.byToken["tok-1"])

	require.NoError(t, m.Unregister(ctx, "alice", "never-existed"))
}

func TestEvictStale(t *testing.T) {
	tokens := newFakeTokens()
	m, _, now := newTestManager(tokens)
	ctx := context.Background()

	require.NoError(t, m.Register(ctx, "alice", "fresh", devicedomain.PlatformWeb, devicedomain.Fingerprint{}))
	tokens.byToken["ancient"] = &devicedomain.DeviceToken{
		ID: "x", AccountID: "bruno", Token: "ancient",
		IssuedAt: now.Add(-devicedomain.StaleAfter - time.Hour),
	}

	evicted, err := m.EvictStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), evicted)
	assert.Nil(t, tokens.byToken["ancient"])
	assert.NotNil(t, tokens.byToken["fresh"])

	evicted, err = m.EvictStale(ctx)
	require.NoError(t, err)
	assert.Zero(t, evicted, "rerunning the sweep is a no-op")
}
