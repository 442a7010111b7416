package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	accountdomain "fibrodiario-backend/internal/account/domain"
)

// preferenceColumns maps category slugs to their preference columns. An
// unknown slug is a configuration error, surfaced before any query runs.
var preferenceColumns = map[string]string{
	accountdomain.CategoryMorningCheckIn:     "pref_morning_check_in",
	accountdomain.CategoryEveningCheckIn:     "pref_evening_check_in",
	accountdomain.CategoryMedicationReminder: "pref_medication_reminder",
	accountdomain.CategoryHealthInsight:      "pref_health_insight",
	accountdomain.CategoryEmergencyAlert:     "pref_emergency_alert",
}

// AccountRepository defines the recipient store. SelectRecipients is the
// dispatch path's only read; the rest serves the registration and
// preferences flows.
type AccountRepository interface {
	EnsureAccount(ctx context.Context, id string) (*accountdomain.Account, error)
	FindByID(ctx context.Context, id string) (*accountdomain.Account, error)
	UpdateTimezone(ctx context.Context, id, timezone string) error
	UpdateNotificationsEnabled(ctx context.Context, id string, enabled bool) error
	UpdatePreferences(ctx context.Context, id string, prefs accountdomain.CategoryPreferences) error
	SelectRecipients(ctx context.Context, category string, zones []string) ([]accountdomain.Account, error)
}

type accountRepository struct {
	db       *gorm.DB
	pageSize int
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db, pageSize: 500}
}

// EnsureAccount fetches the account, creating it with default preferences on
// first contact (the diary app owns richer profile data elsewhere).
func (r *accountRepository) EnsureAccount(ctx context.Context, id string) (*accountdomain.Account, error) {
	account := accountdomain.Account{
		ID:                   id,
		NotificationsEnabled: true,
		Preferences:          accountdomain.DefaultPreferences(),
	}
	err := r.db.WithContext(ctx).
		Where(accountdomain.Account{ID: id}).
		Attrs(account).
		FirstOrCreate(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) UpdateTimezone(ctx context.Context, id, timezone string) error {
	return r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update("timezone", timezone).Error
}

// UpdateNotificationsEnabled flips the account-wide master switch; a false
// value excludes the account from every category.
func (r *accountRepository) UpdateNotificationsEnabled(ctx context.Context, id string, enabled bool) error {
	return r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Update("notifications_enabled", enabled).Error
}

func (r *accountRepository) UpdatePreferences(ctx context.Context, id string, prefs accountdomain.CategoryPreferences) error {
	return r.db.WithContext(ctx).
		Model(&accountdomain.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"pref_morning_check_in":    prefs.MorningCheckIn,
			"pref_evening_check_in":    prefs.EveningCheckIn,
			"pref_medication_reminder": prefs.MedicationReminder,
			"pref_health_insight":      prefs.HealthInsight,
			"pref_emergency_alert":     prefs.EmergencyAlert,
		}).Error
}

// SelectRecipients returns every account matching all four predicates, with
// device tokens preloaded. The store enforces result-set limits, so the scan
// pages internally, but callers always get the full logical result.
func (r *accountRepository) SelectRecipients(ctx context.Context, category string, zones []string) ([]accountdomain.Account, error) {
	column, ok := preferenceColumns[category]
	if !ok {
		return nil, fmt.Errorf("unknown notification category: %q", category)
	}
	if len(zones) == 0 {
		return nil, nil
	}

	var accounts []accountdomain.Account
	for offset := 0; ; offset += r.pageSize {
		var page []accountdomain.Account
		err := r.db.WithContext(ctx).
			Preload("DeviceTokens").
			Where("subscription_active = ? AND notifications_enabled = ?", true, true).
			Where(column+" = ?", true).
			Where("timezone IN ?", zones).
			Order("id").
			Limit(r.pageSize).
			Offset(offset).
			Find(&page).Error
		if err != nil {
			return nil, fmt.Errorf("select recipients: %w", err)
		}
		accounts = append(accounts, page...)
		if len(page) < r.pageSize {
			break
		}
	}
	return accounts, nil
}
