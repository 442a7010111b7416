package domain

import (
	"time"

	devicedomain "fibrodiario-backend/internal/device/domain"
)

// Notification category slugs. They double as the per-category preference
// keys and as the Android notification channel ids.
const (
	CategoryMorningCheckIn     = "morning-check-in"
	CategoryEveningCheckIn     = "evening-check-in"
	CategoryMedicationReminder = "medication-reminder"
	CategoryHealthInsight      = "health-insight"
	CategoryEmergencyAlert     = "emergency-alert"
)

// CategoryPreferences holds one opt-in flag per known category. The shape is
// fixed: a category missing from a client payload defaults to enabled at the
// DTO boundary, it is never silently treated as disabled. No column defaults:
// GORM drops zero-value fields carrying a default tag from INSERT, which would
// flip an explicit false back to true on create.
type CategoryPreferences struct {
	MorningCheckIn     bool `json:"morning_check_in"`
	EveningCheckIn     bool `json:"evening_check_in"`
	MedicationReminder bool `json:"medication_reminder"`
	HealthInsight      bool `json:"health_insight"`
	EmergencyAlert     bool `json:"emergency_alert"`
}

// DefaultPreferences is what a freshly created account opts into.
func DefaultPreferences() CategoryPreferences {
	return CategoryPreferences{
		MorningCheckIn:     true,
		EveningCheckIn:     true,
		MedicationReminder: true,
		HealthInsight:      true,
		EmergencyAlert:     true,
	}
}

// Enabled reports the opt-in flag for a category slug. Unknown slugs are
// disabled.
func (p CategoryPreferences) Enabled(category string) bool {
	switch category {
	case CategoryMorningCheckIn:
		return p.MorningCheckIn
	case CategoryEveningCheckIn:
		return p.EveningCheckIn
	case CategoryMedicationReminder:
		return p.MedicationReminder
	case CategoryHealthInsight:
		return p.HealthInsight
	case CategoryEmergencyAlert:
		return p.EmergencyAlert
	default:
		return false
	}
}

// Account is one registered user of the diary app. The dispatch path only
// reads accounts; mutation happens through the registration and preferences
// flows.
type Account struct {
	ID                   string `json:"id" gorm:"primaryKey"`
	SubscriptionActive   bool   `json:"subscription_active"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	// Timezone stays nil until the client detects it; a nil timezone excludes
	// the account from all zone-bucketed sends without error.
	Timezone *string `json:"timezone"`

	Preferences  CategoryPreferences        `json:"preferences" gorm:"embedded;embeddedPrefix:pref_"`
	DeviceTokens []devicedomain.DeviceToken `json:"-" gorm:"foreignKey:AccountID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
