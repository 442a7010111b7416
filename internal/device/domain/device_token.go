package domain

import (
	"fmt"
	"time"
)

// StaleAfter is how long a token is trusted after issuance. Tokens older than
// this are evicted by the daily sweep; the client re-registers on next launch.
const StaleAfter = 60 * 24 * time.Hour

// Platform identifies the kind of installation a token belongs to.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
	PlatformWeb     Platform = "web"
)

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformAndroid, PlatformIOS, PlatformWeb:
		return Platform(s), nil
	case "":
		return PlatformWeb, nil
	default:
		return "", fmt.Errorf("unknown platform: %q", s)
	}
}

// Fingerprint identifies "the same device" across re-registrations. It is
// metadata only, never a uniqueness key for the token itself.
type Fingerprint struct {
	UserAgent string `json:"user_agent"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
}

// DeviceToken is one push-messaging registration for one device/browser
// installation. The token string is globally unique: saving a token that
// already exists under another account reassigns it to the new owner.
type DeviceToken struct {
	ID           string      `json:"id" gorm:"primaryKey"`
	AccountID    string      `json:"account_id" gorm:"index;not null"`
	Token        string      `json:"-" gorm:"uniqueIndex;not null"` // never exposed
	Platform     Platform    `json:"platform" gorm:"not null;default:web"`
	IssuedAt     time.Time   `json:"issued_at"`
	LastActiveAt time.Time   `json:"last_active_at"`
	Fingerprint  Fingerprint `json:"fingerprint" gorm:"embedded;embeddedPrefix:device_"`
}

// Stale reports whether the token has outlived its trust window.
func (t DeviceToken) Stale(now time.Time) bool {
	return now.Sub(t.IssuedAt) > StaleAfter
}
