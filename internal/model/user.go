package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AppUser is one end-recipient of the mini-app. The VK user id is the
// external identity; it is unique and never changes once registered.
type AppUser struct {
	ID        uuid.UUID `db:"id" json:"id"`
	VKUserID  int64     `db:"vk_user_id" json:"vk_user_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	City      string    `db:"city" json:"city"`
	Country   string    `db:"country" json:"country"`
	Sex       int       `db:"sex" json:"sex"`
	BDate     string    `db:"bdate" json:"bdate"`

	// NotificationsEnabled is the user-level preference, on by default.
	// NotificationsAllowed is the platform-level permission reported by
	// VK and off until the user grants it. Both must be true for the
	// user to be a push recipient.
	NotificationsEnabled bool `db:"notifications_enabled" json:"notifications_enabled"`
	NotificationsAllowed bool `db:"notifications_allowed" json:"notifications_allowed"`

	FirstSeen   time.Time `db:"first_seen" json:"first_seen"`
	LastSeen    time.Time `db:"last_seen" json:"last_seen"`
	TotalVisits int       `db:"total_visits" json:"total_visits"`

	// First-touch attribution, only overwritten by a non-empty
	// differing value.
	UTMSource   string `db:"utm_source" json:"utm_source"`
	UTMCampaign string `db:"utm_campaign" json:"utm_campaign"`
	UTMContent  string `db:"utm_content" json:"utm_content"`

	Extra json.RawMessage `db:"extra" json:"extra,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Consented reports whether both consent flags are set.
func (u *AppUser) Consented() bool {
	return u.NotificationsEnabled && u.NotificationsAllowed
}

// UserFilter narrows user listings. Zero values mean "no constraint".
type UserFilter struct {
	ConsentedOnly     bool
	LastSeenAfter     time.Time
	LastSeenBefore    time.Time
	FirstSeenAfter    time.Time
	CityContains      string
	Sex               int
	UTMSourceContains string
	VKUserIDs         []int64
}

// Matches reports whether a user satisfies the filter. The postgres
// repository compiles the same predicates to SQL; this form backs the
// in-memory fakes used in tests.
func (f *UserFilter) Matches(u *AppUser) bool {
	if f.ConsentedOnly && !u.Consented() {
		return false
	}
	if !f.LastSeenAfter.IsZero() && u.LastSeen.Before(f.LastSeenAfter) {
		return false
	}
	if !f.LastSeenBefore.IsZero() && !u.LastSeen.Before(f.LastSeenBefore) {
		return false
	}
	if !f.FirstSeenAfter.IsZero() && u.FirstSeen.Before(f.FirstSeenAfter) {
		return false
	}
	if f.CityContains != "" && !strings.Contains(strings.ToLower(u.City), strings.ToLower(f.CityContains)) {
		return false
	}
	if f.Sex != 0 && u.Sex != f.Sex {
		return false
	}
	if f.UTMSourceContains != "" && !strings.Contains(strings.ToLower(u.UTMSource), strings.ToLower(f.UTMSourceContains)) {
		return false
	}
	if len(f.VKUserIDs) > 0 {
		found := false
		for _, id := range f.VKUserIDs {
			if id == u.VKUserID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// UserStats is the aggregate reported by the admin stats endpoint.
type UserStats struct {
	TotalUsers     int            `json:"total_users"`
	ConsentedUsers int            `json:"consented_users"`
	TotalVisits    int            `json:"total_visits"`
	BySource       map[string]int `json:"by_source"`
}
