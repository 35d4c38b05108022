package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Offer is one microfinance offer in the catalog.
//
// Requirements, GetMethods and RepayMethods are stored as
// semicolon-separated lists, mirroring how operators maintain them in
// the upload workbook.
type Offer struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	LogoURL          string    `db:"logo_url" json:"logo_url"`
	Link             string    `db:"link" json:"link"`
	SumMin           int       `db:"sum_min" json:"sum_min"`
	SumMax           int       `db:"sum_max" json:"sum_max"`
	TermMin          int       `db:"term_min" json:"term_min"`
	TermMax          int       `db:"term_max" json:"term_max"`
	Rate             float64   `db:"rate" json:"rate"`
	ApprovalChance   int       `db:"approval_chance" json:"approval_chance"`
	PayoutSpeedHours float64   `db:"payout_speed_hours" json:"payout_speed_hours"`
	Requirements     string    `db:"requirements" json:"requirements"`
	GetMethods       string    `db:"get_methods" json:"get_methods"`
	RepayMethods     string    `db:"repay_methods" json:"repay_methods"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SplitList breaks a semicolon-separated field into trimmed items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
