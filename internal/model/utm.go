package model

import (
	"time"

	"github.com/google/uuid"
)

// UTMVisit is one recorded mini-app open with its attribution params.
type UTMVisit struct {
	ID          uuid.UUID `db:"id" json:"id"`
	VKUserID    int64     `db:"vk_user_id" json:"vk_user_id"`
	UTMSource   string    `db:"utm_source" json:"utm_source"`
	UTMCampaign string    `db:"utm_campaign" json:"utm_campaign"`
	UTMContent  string    `db:"utm_content" json:"utm_content"`
	AdID        string    `db:"ad_id" json:"ad_id,omitempty"`
	IP          string    `db:"ip" json:"ip,omitempty"`
	UserAgent   string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// UTMStat is one row of the visits-by-source aggregation.
type UTMStat struct {
	UTMSource   string `db:"utm_source" json:"utm_source"`
	UTMCampaign string `db:"utm_campaign" json:"utm_campaign"`
	Visits      int    `db:"visits" json:"visits"`
	Users       int    `db:"users" json:"users"`
}
