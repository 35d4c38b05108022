package user

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

// Profile carries the fields the mini-app reads from VK Bridge on open.
type Profile struct {
	VKUserID  int64  `json:"vk_user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Sex       int    `json:"sex"`
	BDate     string `json:"bdate"`
}

// UTMParams is the attribution set captured from the launch URL.
type UTMParams struct {
	Source   string `json:"utm_source"`
	Campaign string `json:"utm_campaign"`
	Content  string `json:"utm_content"`
}

// PermissionChecker asks the platform whether the user granted push
// permission to the app.
type PermissionChecker interface {
	IsNotificationsAllowed(ctx context.Context, vkUserID int64) (bool, error)
}

type Servicer interface {
	RegisterOrUpdate(ctx context.Context, profile *Profile, utm *UTMParams, raw json.RawMessage) (*model.AppUser, error)
	SyncNotificationsPermission(ctx context.Context, vkUserID int64) (bool, error)
	EnableNotifications(ctx context.Context, vkUserID int64, enabled bool) error
	Status(ctx context.Context, vkUserID int64) (*model.AppUser, error)
	Stats(ctx context.Context) (*model.UserStats, error)
}

type Service struct {
	repo       repository.UserRepository
	permission PermissionChecker
}

func NewService(repo repository.UserRepository, permission PermissionChecker) *Service {
	return &Service{repo: repo, permission: permission}
}

// RegisterOrUpdate upserts the user by VK id. A first visit creates the
// row with notifications enabled by default and the platform permission
// off; every later visit refreshes the profile, bumps last_seen and the
// visit counter, and keeps first-touch UTM fields unless a non-empty
// differing value arrives.
func (s *Service) RegisterOrUpdate(ctx context.Context, profile *Profile, utm *UTMParams, raw json.RawMessage) (*model.AppUser, error) {
	if profile == nil || profile.VKUserID == 0 {
		return nil, apperrors.BadRequest("vk_user_id is required", nil)
	}

	now := time.Now()
	existing, err := s.repo.GetByVKUserID(ctx, profile.VKUserID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}

		user := &model.AppUser{
			VKUserID:             profile.VKUserID,
			FirstName:            profile.FirstName,
			LastName:             profile.LastName,
			City:                 profile.City,
			Country:              profile.Country,
			Sex:                  profile.Sex,
			BDate:                profile.BDate,
			NotificationsEnabled: true,
			FirstSeen:            now,
			LastSeen:             now,
			TotalVisits:          1,
			Extra:                raw,
		}
		applyUTM(user, utm)

		if err := s.repo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}
		return user, nil
	}

	refreshProfile(existing, profile)
	existing.LastSeen = now
	existing.TotalVisits++
	if raw != nil {
		existing.Extra = raw
	}
	applyUTM(existing, utm)

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return existing, nil
}

// SyncNotificationsPermission queries the platform and mirrors the
// answer into notifications_allowed. A provider fault leaves the stored
// flag untouched and reports not-allowed, matching how the mini-app
// treats an unknown permission state.
func (s *Service) SyncNotificationsPermission(ctx context.Context, vkUserID int64) (bool, error) {
	allowed, err := s.permission.IsNotificationsAllowed(ctx, vkUserID)
	if err != nil {
		log.Warn().Err(err).Int64("vk_user_id", vkUserID).Msg("permission check failed")
		return false, nil
	}

	if err := s.repo.UpdateConsent(ctx, vkUserID, nil, &allowed); err != nil {
		if apperrors.IsNotFound(err) {
			// Permission checks may race registration; nothing to store yet.
			return allowed, nil
		}
		return false, fmt.Errorf("failed to store permission flag: %w", err)
	}
	return allowed, nil
}

func (s *Service) EnableNotifications(ctx context.Context, vkUserID int64, enabled bool) error {
	return s.repo.UpdateConsent(ctx, vkUserID, &enabled, nil)
}

func (s *Service) Status(ctx context.Context, vkUserID int64) (*model.AppUser, error) {
	return s.repo.GetByVKUserID(ctx, vkUserID)
}

func (s *Service) Stats(ctx context.Context) (*model.UserStats, error) {
	return s.repo.Stats(ctx)
}

func refreshProfile(user *model.AppUser, p *Profile) {
	if p.FirstName != "" {
		user.FirstName = p.FirstName
	}
	if p.LastName != "" {
		user.LastName = p.LastName
	}
	if p.City != "" {
		user.City = p.City
	}
	if p.Country != "" {
		user.Country = p.Country
	}
	if p.Sex != 0 {
		user.Sex = p.Sex
	}
	if p.BDate != "" {
		user.BDate = p.BDate
	}
}

func applyUTM(user *model.AppUser, utm *UTMParams) {
	if utm == nil {
		return
	}
	if utm.Source != "" && utm.Source != user.UTMSource {
		user.UTMSource = utm.Source
	}
	if utm.Campaign != "" && utm.Campaign != user.UTMCampaign {
		user.UTMCampaign = utm.Campaign
	}
	if utm.Content != "" && utm.Content != user.UTMContent {
		user.UTMContent = utm.Content
	}
}
