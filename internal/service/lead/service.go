package lead

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zaimgo/marketing-api/internal/provider/affiliate"
	"github.com/zaimgo/marketing-api/internal/repository"
)

// Forwarder pushes one lead to the affiliate network.
type Forwarder interface {
	Forward(ctx context.Context, lead *affiliate.Lead) error
}

type Servicer interface {
	ForwardClick(ctx context.Context, vkUserID int64, offerID uuid.UUID, adID string) error
}

// Service assembles an attributed lead from the user directory and the
// offer catalog and hands it to the affiliate network.
type Service struct {
	userRepo  repository.UserRepository
	offerRepo repository.OfferRepository
	forwarder Forwarder
}

func NewService(userRepo repository.UserRepository, offerRepo repository.OfferRepository, forwarder Forwarder) *Service {
	return &Service{userRepo: userRepo, offerRepo: offerRepo, forwarder: forwarder}
}

func (s *Service) ForwardClick(ctx context.Context, vkUserID int64, offerID uuid.UUID, adID string) error {
	user, err := s.userRepo.GetByVKUserID(ctx, vkUserID)
	if err != nil {
		return err
	}
	offer, err := s.offerRepo.Get(ctx, offerID)
	if err != nil {
		return err
	}

	payload := &affiliate.Lead{
		VKUserID:    user.VKUserID,
		OfferName:   offer.Name,
		OfferLink:   offer.Link,
		UTMSource:   user.UTMSource,
		UTMCampaign: user.UTMCampaign,
		UTMContent:  user.UTMContent,
		AdID:        adID,
		ClickedAt:   time.Now().Format(time.RFC3339),
	}

	if err := s.forwarder.Forward(ctx, payload); err != nil {
		return fmt.Errorf("failed to forward lead: %w", err)
	}

	log.Info().
		Int64("vk_user_id", vkUserID).
		Str("offer", offer.Name).
		Msg("lead forwarded to affiliate network")
	return nil
}
