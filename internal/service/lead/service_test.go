package lead

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/provider/affiliate"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type fakeUserRepo struct {
	user *model.AppUser
}

func (f *fakeUserRepo) Create(context.Context, *model.AppUser) error { return nil }
func (f *fakeUserRepo) Update(context.Context, *model.AppUser) error { return nil }

func (f *fakeUserRepo) GetByVKUserID(_ context.Context, vkUserID int64) (*model.AppUser, error) {
	if f.user != nil && f.user.VKUserID == vkUserID {
		return f.user, nil
	}
	return nil, apperrors.NotFound("user", nil)
}

func (f *fakeUserRepo) List(context.Context, *model.UserFilter) ([]*model.AppUser, error) {
	return nil, nil
}

func (f *fakeUserRepo) UpdateConsent(context.Context, int64, *bool, *bool) error { return nil }

func (f *fakeUserRepo) Stats(context.Context) (*model.UserStats, error) {
	return &model.UserStats{}, nil
}

type fakeOfferRepo struct {
	offer *model.Offer
}

func (f *fakeOfferRepo) Create(context.Context, *model.Offer) error { return nil }

func (f *fakeOfferRepo) Get(_ context.Context, id uuid.UUID) (*model.Offer, error) {
	if f.offer != nil && f.offer.ID == id {
		return f.offer, nil
	}
	return nil, apperrors.NotFound("offer", nil)
}

func (f *fakeOfferRepo) Update(context.Context, *model.Offer) error    { return nil }
func (f *fakeOfferRepo) Delete(context.Context, uuid.UUID) error       { return nil }
func (f *fakeOfferRepo) List(context.Context) ([]*model.Offer, error)  { return nil, nil }
func (f *fakeOfferRepo) UpsertByName(context.Context, *model.Offer) (bool, error) {
	return false, nil
}

type fakeForwarder struct {
	leads []*affiliate.Lead
	err   error
}

func (f *fakeForwarder) Forward(_ context.Context, lead *affiliate.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.leads = append(f.leads, lead)
	return nil
}

func TestForwardClickAssemblesAttributedLead(t *testing.T) {
	offer := &model.Offer{
		ID:   uuid.New(),
		Name: "Fast Money",
		Link: "https://fast.example.com",
	}
	user := &model.AppUser{
		VKUserID:    12345,
		UTMSource:   "vk_ads",
		UTMCampaign: "summer",
	}
	forwarder := &fakeForwarder{}

	svc := NewService(&fakeUserRepo{user: user}, &fakeOfferRepo{offer: offer}, forwarder)

	err := svc.ForwardClick(context.Background(), 12345, offer.ID, "ad-77")
	require.NoError(t, err)
	require.Len(t, forwarder.leads, 1)

	lead := forwarder.leads[0]
	assert.Equal(t, int64(12345), lead.VKUserID)
	assert.Equal(t, "Fast Money", lead.OfferName)
	assert.Equal(t, "https://fast.example.com", lead.OfferLink)
	assert.Equal(t, "vk_ads", lead.UTMSource)
	assert.Equal(t, "summer", lead.UTMCampaign)
	assert.Equal(t, "ad-77", lead.AdID)
	assert.NotEmpty(t, lead.ClickedAt)
}

func TestForwardClickUnknownUser(t *testing.T) {
	svc := NewService(&fakeUserRepo{}, &fakeOfferRepo{}, &fakeForwarder{})

	err := svc.ForwardClick(context.Background(), 999, uuid.New(), "")
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestForwardClickUnknownOffer(t *testing.T) {
	user := &model.AppUser{VKUserID: 12345}
	svc := NewService(&fakeUserRepo{user: user}, &fakeOfferRepo{}, &fakeForwarder{})

	err := svc.ForwardClick(context.Background(), 12345, uuid.New(), "")
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestForwardClickSurfacesNetworkFault(t *testing.T) {
	offer := &model.Offer{ID: uuid.New(), Name: "Fast Money", Link: "https://fast.example.com"}
	user := &model.AppUser{VKUserID: 12345}
	forwarder := &fakeForwarder{err: errors.New("status 502")}

	svc := NewService(&fakeUserRepo{user: user}, &fakeOfferRepo{offer: offer}, forwarder)

	err := svc.ForwardClick(context.Background(), 12345, offer.ID, "")
	assert.ErrorContains(t, err, "failed to forward lead")
}
