package user

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaimgo/marketing-api/internal/model"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type fakeUserRepo struct {
	users map[int64]*model.AppUser
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.AppUser)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.AppUser) error {
	f.users[user.VKUserID] = user
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.AppUser) error {
	if _, ok := f.users[user.VKUserID]; !ok {
		return apperrors.NotFound("user", nil)
	}
	f.users[user.VKUserID] = user
	return nil
}

func (f *fakeUserRepo) GetByVKUserID(_ context.Context, vkUserID int64) (*model.AppUser, error) {
	u, ok := f.users[vkUserID]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (f *fakeUserRepo) List(_ context.Context, filter *model.UserFilter) ([]*model.AppUser, error) {
	var out []*model.AppUser
	for _, u := range f.users {
		if filter == nil || filter.Matches(u) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateConsent(_ context.Context, vkUserID int64, enabled, allowed *bool) error {
	u, ok := f.users[vkUserID]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	if enabled != nil {
		u.NotificationsEnabled = *enabled
	}
	if allowed != nil {
		u.NotificationsAllowed = *allowed
	}
	return nil
}

func (f *fakeUserRepo) Stats(context.Context) (*model.UserStats, error) {
	stats := &model.UserStats{BySource: make(map[string]int)}
	for _, u := range f.users {
		stats.TotalUsers++
		stats.TotalVisits += u.TotalVisits
		if u.Consented() {
			stats.ConsentedUsers++
		}
	}
	return stats, nil
}

type fakePermission struct {
	allowed bool
	err     error
	calls   int
}

func (f *fakePermission) IsNotificationsAllowed(context.Context, int64) (bool, error) {
	f.calls++
	return f.allowed, f.err
}

func TestRegisterCreatesUserWithDefaults(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, &fakePermission{})

	profile := &Profile{
		VKUserID:  12345,
		FirstName: "Ivan",
		City:      "Москва",
		Sex:       2,
	}
	utm := &UTMParams{Source: "vk_ads", Campaign: "summer"}
	extra := json.RawMessage(`{"platform":"mobile_iphone"}`)

	u, err := svc.RegisterOrUpdate(context.Background(), profile, utm, extra)
	require.NoError(t, err)

	assert.Equal(t, int64(12345), u.VKUserID)
	assert.True(t, u.NotificationsEnabled)
	assert.False(t, u.NotificationsAllowed)
	assert.Equal(t, 1, u.TotalVisits)
	assert.Equal(t, "vk_ads", u.UTMSource)
	assert.Equal(t, "summer", u.UTMCampaign)
	assert.False(t, u.FirstSeen.IsZero())
	assert.JSONEq(t, `{"platform":"mobile_iphone"}`, string(u.Extra))
}

func TestRegisterRequiresVKUserID(t *testing.T) {
	svc := NewService(newFakeUserRepo(), &fakePermission{})

	_, err := svc.RegisterOrUpdate(context.Background(), &Profile{}, nil, nil)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	_, err = svc.RegisterOrUpdate(context.Background(), nil, nil, nil)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestRepeatVisitBumpsCountersAndKeepsFirstTouch(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, &fakePermission{})

	profile := &Profile{VKUserID: 12345, FirstName: "Ivan", City: "Москва"}
	first, err := svc.RegisterOrUpdate(context.Background(), profile, &UTMParams{Source: "vk_ads"}, nil)
	require.NoError(t, err)
	firstSeen := first.FirstSeen

	time.Sleep(time.Millisecond)

	// Second visit arrives with a different source and a profile update.
	second, err := svc.RegisterOrUpdate(context.Background(), &Profile{
		VKUserID: 12345,
		City:     "Казань",
	}, &UTMParams{Source: ""}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, second.TotalVisits)
	assert.Equal(t, firstSeen, second.FirstSeen)
	assert.True(t, second.LastSeen.After(firstSeen))
	assert.Equal(t, "Казань", second.City)
	// Empty profile fields never clobber stored values.
	assert.Equal(t, "Ivan", second.FirstName)
	// First-touch attribution survives an empty source on revisit.
	assert.Equal(t, "vk_ads", second.UTMSource)
}

func TestSyncPermissionStoresPlatformAnswer(t *testing.T) {
	repo := newFakeUserRepo()
	perm := &fakePermission{allowed: true}
	svc := NewService(repo, perm)

	_, err := svc.RegisterOrUpdate(context.Background(), &Profile{VKUserID: 1}, nil, nil)
	require.NoError(t, err)

	allowed, err := svc.SyncNotificationsPermission(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.True(t, repo.users[1].NotificationsAllowed)
}

func TestSyncPermissionProviderFaultLeavesFlagUntouched(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, &fakePermission{err: errors.New("timeout")})

	_, err := svc.RegisterOrUpdate(context.Background(), &Profile{VKUserID: 1}, nil, nil)
	require.NoError(t, err)
	repo.users[1].NotificationsAllowed = true

	allowed, err := svc.SyncNotificationsPermission(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.True(t, repo.users[1].NotificationsAllowed)
}

func TestSyncPermissionToleratesUnregisteredUser(t *testing.T) {
	svc := NewService(newFakeUserRepo(), &fakePermission{allowed: true})

	allowed, err := svc.SyncNotificationsPermission(context.Background(), 999)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestEnableNotifications(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, &fakePermission{})

	_, err := svc.RegisterOrUpdate(context.Background(), &Profile{VKUserID: 1}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.EnableNotifications(context.Background(), 1, false))
	assert.False(t, repo.users[1].NotificationsEnabled)

	require.NoError(t, svc.EnableNotifications(context.Background(), 1, true))
	assert.True(t, repo.users[1].NotificationsEnabled)

	err = svc.EnableNotifications(context.Background(), 999, true)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestStatusUnknownUser(t *testing.T) {
	svc := NewService(newFakeUserRepo(), &fakePermission{})

	_, err := svc.Status(context.Background(), 404)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}
