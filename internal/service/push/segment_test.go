package push

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaimgo/marketing-api/internal/model"
)

func vkIDs(users []*model.AppUser) []int64 {
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.VKUserID)
	}
	return out
}

func resolve(t *testing.T, repo *fakeUserRepo, n *model.PushNotification, now time.Time) []*model.AppUser {
	t.Helper()
	users, err := NewResolver(repo).Resolve(context.Background(), n, now)
	require.NoError(t, err)
	return users
}

func TestResolveExcludesNonConsentedUsers(t *testing.T) {
	now := time.Now()
	noConsent := consentedUser(2)
	noConsent.NotificationsAllowed = false
	disabled := consentedUser(3)
	disabled.NotificationsEnabled = false

	repo := &fakeUserRepo{users: []*model.AppUser{consentedUser(1), noConsent, disabled}}
	n := &model.PushNotification{Segment: model.SegmentAll}

	got := resolve(t, repo, n, now)
	assert.Equal(t, []int64{1}, vkIDs(got))
}

func TestResolveActiveInactivePartition(t *testing.T) {
	now := time.Now()

	active := consentedUser(1)
	active.LastSeen = now.Add(-24 * time.Hour)
	idle := consentedUser(2)
	idle.LastSeen = now.Add(-10 * 24 * time.Hour)

	repo := &fakeUserRepo{users: []*model.AppUser{active, idle}}

	got := resolve(t, repo, &model.PushNotification{Segment: model.SegmentActive}, now)
	assert.Equal(t, []int64{1}, vkIDs(got))

	got = resolve(t, repo, &model.PushNotification{Segment: model.SegmentInactive}, now)
	assert.Equal(t, []int64{2}, vkIDs(got))
}

func TestResolveNewSegment(t *testing.T) {
	now := time.Now()

	fresh := consentedUser(1)
	fresh.FirstSeen = now.Add(-24 * time.Hour)
	old := consentedUser(2)
	old.FirstSeen = now.Add(-14 * 24 * time.Hour)

	repo := &fakeUserRepo{users: []*model.AppUser{fresh, old}}

	got := resolve(t, repo, &model.PushNotification{Segment: model.SegmentNew}, now)
	assert.Equal(t, []int64{1}, vkIDs(got))
}

func TestResolveCustomListBypassesConsentGate(t *testing.T) {
	now := time.Now()

	noConsent := consentedUser(2)
	noConsent.NotificationsAllowed = false

	repo := &fakeUserRepo{users: []*model.AppUser{consentedUser(1), noConsent, consentedUser(3)}}
	n := &model.PushNotification{
		Segment:         model.SegmentCustom,
		TargetVKUserIDs: []int64{2, 3},
	}

	got := resolve(t, repo, n, now)
	assert.ElementsMatch(t, []int64{2, 3}, vkIDs(got))
}

func TestResolveCustomWithoutListFallsBackToConsented(t *testing.T) {
	now := time.Now()

	noConsent := consentedUser(2)
	noConsent.NotificationsAllowed = false

	repo := &fakeUserRepo{users: []*model.AppUser{consentedUser(1), noConsent}}
	n := &model.PushNotification{Segment: model.SegmentCustom}

	got := resolve(t, repo, n, now)
	assert.Equal(t, []int64{1}, vkIDs(got))
}

func TestResolveAttributeFiltersApplyUnderEverySelector(t *testing.T) {
	now := time.Now()

	moscow := consentedUser(1)
	moscow.City = "Москва"
	moscow.Sex = 1
	moscow.UTMSource = "vk_ads"

	spb := consentedUser(2)
	spb.City = "Санкт-Петербург"
	spb.Sex = 2

	repo := &fakeUserRepo{users: []*model.AppUser{moscow, spb}}

	got := resolve(t, repo, &model.PushNotification{
		Segment:    model.SegmentAll,
		FilterCity: "Москва",
	}, now)
	assert.Equal(t, []int64{1}, vkIDs(got))

	got = resolve(t, repo, &model.PushNotification{
		Segment:   model.SegmentAll,
		FilterSex: 2,
	}, now)
	assert.Equal(t, []int64{2}, vkIDs(got))

	got = resolve(t, repo, &model.PushNotification{
		Segment:         model.SegmentCustom,
		TargetVKUserIDs: []int64{1, 2},
		FilterUTMSource: "vk_ads",
	}, now)
	assert.Equal(t, []int64{1}, vkIDs(got))
}

func TestResolveDeduplicatesByVKUserID(t *testing.T) {
	now := time.Now()

	first := consentedUser(1)
	duplicate := consentedUser(1)

	repo := &fakeUserRepo{users: []*model.AppUser{first, duplicate, consentedUser(2)}}

	got := resolve(t, repo, &model.PushNotification{Segment: model.SegmentAll}, now)
	assert.Equal(t, []int64{1, 2}, vkIDs(got))
}

func TestResolveRejectsUnknownSegment(t *testing.T) {
	_, err := NewResolver(&fakeUserRepo{}).Resolve(context.Background(), &model.PushNotification{Segment: "vip"}, time.Now())
	assert.Error(t, err)
}

func TestResolveEmptyResultIsValid(t *testing.T) {
	got := resolve(t, &fakeUserRepo{}, &model.PushNotification{Segment: model.SegmentAll}, time.Now())
	assert.Empty(t, got)
}
