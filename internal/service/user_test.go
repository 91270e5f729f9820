package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kastov/vpnshop/internal/clock"
	"github.com/kastov/vpnshop/internal/config"
	"github.com/kastov/vpnshop/internal/repository/memory"
)

type userFixture struct {
	svc       *UserService
	users     *memory.UserStore
	referrals *memory.ReferralStore
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()
	f := &userFixture{
		users:     memory.NewUserStore(),
		referrals: memory.NewReferralStore(),
	}
	f.svc = NewUserService(f.users, f.referrals, clock.NewMockClock(testTime))
	return f
}

func TestGetOrCreateRegistersOnce(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	created, err := f.svc.GetOrCreate(ctx, 100, "Ivan", "ivan")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Len(t, created.ReferralCode, config.ReferralCodeLength)
	assert.Equal(t, testTime, created.CreatedAt)

	again, err := f.svc.GetOrCreate(ctx, 100, "Ivan", "ivan_renamed")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, created.ReferralCode, again.ReferralCode)
}

func TestGetOrCreateDistinctReferralCodes(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := int64(1); i <= 25; i++ {
		u, err := f.svc.GetOrCreate(ctx, i, "User", "user")
		require.NoError(t, err)
		_, dup := seen[u.ReferralCode]
		assert.False(t, dup, "referral code %q issued twice", u.ReferralCode)
		seen[u.ReferralCode] = struct{}{}
	}
}

func TestBindReferrer(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	referrer, err := f.svc.GetOrCreate(ctx, 100, "Ref", "ref")
	require.NoError(t, err)
	referred, err := f.svc.GetOrCreate(ctx, 200, "New", "new")
	require.NoError(t, err)

	bound, err := f.svc.BindReferrer(ctx, referred.ID, referrer.ReferralCode)
	require.NoError(t, err)
	assert.True(t, bound)

	rel, err := f.referrals.Referrer(ctx, referred.ID)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, referrer.ID, rel.ReferrerID)
}

func TestBindReferrerOnlyOnce(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreate(ctx, 100, "First", "first")
	require.NoError(t, err)
	second, err := f.svc.GetOrCreate(ctx, 101, "Second", "second")
	require.NoError(t, err)
	referred, err := f.svc.GetOrCreate(ctx, 200, "New", "new")
	require.NoError(t, err)

	bound, err := f.svc.BindReferrer(ctx, referred.ID, first.ReferralCode)
	require.NoError(t, err)
	require.True(t, bound)

	// A second deep link must not rewrite the relationship.
	bound, err = f.svc.BindReferrer(ctx, referred.ID, second.ReferralCode)
	require.NoError(t, err)
	assert.False(t, bound)

	rel, err := f.referrals.Referrer(ctx, referred.ID)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, first.ID, rel.ReferrerID)
}

func TestBindReferrerIgnoresSelfAndUnknown(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, err := f.svc.GetOrCreate(ctx, 100, "Solo", "solo")
	require.NoError(t, err)

	bound, err := f.svc.BindReferrer(ctx, user.ID, user.ReferralCode)
	require.NoError(t, err)
	assert.False(t, bound, "self-referral is ignored")

	bound, err = f.svc.BindReferrer(ctx, user.ID, "NOCODE")
	require.NoError(t, err)
	assert.False(t, bound, "unknown code is ignored")
}
