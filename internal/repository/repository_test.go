package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/internal/testutil"
)

func setup(t *testing.T) (repository.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.NewDB(t)
	return repository.NewPGStore(db), testutil.NewFixtures(t, db)
}

func TestRunInTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store, fx := setup(t)
	host := fx.User()

	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(tx repository.Store) error {
		club := &model.Club{HostID: host.ID, Name: "rollback", Description: "d", MaxPeople: 5}
		require.NoError(t, tx.Clubs().Create(ctx, club))
		require.NoError(t, tx.Clubs().AddMember(ctx, club.ID, host.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Clubs().GetByName(ctx, "rollback")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserEmailLookupIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	u := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(ctx, u))

	got, err := store.Users().GetByEmail(ctx, "ADA@Example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := &model.User{Name: "Ada 2", Email: "Ada@Example.com", PasswordHash: "x"}
	assert.ErrorIs(t, store.Users().Create(ctx, dup), gorm.ErrDuplicatedKey)
}

func TestSoftDeletedUserReleasesEmail(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	u := &model.User{Name: "Bo", Email: "bo@example.com", PasswordHash: "x"}
	require.NoError(t, store.Users().Create(ctx, u))
	require.NoError(t, store.Users().Delete(ctx, u.ID))

	_, err := store.Users().GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	again := &model.User{Name: "Bo", Email: "bo@example.com", PasswordHash: "x"}
	assert.NoError(t, store.Users().Create(ctx, again))
}

func TestClubMembersExcludeSoftDeletedUsers(t *testing.T) {
	ctx := context.Background()
	store, fx := setup(t)

	host := fx.User()
	alice, bob := fx.User(), fx.User()
	club := fx.Club(host, 5)
	fx.ClubMember(club, alice)
	fx.ClubMember(club, bob)
	fx.JoinRequest(club, fx.User())
	gone := fx.User()
	fx.JoinRequest(club, gone)

	fx.SoftDelete(bob)
	fx.SoftDelete(gone)

	count, err := store.Clubs().CountActiveMembers(ctx, club.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	members, err := store.Clubs().ListActiveMembers(ctx, club.ID)
	require.NoError(t, err)
	ids := []int64{}
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []int64{host.ID, alice.ID}, ids)

	requests, err := store.Clubs().ListJoinRequests(ctx, club.ID)
	require.NoError(t, err)
	assert.Len(t, requests, 1)

	isMember, err := store.Clubs().IsMember(ctx, club.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isMember, "membership row survives soft delete")
}

func TestDuplicateJoinRequestHitsUniqueIndex(t *testing.T) {
	ctx := context.Background()
	store, fx := setup(t)
	club := fx.Club(fx.User(), 5)
	u := fx.User()

	require.NoError(t, store.Clubs().CreateJoinRequest(ctx, &model.ClubJoinRequest{ClubID: club.ID, UserID: u.ID}))
	err := store.Clubs().CreateJoinRequest(ctx, &model.ClubJoinRequest{ClubID: club.ID, UserID: u.ID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestClubListFilters(t *testing.T) {
	ctx := context.Background()
	store, fx := setup(t)
	host := fx.User()

	for _, name := range []string{"Chess Club", "Chess Masters", "Hiking"} {
		require.NoError(t, store.Clubs().Create(ctx, &model.Club{HostID: host.ID, Name: name, Description: "d", MaxPeople: 3}))
	}
	fx.Club(fx.User(), 3)

	clubs, err := store.Clubs().List(ctx, repository.ClubFilter{Name: "chess"})
	require.NoError(t, err)
	assert.Len(t, clubs, 2)

	clubs, err = store.Clubs().List(ctx, repository.ClubFilter{HostID: &host.ID})
	require.NoError(t, err)
	assert.Len(t, clubs, 3)

	clubs, err = store.Clubs().List(ctx, repository.ClubFilter{HostID: &host.ID, Name: "HIK"})
	require.NoError(t, err)
	require.Len(t, clubs, 1)
	assert.Equal(t, "Hiking", clubs[0].Name)
}

func TestCatalogEnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := setup(t)

	first, created, err := store.Catalog().EnsureCity(ctx, "Seoul")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.Catalog().EnsureCity(ctx, "Seoul")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	cities, err := store.Catalog().CitiesByIDs(ctx, []int64{first.ID, first.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, cities, 1)
}

func TestReviewListFilters(t *testing.T) {
	ctx := context.Background()
	store, fx := setup(t)
	clock := testutil.NewClock()

	host, a, b := fx.User(), fx.User(), fx.User()
	e1 := fx.Event(testutil.EventSpec{Host: host, Start: clock.Now()})
	e2 := fx.Event(testutil.EventSpec{Host: host, Start: clock.Now()})

	for _, r := range []model.Review{
		{EventID: e1.ID, UserID: a.ID, Score: 5, Title: "t"},
		{EventID: e1.ID, UserID: b.ID, Score: 3, Title: "t"},
		{EventID: e2.ID, UserID: a.ID, Score: 4, Title: "t"},
	} {
		r := r
		require.NoError(t, store.Reviews().Create(ctx, &r))
	}

	byEvent, err := store.Reviews().List(ctx, repository.ReviewFilter{EventID: &e1.ID})
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byUser, err := store.Reviews().List(ctx, repository.ReviewFilter{UserID: &a.ID})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	both, err := store.Reviews().List(ctx, repository.ReviewFilter{EventID: &e2.ID, UserID: &a.ID})
	require.NoError(t, err)
	assert.Len(t, both, 1)

	exists, err := store.Reviews().Exists(ctx, e2.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	dup := model.Review{EventID: e1.ID, UserID: a.ID, Score: 1, Title: "again"}
	assert.ErrorIs(t, store.Reviews().Create(ctx, &dup), gorm.ErrDuplicatedKey)
}
