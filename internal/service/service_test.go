package service_test

import (
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/internal/testutil"
)

type env struct {
	db     *gorm.DB
	store  repository.Store
	fx     *testutil.Fixtures
	clock  *testutil.Clock
	clubs  service.ClubService
	events service.EventService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewPGStore(db)
	clock := testutil.NewClock()
	logger := zap.NewNop()
	return &env{
		db:     db,
		store:  store,
		fx:     testutil.NewFixtures(t, db),
		clock:  clock,
		clubs:  service.NewClubService(store, clock, logger, nil),
		events: service.NewEventService(store, clock, logger, nil),
	}
}

func (e *env) count(t *testing.T, table, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := e.db.Table(table).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
