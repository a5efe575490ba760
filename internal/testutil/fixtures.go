package testutil

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"eventory/api/internal/model"
)

// Fixtures inserts rows directly, bypassing the services under test.
type Fixtures struct {
	t     *testing.T
	db    *gorm.DB
	faker *gofakeit.Faker
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db, faker: gofakeit.New(uint64(time.Now().UnixNano()))}
}

func (f *Fixtures) User() *model.User {
	f.t.Helper()
	u := &model.User{
		Name:         f.faker.Name(),
		Email:        f.faker.UUID() + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

// SoftDelete marks the user deleted the way account deletion does.
func (f *Fixtures) SoftDelete(u *model.User) {
	f.t.Helper()
	require.NoError(f.t, f.db.Delete(u).Error)
}

func (f *Fixtures) Category() *model.Category {
	f.t.Helper()
	c := &model.Category{Name: f.faker.UUID()}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

func (f *Fixtures) City() *model.City {
	f.t.Helper()
	c := &model.City{Name: f.faker.UUID()}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

// Club creates a club hosted by host, with the host as first member.
func (f *Fixtures) Club(host *model.User, maxPeople int) *model.Club {
	f.t.Helper()
	c := &model.Club{
		HostID:      host.ID,
		Name:        f.faker.Company() + " " + f.faker.UUID(),
		Description: f.faker.Sentence(8),
		MaxPeople:   maxPeople,
	}
	require.NoError(f.t, f.db.Create(c).Error)
	f.ClubMember(c, host)
	return c
}

func (f *Fixtures) ClubMember(c *model.Club, u *model.User) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&model.ClubMembership{ClubID: c.ID, UserID: u.ID}).Error)
}

func (f *Fixtures) JoinRequest(c *model.Club, u *model.User) *model.ClubJoinRequest {
	f.t.Helper()
	r := &model.ClubJoinRequest{ClubID: c.ID, UserID: u.ID}
	require.NoError(f.t, f.db.Create(r).Error)
	return r
}

// EventSpec describes an event row; zero fields get defaults.
type EventSpec struct {
	Host      *model.User
	Club      *model.Club
	Category  *model.Category
	Cities    []*model.City
	Start     time.Time
	End       time.Time
	MaxPeople int
	Archived  bool
}

// Event inserts an event with its cities and the host on the roster.
func (f *Fixtures) Event(spec EventSpec) *model.Event {
	f.t.Helper()
	if spec.Category == nil {
		spec.Category = f.Category()
	}
	if len(spec.Cities) == 0 {
		spec.Cities = []*model.City{f.City()}
	}
	if spec.End.IsZero() {
		spec.End = spec.Start.Add(2 * time.Hour)
	}
	if spec.MaxPeople == 0 {
		spec.MaxPeople = 10
	}

	e := &model.Event{
		HostID:      spec.Host.ID,
		Title:       f.faker.Sentence(3),
		Description: f.faker.Sentence(10),
		CategoryID:  spec.Category.ID,
		StartTime:   spec.Start.UTC(),
		EndTime:     spec.End.UTC(),
		MaxPeople:   spec.MaxPeople,
	}
	if spec.Club != nil {
		e.ClubID = &spec.Club.ID
	}
	require.NoError(f.t, f.db.Omit("Cities").Create(e).Error)
	if spec.Archived {
		require.NoError(f.t, f.db.Model(e).Update("is_archived", true).Error)
		e.IsArchived = true
	}
	for _, c := range spec.Cities {
		require.NoError(f.t, f.db.Create(&model.EventCity{EventID: e.ID, CityID: c.ID}).Error)
	}
	f.EventMember(e, spec.Host)
	return e
}

func (f *Fixtures) EventMember(e *model.Event, u *model.User) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&model.EventMembership{EventID: e.ID, UserID: u.ID}).Error)
}
