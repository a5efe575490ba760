package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"eventory/api/internal/config"
	"eventory/api/internal/handler"
	"eventory/api/internal/metrics"
	"eventory/api/internal/model"
	"eventory/api/internal/repository"
	"eventory/api/internal/service"
	"eventory/api/internal/testutil"
	"eventory/api/pkg/crypto"
	jwtpkg "eventory/api/pkg/jwt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	fx     *testutil.Fixtures
	clock  *testutil.Clock
	jwt    *jwtpkg.Manager
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := repository.NewPGStore(db)
	clock := testutil.NewClock()
	logger := zap.NewNop()
	manager := jwtpkg.NewManager("handler-test-signing-key-0123456789", "eventory-test", time.Hour, 24*time.Hour)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	auth := service.NewAuthService(store, repository.NewMemoryStateStore(), manager, crypto.NewHasher(bcrypt.MinCost), logger)
	router := handler.SetupRouter(cfg, logger, manager, m, reg, store, handler.Handlers{
		Auth:    handler.NewAuthHandler(auth, logger),
		Clubs:   handler.NewClubHandler(service.NewClubService(store, clock, logger, m), logger),
		Events:  handler.NewEventHandler(service.NewEventService(store, clock, logger, m), logger),
		Catalog: handler.NewCatalogHandler(service.NewCatalogService(store, logger), logger),
		Reviews: handler.NewReviewHandler(service.NewReviewService(store, clock), logger),
	})

	return &testServer{router: router, fx: testutil.NewFixtures(t, db), clock: clock, jwt: manager}
}

func (s *testServer) token(t *testing.T, u *model.User) string {
	t.Helper()
	tok, err := s.jwt.GenerateAccessToken(u.ID)
	require.NoError(t, err)
	return tok
}

// do sends body (marshalled unless it is already a string) as u, or anonymously when u is nil.
func (s *testServer) do(t *testing.T, method, path string, u *model.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, u))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env
}

func TestHealthz(t *testing.T) {
	s := newServer(t, testConfig())
	w := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginOverHTTP(t *testing.T) {
	s := newServer(t, testConfig())

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", nil, map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", nil, map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email": "ada@example.com", "password": "wrong horse",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var tokens service.TokenSet
	decode(t, w, &tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestClubJoinFlow(t *testing.T) {
	s := newServer(t, testConfig())
	host, applicant := s.fx.User(), s.fx.User()

	w := s.do(t, http.MethodPost, "/api/v1/clubs", nil, map[string]interface{}{"name": "Chess", "maxPeople": 3})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/clubs", host, map[string]interface{}{"name": "Chess", "maxPeople": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/clubs", host, map[string]interface{}{"name": "Chess", "description": "weekly", "maxPeople": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var club model.Club
	decode(t, w, &club)
	clubPath := fmt.Sprintf("/api/v1/clubs/%d", club.ID)

	w = s.do(t, http.MethodPost, clubPath+"/requests", applicant, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var req model.ClubJoinRequest
	decode(t, w, &req)

	w = s.do(t, http.MethodPost, clubPath+"/requests", applicant, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, clubPath+"/requests", applicant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, clubPath+"/requests", host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []repository.JoinRequestRow
	decode(t, w, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, applicant.ID, pending[0].UserID)

	resolvePath := fmt.Sprintf("%s/requests/%d", clubPath, req.ID)
	w = s.do(t, http.MethodPatch, resolvePath, applicant, map[string]string{"action": "APPROVE"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, resolvePath, host, map[string]string{"action": "MAYBE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, resolvePath, host, map[string]string{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, clubPath, host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail service.ClubDetail
	decode(t, w, &detail)
	want := []repository.MemberRow{{ID: host.ID, Name: host.Name}, {ID: applicant.ID, Name: applicant.Name}}
	if diff := cmp.Diff(want, detail.Participants); diff != "" {
		t.Errorf("participants mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateClubNullCapacity(t *testing.T) {
	s := newServer(t, testConfig())
	host := s.fx.User()
	club := s.fx.Club(host, 4)

	w := s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/clubs/%d", club.ID), host, `{"maxPeople": null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/clubs/%d", club.ID), host, `{"description": "renovated"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Club
	decode(t, w, &got)
	assert.Equal(t, "renovated", got.Description)
	assert.Equal(t, 4, got.MaxPeople)
}

func TestMalformedIDs(t *testing.T) {
	s := newServer(t, testConfig())
	u := s.fx.User()

	for _, path := range []string{"/api/v1/clubs/abc", "/api/v1/clubs/0", "/api/v1/events/-3"} {
		w := s.do(t, http.MethodGet, path, u, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	w := s.do(t, http.MethodGet, "/api/v1/events?cityId=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventVisibilityAndCalendar(t *testing.T) {
	s := newServer(t, testConfig())
	host := s.fx.User()
	club := s.fx.Club(host, 5)
	start := s.clock.Now().Add(24 * time.Hour)
	private := s.fx.Event(testutil.EventSpec{Host: host, Club: club, Start: start})
	public := s.fx.Event(testutil.EventSpec{Host: host, Start: start})

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", private.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d", private.ID), host, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/events", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []service.EventSummary
	decode(t, w, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, public.ID, listed[0].ID)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%d/calendar.ics", public.ID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("event-%d.ics", public.ID))
	assert.True(t, strings.HasPrefix(w.Body.String(), "BEGIN:VCALENDAR"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEventRosterOverHTTP(t *testing.T) {
	s := newServer(t, testConfig())
	host, guest := s.fx.User(), s.fx.User()
	category, city := s.fx.Category(), s.fx.City()
	start := s.clock.Now().Add(48 * time.Hour)

	w := s.do(t, http.MethodPost, "/api/v1/events", host, map[string]interface{}{
		"title":      "Yesterday",
		"categoryId": category.ID,
		"cityIds":    []int64{city.ID},
		"startTime":  s.clock.Now().Add(-24 * time.Hour),
		"endTime":    s.clock.Now().Add(-23 * time.Hour),
		"maxPeople":  2,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/events", host, map[string]interface{}{
		"title":      "Hike",
		"categoryId": category.ID,
		"cityIds":    []int64{city.ID},
		"startTime":  start,
		"endTime":    start.Add(4 * time.Hour),
		"maxPeople":  2,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created service.EventDetail
	decode(t, w, &created)
	eventPath := fmt.Sprintf("/api/v1/events/%d", created.ID)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, eventPath+"/leave", host, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, eventPath+"/join", guest, nil).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, eventPath+"/join", s.fx.User(), nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, eventPath+"/leave", guest, nil).Code)

	w = s.do(t, http.MethodPatch, eventPath, host, `{"cityIds": null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPatch, eventPath, guest, `{"title": "Mine now"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, eventPath, guest, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, eventPath, host, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, eventPath, host, nil).Code)
}

func TestRateLimitAndMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	s := newServer(t, cfg)
	u := s.fx.User()

	first := s.do(t, http.MethodPost, "/api/v1/events/9999/join", u, nil)
	assert.Equal(t, http.StatusNotFound, first.Code)
	second := s.do(t, http.MethodPost, "/api/v1/events/9999/join", u, nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	other := s.do(t, http.MethodPost, "/api/v1/events/9999/join", s.fx.User(), nil)
	assert.Equal(t, http.StatusNotFound, other.Code, "buckets are per user")

	w := s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "eventory_rate_limited_requests_total 1")
	assert.Contains(t, body, `eventory_operations_total{operation="join_event",outcome="not_found"} 2`)
	assert.Contains(t, body, `route="/api/v1/events/:eventId/join"`)
}
