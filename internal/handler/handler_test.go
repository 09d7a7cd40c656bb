package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-lot/internal/config"
	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/grid"
	"github.com/iliyamo/parking-lot/internal/handler"
	"github.com/iliyamo/parking-lot/internal/mailbox"
	"github.com/iliyamo/parking-lot/internal/model"
	"github.com/iliyamo/parking-lot/internal/repository"
	"github.com/iliyamo/parking-lot/internal/router"
)

type chanPublisher chan grid.TowEvent

func (p chanPublisher) PublishTowed(ctx context.Context, tow grid.TowEvent) error {
	p <- tow
	return nil
}

type testServer struct {
	e      *echo.Echo
	events chanPublisher
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "parking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	prov := repository.NewProvisioner(db, database.SQLite)
	require.NoError(t, prov.Ensure(context.Background()))

	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	e := echo.New()
	e.Logger.SetOutput(io.Discard)

	users := repository.NewUserRepo(db, prov)
	box := mailbox.New(repository.NewUserLogRepo(db, prov), e.Logger)
	engine := grid.NewEngine(10, repository.NewGridRepo(db, prov), box, e.Logger)
	events := make(chanPublisher, 8)

	router.RegisterRoutes(e, db, passthrough)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db, prov)), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUsersHandler(cfg, users), cfg.JWTSecret)
	router.RegisterGrid(e, handler.NewGridHandler(engine, box, users, events), cfg.JWTSecret, passthrough)
	return &testServer{e: e, events: events}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type loginResp struct {
	Status string `json:"status"`
	User   struct {
		ID       uint64 `json:"id"`
		Username string `json:"username"`
		Vehicle  string `json:"vehicle"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func (s *testServer) login(t *testing.T, name, password string) loginResp {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", `{"username":"`+name+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out loginResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type gridBody struct {
	Size  int              `json:"size"`
	Cells []model.GridCell `json:"cells"`
	Logs  []string         `json:"logs"`
}

func (s *testServer) grid(t *testing.T, token string) gridBody {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/v1/grid", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out gridBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) toggle(t *testing.T, token string, index int) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(map[string]int{"index": index})
	require.NoError(t, err)
	return s.do(t, http.MethodPost, "/v1/grid/toggle", token, string(b))
}

func TestLoginRegistersThenAuthenticates(t *testing.T) {
	s := newTestServer(t)

	first := s.login(t, "alice", "pw")
	assert.Equal(t, "registered", first.Status)
	assert.Equal(t, "alice", first.User.Username)
	assert.Equal(t, model.DefaultVehicle, first.User.Vehicle)
	assert.NotEmpty(t, first.Access.Token)
	assert.NotEmpty(t, first.Refresh.Token)

	again := s.login(t, "alice", "pw")
	assert.Equal(t, "ok", again.Status)
	assert.Equal(t, first.User.ID, again.User.ID)

	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_credentials"}`, rec.Body.String())

	for _, body := range []string{`{"username":"","password":"x"}`, `{"username":"bob"}`, `{"username":"   ","password":"x"}`} {
		rec = s.do(t, http.MethodPost, "/v1/auth/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"missing_credentials"}`, rec.Body.String(), body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/v1/grid", "/v1/me", "/v1/users"} {
		rec := s.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := s.do(t, http.MethodPost, "/v1/grid/toggle", "garbage", `{"index":0}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGridReadIsSizedAndEmpty(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")

	g := s.grid(t, alice.Access.Token)
	assert.Equal(t, 10, g.Size)
	require.Len(t, g.Cells, 100)
	for _, c := range g.Cells {
		assert.True(t, c.IsEmpty())
	}
	assert.NotNil(t, g.Logs)
	assert.Empty(t, g.Logs)
}

func TestToggleAndTowScenario(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")
	bob := s.login(t, "bob", "pw")

	rec := s.toggle(t, alice.Access.Token, 11)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"index":11,"cell":{"user_id":`+jsonID(alice.User.ID)+`,"vehicle":"🚗"}}`, rec.Body.String())

	rec = s.toggle(t, bob.Access.Token, 11)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"index":11,"cell":null}`, rec.Body.String())

	select {
	case tow := <-s.events:
		assert.Equal(t, 11, tow.Index)
		assert.Equal(t, alice.User.ID, tow.RecipientID)
		assert.Equal(t, bob.User.ID, tow.Actor.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("tow was not published")
	}

	g := s.grid(t, alice.Access.Token)
	assert.True(t, g.Cells[11].IsEmpty())
	assert.Equal(t, []string{"bob towed your 🚗 from its spot!"}, g.Logs)

	g = s.grid(t, alice.Access.Token)
	assert.Empty(t, g.Logs, "messages are delivered once")

	g = s.grid(t, bob.Access.Token)
	assert.Empty(t, g.Logs)
}

func TestSelfReleaseIsSilent(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")

	require.Equal(t, http.StatusOK, s.toggle(t, alice.Access.Token, 0).Code)
	require.Equal(t, http.StatusOK, s.toggle(t, alice.Access.Token, 0).Code)

	g := s.grid(t, alice.Access.Token)
	assert.True(t, g.Cells[0].IsEmpty())
	assert.Empty(t, g.Logs)
	assert.Empty(t, s.events)
}

func TestToggleRejectsInvalidIndex(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")

	for _, body := range []string{`{"index":-1}`, `{"index":100}`, `{"index":"3"}`, `{"index":1.5}`, `{"index":null}`, `{}`, `not json`} {
		rec := s.do(t, http.MethodPost, "/v1/grid/toggle", alice.Access.Token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"invalid_index"}`, rec.Body.String(), body)
	}

	g := s.grid(t, alice.Access.Token)
	for _, c := range g.Cells {
		assert.True(t, c.IsEmpty())
	}
}

func TestVehicleChangeAppliesToNewClaims(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")

	require.Equal(t, http.StatusOK, s.toggle(t, alice.Access.Token, 1).Code)

	rec := s.do(t, http.MethodPost, "/v1/me/vehicle", alice.Access.Token, `{"vehicle":"🛸"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"vehicle":"🛸"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/me/vehicle", alice.Access.Token, `{"vehicle":"🐢"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid_vehicle"}`, rec.Body.String())

	require.Equal(t, http.StatusOK, s.toggle(t, alice.Access.Token, 2).Code)
	g := s.grid(t, alice.Access.Token)
	first, _ := g.Cells[1].Occupant()
	second, _ := g.Cells[2].Occupant()
	assert.Equal(t, "🚗", first.Vehicle)
	assert.Equal(t, "🛸", second.Vehicle)

	rec = s.do(t, http.MethodGet, "/v1/me", alice.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":`+jsonID(alice.User.ID)+`,"username":"alice","vehicle":"🛸"}`, rec.Body.String())
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")

	rec := s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+alice.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rotated loginResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, alice.Refresh.Token, rotated.Refresh.Token)

	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+alice.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old refresh token is revoked")

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", "", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodPost, "/v1/auth/refresh", "", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUsersDirectory(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice", "pw")

	rec := s.do(t, http.MethodPost, "/v1/users", alice.Access.Token, `{"username":"bob","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/users", alice.Access.Token, `{"username":"bob","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"username_already_exists"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/v1/users", alice.Access.Token, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")

	rec = s.do(t, http.MethodGet, "/v1/users?limit=1&offset=1", alice.Access.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data []handler.PublicUser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "bob", out.Data[0].Username)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/v1/vehicles", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var v struct {
		Items   []string `json:"items"`
		Default string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, model.Vehicles, v.Items)
	assert.Equal(t, model.DefaultVehicle, v.Default)

	rec = s.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func jsonID(id uint64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
