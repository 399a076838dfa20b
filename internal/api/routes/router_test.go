package routes_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/discoverhealth/backend/internal/adapters/auth"
	"github.com/discoverhealth/backend/internal/adapters/database"
	"github.com/discoverhealth/backend/internal/adapters/session"
	"github.com/discoverhealth/backend/internal/api/handlers"
	"github.com/discoverhealth/backend/internal/api/middleware"
	"github.com/discoverhealth/backend/internal/api/routes"
	"github.com/discoverhealth/backend/internal/application/services"
	"github.com/discoverhealth/backend/internal/infrastructure/clients/sqlite"
	"github.com/discoverhealth/backend/pkg/config"
)

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
	client *http.Client
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctx := context.Background()
	t := s.T()

	db, err := sqlite.NewClient(ctx, &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "discoverhealth.db"),
	})
	s.Require().NoError(err)
	t.Cleanup(func() { db.Close() })
	s.Require().NoError(database.NewMigrator(db).Run(ctx))

	store := session.NewMemoryStore(time.Minute)
	t.Cleanup(func() { store.Close() })

	cookie := middleware.CookieConfig{Name: "dh.sid", TTL: 24 * time.Hour}
	sessions := services.NewSessionService(store, cookie.TTL)
	authService := services.NewAuthService(database.NewUserAdapter(db), auth.NewBcryptHasher(bcrypt.MinCost), sessions)
	resourceService := services.NewResourceService(database.NewResourceAdapter(db))

	router := routes.NewRouter(
		handlers.NewResourceHandler(resourceService),
		handlers.NewAuthHandler(authService, cookie),
		handlers.NewHealthHandler(db),
		handlers.NewStaticHandler(""),
		routes.Options{
			Sessions:       sessions,
			Cookie:         cookie,
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	)

	s.server = httptest.NewServer(router.SetupRoutes())
	t.Cleanup(s.server.Close)

	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.client = &http.Client{Jar: jar}
}

func (s *RouterSuite) do(method, path, body string) (int, map[string]interface{}) {
	status, raw := s.doRaw(method, path, body)
	var decoded map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(raw), "{") {
		s.Require().NoError(json.Unmarshal([]byte(raw), &decoded))
	}
	return status, decoded
}

func (s *RouterSuite) doRaw(method, path, body string) (int, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, string(data)
}

func (s *RouterSuite) signupAndLogin(username string) {
	status, _ := s.do(http.MethodPost, "/api/signup", `{"username":"`+username+`","password":"secret"}`)
	s.Require().Equal(http.StatusCreated, status)
	status, _ = s.do(http.MethodPost, "/api/login", `{"username":"`+username+`","password":"secret"}`)
	s.Require().Equal(http.StatusOK, status)
}

func (s *RouterSuite) TestFullFlow() {
	status, body := s.do(http.MethodPost, "/api/signup", `{"username":"alice","password":"secret"}`)
	s.Equal(http.StatusCreated, status)
	s.Equal("Signup successful! Please log in as alice.", body["message"])

	// signup does not log in
	status, body = s.do(http.MethodGet, "/api/user", "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Not logged in", body["error"])

	status, body = s.do(http.MethodPost, "/api/login", `{"username":"alice","password":"secret"}`)
	s.Require().Equal(http.StatusOK, status)
	s.Equal("alice", body["username"])

	status, body = s.do(http.MethodGet, "/api/user", "")
	s.Equal(http.StatusOK, status)
	s.Equal("alice", body["username"])

	status, body = s.do(http.MethodPost, "/api/resources",
		`{"name":"St Thomas Hospital","category":"Hospital","country":"UK","region":"London","lat":51.498,"lon":-0.1195,"description":"Major teaching hospital"}`)
	s.Require().Equal(http.StatusCreated, status)
	id := int64(body["id"].(float64))
	path := "/api/resources/" + jsonNumber(id)

	status, _ = s.do(http.MethodPost, path+"/recommend", "")
	s.Equal(http.StatusOK, status)

	status, body = s.do(http.MethodPost, path+"/reviews", `{"review":"Friendly staff"}`)
	s.Equal(http.StatusCreated, status)
	s.Equal("Review added", body["message"])

	status, raw := s.doRaw(http.MethodGet, "/api/resources?region=London", "")
	s.Require().Equal(http.StatusOK, status)
	var resources []map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(raw), &resources))
	s.Require().Len(resources, 1)
	s.Equal("St Thomas Hospital", resources[0]["name"])
	s.EqualValues(1, resources[0]["recommendations"])
	s.Equal([]interface{}{"Friendly staff"}, resources[0]["reviews"])

	status, raw = s.doRaw(http.MethodGet, "/api/resources/nearby?lat=51.5&lon=-0.12", "")
	s.Require().Equal(http.StatusOK, status)
	var nearby []map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(raw), &nearby))
	s.Require().Len(nearby, 1)
	s.Less(nearby[0]["distance_km"].(float64), 1.0)

	status, body = s.do(http.MethodPost, "/api/logout", "")
	s.Equal(http.StatusOK, status)
	s.Equal("Logout successful", body["message"])

	status, body = s.do(http.MethodPost, path+"/recommend", "")
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Unauthorized: Please log in", body["error"])

	status, _ = s.do(http.MethodPost, "/api/logout", "")
	s.Equal(http.StatusOK, status)
}

func (s *RouterSuite) TestGuardedRoutesRequireSession() {
	for _, path := range []string{"/api/resources", "/api/resources/1/recommend", "/api/resources/1/reviews"} {
		status, body := s.do(http.MethodPost, path, `{}`)
		s.Equal(http.StatusUnauthorized, status, path)
		s.Equal("Unauthorized: Please log in", body["error"], path)
	}
}

func (s *RouterSuite) TestForgedCookieIsAnonymous() {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/api/user", nil)
	s.Require().NoError(err)
	req.AddCookie(&http.Cookie{Name: "dh.sid", Value: "forged"})

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestPublicErrors() {
	status, body := s.do(http.MethodGet, "/api/resources", "")
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Region query parameter is required", body["error"])

	status, raw := s.doRaw(http.MethodGet, "/api/resources?region=Nowhere", "")
	s.Equal(http.StatusOK, status)
	s.JSONEq(`[]`, raw)

	status, body = s.do(http.MethodGet, "/api/resources/999", "")
	s.Equal(http.StatusNotFound, status)
	s.Equal("Resource not found", body["error"])

	status, body = s.do(http.MethodPost, "/api/login", `{"username":"ghost","password":"x"}`)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal("Invalid username or password", body["error"])
}

func (s *RouterSuite) TestSignupRejectsOverlongPassword() {
	status, body := s.do(http.MethodPost, "/api/signup", `{"username":"dave","password":"`+strings.Repeat("x", 73)+`"}`)
	s.Equal(http.StatusBadRequest, status)
	s.Equal("Password must be at most 72 bytes", body["error"])

	status, _ = s.do(http.MethodPost, "/api/signup", `{"username":"dave","password":"`+strings.Repeat("x", 72)+`"}`)
	s.Equal(http.StatusCreated, status)
}

func (s *RouterSuite) TestUnknownAPIPaths() {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		status, raw := s.doRaw(method, "/api/unknown", "")
		s.Equal(http.StatusNotFound, status, method)
		s.JSONEq(`{"error":"Not found"}`, raw, method)
	}

	status, raw := s.doRaw(http.MethodPut, "/api", "")
	s.Equal(http.StatusNotFound, status)
	s.JSONEq(`{"error":"Not found"}`, raw)
}

func (s *RouterSuite) TestDuplicateSignup() {
	status, _ := s.do(http.MethodPost, "/api/signup", `{"username":"bob","password":"pw"}`)
	s.Equal(http.StatusCreated, status)

	status, body := s.do(http.MethodPost, "/api/signup", `{"username":"bob","password":"other"}`)
	s.Equal(http.StatusConflict, status)
	s.Equal("Username already exists", body["error"])
}

func (s *RouterSuite) TestConcurrentRecommends() {
	s.signupAndLogin("carol")

	status, body := s.do(http.MethodPost, "/api/resources",
		`{"name":"Guy's Hospital","category":"Hospital","country":"UK","region":"London","lat":51.5033,"lon":-0.0877,"description":"Teaching hospital"}`)
	s.Require().Equal(http.StatusCreated, status)
	path := "/api/resources/" + jsonNumber(int64(body["id"].(float64))) + "/recommend"

	const n = 20
	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.client.Post(s.server.URL+path, "application/json", nil)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)
	for code := range codes {
		s.Equal(http.StatusOK, code)
	}

	status, raw := s.doRaw(http.MethodGet, "/api/resources?region=London", "")
	s.Require().Equal(http.StatusOK, status)
	var resources []map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(raw), &resources))
	s.Require().Len(resources, 1)
	s.EqualValues(n, resources[0]["recommendations"])
}

func (s *RouterSuite) TestAncillaryRoutes() {
	status, raw := s.doRaw(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, status)
	s.Equal("OK", raw)

	status, _ = s.doRaw(http.MethodGet, "/ready", "")
	s.Equal(http.StatusOK, status)

	status, raw = s.doRaw(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, status)
	s.Contains(raw, "go_goroutines")

	status, raw = s.doRaw(http.MethodGet, "/", "")
	s.Equal(http.StatusOK, status)
	s.Contains(raw, "DiscoverHealth API is running")
}

func TestRouter_Preflight(t *testing.T) {
	router := routes.NewRouter(
		handlers.NewResourceHandler(nil),
		handlers.NewAuthHandler(nil, middleware.CookieConfig{Name: "dh.sid"}),
		handlers.NewHealthHandler(nil),
		handlers.NewStaticHandler(""),
		routes.Options{AllowedOrigins: []string{"http://localhost:5173"}},
	)
	handler := router.SetupRoutes()

	req := httptest.NewRequest(http.MethodOptions, "/api/resources", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("session store down")
}

func TestRouter_SessionStoreFailure(t *testing.T) {
	router := routes.NewRouter(
		handlers.NewResourceHandler(nil),
		handlers.NewAuthHandler(nil, middleware.CookieConfig{Name: "dh.sid"}),
		handlers.NewHealthHandler(nil),
		handlers.NewStaticHandler(""),
		routes.Options{Sessions: failingResolver{}, Cookie: middleware.CookieConfig{Name: "dh.sid"}},
	)
	handler := router.SetupRoutes()

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/resources/1/recommend"},
		{http.MethodGet, "/api/user"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.AddCookie(&http.Cookie{Name: "dh.sid", Value: "tok"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		assert.JSONEq(t, `{"error":"Failed to load session"}`, w.Body.String(), tc.path)
	}
}

func jsonNumber(n int64) string {
	data, _ := json.Marshal(n)
	return string(data)
}
