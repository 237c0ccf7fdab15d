package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"espresso_panel/internal/models"
	"espresso_panel/internal/service"
	"espresso_panel/internal/settings"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockBrew struct {
	snapshot models.Snapshot

	toggleErr  error
	resetErr   error
	steamErr   error
	pumpErr    error
	settingErr error

	toggles     []bool
	resets      int
	steam       []bool
	pumpValues  []float64
	settingKey  string
	settingVal  float64
	settingCall int
}

func (m *mockBrew) Toggle(ctx context.Context, checked bool) error {
	m.toggles = append(m.toggles, checked)
	return m.toggleErr
}
func (m *mockBrew) Reset(ctx context.Context) error {
	m.resets++
	return m.resetErr
}
func (m *mockBrew) SetSteam(ctx context.Context, enabled bool) error {
	m.steam = append(m.steam, enabled)
	return m.steamErr
}
func (m *mockBrew) SetManualPump(ctx context.Context, value float64) error {
	m.pumpValues = append(m.pumpValues, value)
	return m.pumpErr
}
func (m *mockBrew) SetSetting(ctx context.Context, key string, value float64) error {
	m.settingCall++
	m.settingKey = key
	m.settingVal = value
	return m.settingErr
}
func (m *mockBrew) Snapshot() models.Snapshot { return m.snapshot }

type mockSettings struct {
	values map[string]settings.Value
}

func (m *mockSettings) All() map[string]settings.Value { return m.values }

type mockEventLog struct {
	resp     []models.BrewEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.BrewEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockShots struct {
	resp      []models.Shot
	err       error
	lastLimit int
}

func (m *mockShots) Recent(ctx context.Context, limit int) ([]models.Shot, error) {
	m.lastLimit = limit
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func newRequest(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, r, method, path, body, authHeader("valid"))
}

func postJSON(t *testing.T, r http.Handler, path, body string, hdr http.Header) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, r, http.MethodPost, path, body, hdr)
}

func getWithAuth(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func doRequest(t *testing.T, r http.Handler, method, path, body string, hdr http.Header) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range hdr {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}
