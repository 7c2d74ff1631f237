package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *Registry) {
	t.Helper()
	reg := NewRegistry()
	return NewServer(reg), reg
}

func postJSON(t *testing.T, server *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.HandleRoom(recorder, req)
	return recorder
}

func TestProvisionCreatesRoom(t *testing.T) {
	req := require.New(t)
	server, reg := newTestServer(t)

	recorder := postJSON(t, server, "/dannysroom", `{"password":"s3cret"}`)
	req.Equal(http.StatusOK, recorder.Code)
	req.True(reg.Exists("dannysroom"))
	req.True(reg.VerifyPassword("dannysroom", HashSecret("s3cret")))
}

func TestProvisionExistingRoom(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	req.Equal(http.StatusOK, postJSON(t, server, "/r1", `{"password":"s3cret"}`).Code)
	// same password: still 200.
	req.Equal(http.StatusOK, postJSON(t, server, "/r1", `{"password":"s3cret"}`).Code)
	// different password: 401, and the room keeps its original secret.
	req.Equal(http.StatusUnauthorized, postJSON(t, server, "/r1", `{"password":"other"}`).Code)
}

func TestProvisionRejectsBadInput(t *testing.T) {
	req := require.New(t)
	server, reg := newTestServer(t)

	req.Equal(http.StatusBadRequest, postJSON(t, server, "/r1", `{"password":""}`).Code)
	req.Equal(http.StatusBadRequest, postJSON(t, server, "/r1", `not json`).Code)
	req.False(reg.Exists("r1"))
}

func TestProvisionRequiresPost(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	request := httptest.NewRequest(http.MethodGet, "/r1", nil)
	recorder := httptest.NewRecorder()
	server.HandleRoom(recorder, request)
	req.Equal(http.StatusMethodNotAllowed, recorder.Code)
}

func TestProvisionRateLimited(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	var last int
	for i := 0; i <= provisionLimit; i++ {
		last = postJSON(t, server, "/r1", `{"password":"s3cret"}`).Code
	}
	req.Equal(http.StatusTooManyRequests, last)
}

func TestAdminClaimAndClearHistory(t *testing.T) {
	req := require.New(t)
	server, reg := newTestServer(t)

	req.Equal(http.StatusOK, postJSON(t, server, "/r1", `{"password":"s3cret"}`).Code)
	req.NoError(reg.AppendMessage("r1", Message{Body: "hello", Kind: KindChat}))

	// claiming requires the room password.
	req.Equal(http.StatusUnauthorized,
		postJSON(t, server, "/r1/admin", `{"password":"wrong","admin_password":"adm"}`).Code)
	req.Equal(http.StatusNoContent,
		postJSON(t, server, "/r1/admin", `{"password":"s3cret","admin_password":"adm"}`).Code)
	req.True(reg.VerifyAdminPassword("r1", HashSecret("adm")))

	// clearing requires the admin password.
	req.Equal(http.StatusUnauthorized,
		postJSON(t, server, "/r1/clear", `{"admin_password":"wrong"}`).Code)
	req.Equal(1, reg.HistoryLen("r1"))
	req.Equal(http.StatusNoContent,
		postJSON(t, server, "/r1/clear", `{"admin_password":"adm"}`).Code)
	req.Equal(0, reg.HistoryLen("r1"))
}

func TestClearWithoutAdminPasswordSet(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)

	req.Equal(http.StatusOK, postJSON(t, server, "/r1", `{"password":"s3cret"}`).Code)
	// no admin digest claimed yet: every candidate fails.
	req.Equal(http.StatusUnauthorized,
		postJSON(t, server, "/r1/clear", `{"admin_password":"anything"}`).Code)
}

func TestRoomExistsProbe(t *testing.T) {
	req := require.New(t)
	server, reg := newTestServer(t)
	req.NoError(reg.CreateRoom("r1", HashSecret("pw")))

	recorder := httptest.NewRecorder()
	server.HandleRoomExists(recorder, httptest.NewRequest(http.MethodGet, "/exists?room=r1", nil))
	req.Equal(http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	server.HandleRoomExists(recorder, httptest.NewRequest(http.MethodGet, "/exists?room=ghost", nil))
	req.Equal(http.StatusNotFound, recorder.Code)

	recorder = httptest.NewRecorder()
	server.HandleRoomExists(recorder, httptest.NewRequest(http.MethodGet, "/exists", nil))
	req.Equal(http.StatusBadRequest, recorder.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	req := require.New(t)
	server, _ := newTestServer(t)
	req.Equal(http.StatusOK, postJSON(t, server, "/r1", `{"password":"pw"}`).Code)

	recorder := httptest.NewRecorder()
	server.MetricsHandler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req.Equal(http.StatusOK, recorder.Code)
	req.Contains(recorder.Body.String(), `"rooms_created_total":1`)
}
