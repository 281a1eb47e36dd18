package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftyszyx/school-manager/internal/config"
	"github.com/ftyszyx/school-manager/internal/domain"
	"github.com/ftyszyx/school-manager/internal/hub"
)

const testSecret = "test-secret"

// fakeChecker scripts authorization outcomes.
type fakeChecker struct {
	allow bool
	err   error
	calls int
}

func (f *fakeChecker) CheckPathPermission(ctx context.Context, userID int32, roleIDs []int32, method, path string) (bool, error) {
	f.calls++
	return f.allow, f.err
}

func testServer(t *testing.T, checker *fakeChecker) (*Server, *hub.Hub, *httptest.Server) {
	t.Helper()

	cfg := &config.Config{
		Port:         "0",
		JWTSecret:    testSecret,
		RedisTimeout: 2 * time.Second,
	}
	h := hub.New(clockwork.NewRealClock())
	t.Cleanup(h.Stop)

	srv := NewServer(cfg, h, checker, nil, nil)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	return srv, h, ts
}

func signToken(t *testing.T, userID int32, roleIDs []int32) string {
	t.Helper()
	claims := jwtClaims{
		UserID:  userID,
		RoleIDs: roleIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func apiGet(t *testing.T, ts *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebSocket_RejectsInvalidSchoolID(t *testing.T) {
	_, h, ts := testServer(t, &fakeChecker{allow: true})

	for _, path := range []string{"/ws/schools/0", "/ws/schools/abc"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	// The rejection happens before any registry state is created.
	assert.Equal(t, 0, h.ClientCount(0))
}

func TestWebSocket_UpgradeAndReceive(t *testing.T) {
	_, h, ts := testServer(t, &fakeChecker{allow: true})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/schools/7"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	waitFor(t, func() bool { return h.ClientCount(7) == 1 })

	event := domain.ChangeEvent{SchoolID: 7, Grade: 3, Class: 1, ClassID: 99, NewStatus: 2}
	h.Broadcast(7, event)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	msgType, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ws.TextMessage, msgType)

	var got domain.ChangeEvent
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, event, got)
}

func TestWebSocket_DisconnectLeavesBucketClean(t *testing.T) {
	_, h, ts := testServer(t, &fakeChecker{allow: true})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/schools/7"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	waitFor(t, func() bool { return h.ClientCount(7) == 1 })
	conn.Close()
	waitFor(t, func() bool { return h.ClientCount(7) == 0 })
}

func TestAPI_RequiresToken(t *testing.T) {
	_, _, ts := testServer(t, &fakeChecker{allow: true})

	resp := apiGet(t, ts, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = apiGet(t, ts, "/api/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_AllowedRequestPasses(t *testing.T) {
	checker := &fakeChecker{allow: true}
	_, _, ts := testServer(t, checker)

	resp := apiGet(t, ts, "/api/me", signToken(t, 42, []int32{1, 2}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, checker.calls)

	var claims domain.Claims
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&claims))
	assert.Equal(t, int32(42), claims.UserID)
	assert.Equal(t, []int32{1, 2}, claims.RoleIDs)
}

func TestAPI_DeniedRequestIsForbidden(t *testing.T) {
	_, _, ts := testServer(t, &fakeChecker{allow: false})

	resp := apiGet(t, ts, "/api/me", signToken(t, 42, []int32{1}))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_CheckerErrorFailsClosed(t *testing.T) {
	_, _, ts := testServer(t, &fakeChecker{err: errors.New("cache store on fire")})

	resp := apiGet(t, ts, "/api/me", signToken(t, 42, []int32{1}))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_ExpiredTokenRejected(t *testing.T) {
	_, _, ts := testServer(t, &fakeChecker{allow: true})

	claims := jwtClaims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	resp := apiGet(t, ts, "/api/me", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	for range 100 {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
