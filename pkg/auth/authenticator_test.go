package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loginServer simulates the CSRF-protected login endpoint
type loginServer struct {
	server     *httptest.Server
	token      string
	password   string
	getCount   atomic.Int32
	postCount  atomic.Int32
	postStatus int
}

func newLoginServer(t *testing.T) *loginServer {
	t.Helper()

	ls := &loginServer{
		token:      "server-token-123",
		password:   "correct-horse",
		postStatus: http.StatusSeeOther,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ls.getCount.Add(1)
			fmt.Fprintf(w, `<html><form><input type="hidden" name="authenticity_token" value=%q /></form></html>`, ls.token)
		case http.MethodPost:
			ls.postCount.Add(1)
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("authenticity_token") != ls.token ||
				r.PostForm.Get("user[password]") != ls.password {
				w.WriteHeader(http.StatusOK) // login page re-rendered, no redirect
				return
			}
			assert.Equal(t, "1", r.PostForm.Get("user[remember_me]"))
			assert.NotEmpty(t, r.Header.Get("Referer"))
			http.SetCookie(w, &http.Cookie{Name: "_session_id", Value: "sess-42", Path: "/"})
			w.Header().Set("Location", "/dashboard")
			w.WriteHeader(ls.postStatus)
		}
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		t.Error("post-login redirect must not be followed")
	})

	ls.server = httptest.NewServer(mux)
	t.Cleanup(ls.server.Close)
	return ls
}

func (ls *loginServer) loginURL() string {
	return ls.server.URL + "/users/sign_in"
}

func newTestAuthenticator(t *testing.T, ls *loginServer, cachePath string) *Authenticator {
	t.Helper()
	cache := NewSessionCache(cachePath, 24*time.Hour, nil)
	creds := Credentials{
		LoginURL: ls.loginURL(),
		Username: "user@example.com",
		Password: ls.password,
	}
	return NewAuthenticator(creds, cache, "test-agent", 5*time.Second, nil)
}

func TestAuthenticateFreshLogin(t *testing.T) {
	ls := newLoginServer(t)
	cachePath := filepath.Join(t.TempDir(), "cache.json")
	a := newTestAuthenticator(t, ls, cachePath)

	session, err := a.Authenticate()
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, StateAuthenticated, a.State())

	// The session must carry the login cookie
	assert.Equal(t, "sess-42", session.Cookies()["_session_id"])

	// A successful login persists the cache
	_, err = os.Stat(cachePath)
	assert.NoError(t, err, "expected session cache to be written")
}

func TestAuthenticateCacheHitSkipsLogin(t *testing.T) {
	ls := newLoginServer(t)
	cachePath := filepath.Join(t.TempDir(), "cache.json")

	cache := NewSessionCache(cachePath, 24*time.Hour, nil)
	require.NoError(t, cache.Save(map[string]string{"_session_id": "cached-sess"}))

	a := newTestAuthenticator(t, ls, cachePath)
	session, err := a.Authenticate()
	require.NoError(t, err)

	assert.Equal(t, int32(0), ls.getCount.Load(), "cache hit must make zero login calls")
	assert.Equal(t, int32(0), ls.postCount.Load())
	assert.Equal(t, StateAuthenticated, a.State())
	assert.Equal(t, "cached-sess", session.Cookies()["_session_id"])
}

func TestAuthenticateExpiredCachePerformsFreshLogin(t *testing.T) {
	ls := newLoginServer(t)
	cachePath := filepath.Join(t.TempDir(), "cache.json")

	cache := NewSessionCache(cachePath, 24*time.Hour, nil)
	require.NoError(t, cache.Save(map[string]string{"_session_id": "stale"}))

	a := newTestAuthenticator(t, ls, cachePath)
	a.cache.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	session, err := a.Authenticate()
	require.NoError(t, err)

	assert.Equal(t, int32(1), ls.getCount.Load())
	assert.Equal(t, int32(1), ls.postCount.Load())
	assert.Equal(t, "sess-42", session.Cookies()["_session_id"])
}

func TestAuthenticateRejectedCredentials(t *testing.T) {
	ls := newLoginServer(t)
	cachePath := filepath.Join(t.TempDir(), "cache.json")

	a := newTestAuthenticator(t, ls, cachePath)
	a.creds.Password = "wrong"

	session, err := a.Authenticate()
	require.Error(t, err)
	assert.Nil(t, session)
	assert.Equal(t, StateFailed, a.State())

	// A failed login must not write a cache record
	_, statErr := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(statErr), "failed login must not persist a session")
}

func TestAuthenticateFoundStatusAccepted(t *testing.T) {
	ls := newLoginServer(t)
	ls.postStatus = http.StatusFound

	a := newTestAuthenticator(t, ls, filepath.Join(t.TempDir(), "cache.json"))
	_, err := a.Authenticate()
	assert.NoError(t, err)
}

func TestAuthenticateMissingTokenField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><form></form></html>")
	}))
	defer server.Close()

	cache := NewSessionCache(filepath.Join(t.TempDir(), "cache.json"), 24*time.Hour, nil)
	a := NewAuthenticator(Credentials{LoginURL: server.URL, Username: "u", Password: "p"},
		cache, "test-agent", 5*time.Second, nil)

	_, err := a.Authenticate()
	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
}

func TestAuthenticateLoginPageUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cache := NewSessionCache(filepath.Join(t.TempDir(), "cache.json"), 24*time.Hour, nil)
	a := NewAuthenticator(Credentials{LoginURL: server.URL, Username: "u", Password: "p"},
		cache, "test-agent", 5*time.Second, nil)

	_, err := a.Authenticate()
	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
}
