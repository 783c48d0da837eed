package auth

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// Session is an authenticated transport: an HTTP client whose cookie jar
// carries the login cookies. It is created by the Authenticator and shared
// by reference with the API client and downloader for the rest of the run.
type Session struct {
	jar      *cookiejar.Jar
	client   *http.Client
	loginURL *url.URL
}

// NewSession creates an unauthenticated session for the given login URL
func NewSession(loginURL string, timeout time.Duration) (*Session, error) {
	parsed, err := url.Parse(loginURL)
	if err != nil {
		return nil, fmt.Errorf("invalid login URL: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Session{
		jar: jar,
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		loginURL: parsed,
	}, nil
}

// Client returns the session's HTTP client. It follows redirects.
func (s *Session) Client() *http.Client {
	return s.client
}

// noRedirectClient returns a client sharing this session's cookie jar with
// redirect-following disabled. The login POST's success signal is the 302/303
// status itself, so that response must not be followed.
func (s *Session) noRedirectClient() *http.Client {
	return &http.Client{
		Jar:     s.jar,
		Timeout: s.client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Cookies returns the session's cookies for the login URL as a name/value map
func (s *Session) Cookies() map[string]string {
	cookies := make(map[string]string)
	for _, c := range s.jar.Cookies(s.loginURL) {
		cookies[c.Name] = c.Value
	}
	return cookies
}

// SetCookies installs a name/value cookie map into the session's jar,
// scoped to the login URL's host.
func (s *Session) SetCookies(cookies map[string]string) {
	list := make([]*http.Cookie, 0, len(cookies))
	for name, value := range cookies {
		list = append(list, &http.Cookie{Name: name, Value: value, Path: "/"})
	}
	s.jar.SetCookies(s.loginURL, list)
}
