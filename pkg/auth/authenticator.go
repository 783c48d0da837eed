package auth

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyscraper/pkg/logger"
)

// TokenFieldName is the name of the hidden CSRF input on the login page
const TokenFieldName = "authenticity_token"

// State tracks the authenticator's progress through the login protocol
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateTokenFetched    State = "token_fetched"
	StateAuthenticated   State = "authenticated"
	StateFailed          State = "failed"
)

// Credentials are the login settings, supplied at startup and immutable
type Credentials struct {
	LoginURL string
	Username string
	Password string
}

// Authenticator performs the two-step CSRF login protocol and produces an
// authenticated Session. A valid cached session short-circuits the login
// entirely. There is no retry; any failure is terminal for the run.
type Authenticator struct {
	creds     Credentials
	cache     *SessionCache
	userAgent string
	timeout   time.Duration
	logger    logger.Logger
	state     State
}

// NewAuthenticator creates an authenticator for the given credentials
func NewAuthenticator(creds Credentials, cache *SessionCache, userAgent string, timeout time.Duration, log logger.Logger) *Authenticator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Authenticator{
		creds:     creds,
		cache:     cache,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    log,
		state:     StateUnauthenticated,
	}
}

// State returns the authenticator's current state
func (a *Authenticator) State() State {
	return a.state
}

// Authenticate returns an authenticated session, either restored from the
// session cache or produced by a fresh login.
func (a *Authenticator) Authenticate() (*Session, error) {
	session, err := NewSession(a.creds.LoginURL, a.timeout)
	if err != nil {
		a.state = StateFailed
		return nil, err
	}

	if cookies, ok := a.cache.Load(); ok {
		session.SetCookies(cookies)
		a.state = StateAuthenticated
		return session, nil
	}

	a.logger.Info("no valid cached session found, performing a fresh login")

	token, err := a.fetchToken(session)
	if err != nil {
		a.state = StateFailed
		return nil, err
	}
	a.state = StateTokenFetched

	if err := a.performLogin(session, token); err != nil {
		a.state = StateFailed
		return nil, err
	}

	// Authentication succeeded regardless of cache durability; a failed
	// cache write is logged and swallowed.
	if err := a.cache.Save(session.Cookies()); err != nil {
		a.logger.WithError(err).Error("failed to save session cache")
	}

	a.state = StateAuthenticated
	return session, nil
}

// fetchToken fetches the login page and extracts the CSRF authenticity token
func (a *Authenticator) fetchToken(session *Session) (string, error) {
	a.logger.Info("fetching login page to retrieve authenticity token")

	req, err := http.NewRequest(http.MethodGet, a.creds.LoginURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create login page request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := session.Client().Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch login page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("login page returned status %d", resp.StatusCode)
	}

	token, err := ExtractFormToken(resp.Body, TokenFieldName)
	if err != nil {
		return "", err
	}

	a.logger.Info("authenticity token retrieved successfully")
	return token, nil
}

// performLogin posts the credentials and the CSRF token. Success is defined
// only as a 302/303 response: the post-login redirect. Redirect-following is
// disabled so that status is observable.
func (a *Authenticator) performLogin(session *Session, token string) error {
	payload := url.Values{}
	payload.Set(TokenFieldName, token)
	payload.Set("user[email]", a.creds.Username)
	payload.Set("user[password]", a.creds.Password)
	payload.Set("user[remember_me]", "1")

	req, err := http.NewRequest(http.MethodPost, a.creds.LoginURL, strings.NewReader(payload.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Referer", a.creds.LoginURL)

	a.logger.Info("attempting to post login credentials")

	resp, err := session.noRedirectClient().Do(req)
	if err != nil {
		return fmt.Errorf("login POST request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		a.logger.ErrorWithFields("login failed", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return fmt.Errorf("login failed with status code %d", resp.StatusCode)
	}

	a.logger.InfoWithFields("login successful", map[string]interface{}{
		"redirect": resp.Header.Get("Location"),
	})
	return nil
}
