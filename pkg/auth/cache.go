package auth

import (
	"encoding/json"
	"os"
	"time"

	"storyscraper/pkg/logger"
)

// CacheRecord is the persisted form of a session: the cookie name/value map
// plus the time the record was written, as a unix timestamp.
type CacheRecord struct {
	Cookies   map[string]string `json:"cookies"`
	CreatedAt int64             `json:"created_at"`
}

// SessionCache persists session cookies across runs so that repeated logins
// can be avoided. A record older than the TTL is treated as absent and
// deleted. Cache failures are never fatal; the cache is an optimization.
type SessionCache struct {
	path   string
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewSessionCache creates a session cache backed by the given file path
func NewSessionCache(path string, ttl time.Duration, log logger.Logger) *SessionCache {
	if log == nil {
		log = logger.GetLogger()
	}
	return &SessionCache{
		path:   path,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Load reads the cached cookies. It fails closed: a missing file, unparsable
// content, or an expired record all return ok=false, and expired or corrupt
// records are deleted so they are not re-parsed on every run.
func (c *SessionCache) Load() (map[string]string, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.WithError(err).Warn("failed to read session cache")
		}
		return nil, false
	}

	var record CacheRecord
	if err := json.Unmarshal(data, &record); err != nil {
		c.logger.WithError(err).Error("session cache is corrupt, deleting")
		c.remove()
		return nil, false
	}

	if record.CreatedAt == 0 || len(record.Cookies) == 0 {
		c.logger.Error("session cache is malformed, deleting")
		c.remove()
		return nil, false
	}

	age := c.now().Sub(time.Unix(record.CreatedAt, 0))
	if age > c.ttl {
		c.logger.InfoWithFields("cached session has expired, deleting", map[string]interface{}{
			"age": age,
		})
		c.remove()
		return nil, false
	}

	c.logger.Info("authenticated session loaded from cache")
	return record.Cookies, true
}

// Save writes the given cookies plus the current timestamp, overwriting any
// existing record. The write is atomic (temp file + rename).
func (c *SessionCache) Save(cookies map[string]string) error {
	record := CacheRecord{
		Cookies:   cookies,
		CreatedAt: c.now().Unix(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return err
	}

	c.logger.Info("session cookies saved to cache")
	return nil
}

// Delete removes the cache file if present
func (c *SessionCache) Delete() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *SessionCache) remove() {
	if err := c.Delete(); err != nil {
		c.logger.WithError(err).Warn("failed to delete session cache")
	}
}
