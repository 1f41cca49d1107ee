package api

import (
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/fpang/product-craft/internal/editor"
)

// SessionRegistry holds live editing sessions in memory. A session expires
// after ttl without a lookup.
type SessionRegistry struct {
	cache *cache.Cache
}

// NewSessionRegistry creates a registry whose sessions expire after ttl of inactivity.
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	c := cache.New(ttl, 10*time.Minute)
	c.OnEvicted(func(id string, _ interface{}) {
		log.Debug().Str("session", id).Msg("Session expired")
	})
	return &SessionRegistry{cache: c}
}

// Add registers a session under its ID.
func (r *SessionRegistry) Add(s *editor.Session) {
	r.cache.Set(s.ID(), s, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (r *SessionRegistry) Get(id string) (*editor.Session, bool) {
	v, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s, ok := v.(*editor.Session)
	if !ok {
		return nil, false
	}
	r.cache.Set(id, s, cache.DefaultExpiration)
	return s, true
}

// Delete closes a session.
func (r *SessionRegistry) Delete(id string) {
	r.cache.Delete(id)
}

// Count returns the number of live sessions, including expired ones not yet swept.
func (r *SessionRegistry) Count() int {
	return r.cache.ItemCount()
}
