// Package session keeps loaded catalogs in memory between the load, select and
// generate steps of the UI. Nothing is persisted.
package session

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/sha3"

	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/pipeline"
)

const (
	idPrefix   = "id:"
	connPrefix = "conn:"
)

// Store is a TTL cache of sessions, addressable by id and by connection.
type Store struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewStore returns a store whose entries expire ttl after their last access.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cleanup := ttl / 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &Store{c: cache.New(ttl, cleanup), ttl: ttl}
}

// Key identifies a connection without exposing its password.
func Key(conn credentials.Connection) string {
	sum := sha3.Sum224([]byte(conn.Host + "\x00" + conn.Username + "\x00" + conn.Password))
	return hex.EncodeToString(sum[:])
}

// Put stores s under a new id and makes it the current session for its connection.
func (st *Store) Put(s *pipeline.Session) string {
	id := uuid.NewString()
	st.c.Set(idPrefix+id, s, st.ttl)
	st.c.Set(connPrefix+Key(s.Conn), id, st.ttl)
	return id
}

// Get returns the session for id and extends its lifetime.
func (st *Store) Get(id string) (*pipeline.Session, bool) {
	v, ok := st.c.Get(idPrefix + id)
	if !ok {
		return nil, false
	}
	s := v.(*pipeline.Session)
	st.c.Set(idPrefix+id, s, st.ttl)
	return s, true
}

// ForConnection returns the current session loaded from conn, if still cached.
func (st *Store) ForConnection(conn credentials.Connection) (string, *pipeline.Session, bool) {
	v, ok := st.c.Get(connPrefix + Key(conn))
	if !ok {
		return "", nil, false
	}
	id := v.(string)
	s, ok := st.Get(id)
	if !ok {
		return "", nil, false
	}
	return id, s, true
}

// Delete drops a session.
func (st *Store) Delete(id string) {
	if s, ok := st.Get(id); ok {
		key := connPrefix + Key(s.Conn)
		if cur, ok := st.c.Get(key); ok && cur.(string) == id {
			st.c.Delete(key)
		}
	}
	st.c.Delete(idPrefix + id)
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	n := 0
	for k := range st.c.Items() {
		if len(k) > len(idPrefix) && k[:len(idPrefix)] == idPrefix {
			n++
		}
	}
	return n
}
