// Package credentials turns the connection string a user pastes (usually a
// get.php playlist link) into the host/username/password triple every other
// component works from.
package credentials

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidInput is returned for connection strings that cannot be used.
// No network I/O is attempted before this is reported.
var ErrInvalidInput = errors.New("invalid connection string")

// APIPath is the canonical JSON API entry point.
const APIPath = "player_api.php"

// aliasPaths are alternate entry points panels hand out; they are rewritten to APIPath.
var aliasPaths = []string{"get.php", "xmltv.php", "panel_api.php"}

// Connection is the resolved panel account. Host is scheme://authority without a trailing slash.
type Connection struct {
	Host     string
	Username string
	Password string
}

// Resolve parses raw into a Connection. It never panics; any unusable input
// yields an error wrapping ErrInvalidInput.
func Resolve(raw string) (Connection, error) {
	s := strings.TrimSpace(raw)
	if !hasHTTPScheme(s) {
		return Connection{}, fmt.Errorf("%w: must start with http:// or https://", ErrInvalidInput)
	}
	u, err := url.Parse(normalizePath(s))
	if err != nil {
		return Connection{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if u.Host == "" {
		return Connection{}, fmt.Errorf("%w: missing host", ErrInvalidInput)
	}
	q := u.Query()
	user := q.Get("username")
	pass := q.Get("password")
	if user == "" || pass == "" {
		return Connection{}, fmt.Errorf("%w: username and password query parameters are required", ErrInvalidInput)
	}
	return Connection{
		Host:     strings.ToLower(u.Scheme) + "://" + u.Host,
		Username: user,
		Password: pass,
	}, nil
}

// hasHTTPScheme reports whether s starts with http:// or https:// (any case).
func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// normalizePath rewrites a known alias entry point to APIPath by suffix substitution on the path part.
func normalizePath(s string) string {
	path, query, hasQuery := strings.Cut(s, "?")
	for _, alias := range aliasPaths {
		if strings.HasSuffix(strings.ToLower(path), "/"+alias) {
			path = path[:len(path)-len(alias)] + APIPath
			break
		}
	}
	if hasQuery {
		return path + "?" + query
	}
	return path
}

// APIURL returns the player_api.php URL for action. extra may be nil.
func (c Connection) APIURL(action string, extra url.Values) string {
	q := url.Values{}
	q.Set("username", c.Username)
	q.Set("password", c.Password)
	if action != "" {
		q.Set("action", action)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return c.Host + "/" + APIPath + "?" + encodeOrdered(q)
}

// ExportURL returns the bulk export (get.php, m3u_plus, ts) URL.
func (c Connection) ExportURL() string {
	return c.Host + "/get.php?username=" + url.QueryEscape(c.Username) +
		"&password=" + url.QueryEscape(c.Password) + "&type=m3u_plus&output=ts"
}

// Redacted is the connection rendered for logs.
func (c Connection) Redacted() string {
	return c.Host + " (user " + c.Username + ")"
}

// encodeOrdered keeps username, password and action first so URLs read the way panels document them.
func encodeOrdered(q url.Values) string {
	var b strings.Builder
	write := func(k string) {
		for _, v := range q[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	lead := []string{"username", "password", "action"}
	for _, k := range lead {
		write(k)
	}
	rest := make([]string, 0, len(q))
	for k := range q {
		if k == "username" || k == "password" || k == "action" {
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	for _, k := range rest {
		write(k)
	}
	return b.String()
}
