// Package health checks a panel account before a full load, and a running
// panel-m3u server for container health probes.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/snapetech/panelm3u/internal/credentials"
	"github.com/snapetech/panelm3u/internal/httpclient"
	"github.com/snapetech/panelm3u/internal/provider"
)

// Account is the user_info block player_api.php returns when called without an action.
type Account struct {
	Status            provider.Status
	Auth              bool
	State             string // "Active", "Expired", "Banned", ...
	ExpiresAt         time.Time
	MaxConnections    int
	ActiveConnections int
}

// CheckPanel calls player_api.php with no action. A reachable panel that rejects the
// credentials answers 200 with auth=0, so Auth must be checked as well as Status.
func CheckPanel(ctx context.Context, client *http.Client, conn credentials.Connection) (Account, error) {
	if client == nil {
		client = httpclient.WithTimeout(httpclient.DefaultCategoryTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, conn.APIURL("", nil), nil)
	if err != nil {
		return Account{Status: provider.StatusUnreachable}, err
	}
	req.Header.Set("User-Agent", httpclient.DefaultUserAgent)
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	resp, err := client.Do(req)
	if err != nil {
		return Account{Status: provider.Classify(err)}, fmt.Errorf("panel unreachable: %w", err)
	}
	defer resp.Body.Close()
	if err := provider.CheckResponse(resp); err != nil {
		return Account{Status: provider.StatusBadStatus}, err
	}
	rc, err := httpclient.DecodeBody(resp)
	if err != nil {
		return Account{Status: provider.StatusMalformed}, err
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		return Account{Status: provider.Classify(err)}, err
	}
	var payload struct {
		UserInfo map[string]any `json:"user_info"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.UserInfo == nil {
		return Account{Status: provider.StatusMalformed}, fmt.Errorf("%w: no user_info", provider.ErrMalformed)
	}
	ui := payload.UserInfo
	a := Account{
		Status:            provider.StatusOK,
		Auth:              loose(ui["auth"]) == "1",
		State:             loose(ui["status"]),
		MaxConnections:    looseInt(ui["max_connections"]),
		ActiveConnections: looseInt(ui["active_cons"]),
	}
	if ts, err := strconv.ParseInt(loose(ui["exp_date"]), 10, 64); err == nil && ts > 0 {
		a.ExpiresAt = time.Unix(ts, 0).UTC()
	}
	return a, nil
}

// loose renders a JSON scalar that panels send as either a string or a number.
func loose(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(x)
	}
}

func looseInt(v any) int {
	n, _ := strconv.Atoi(loose(v))
	return n
}

// CheckServer hits /healthz and /metrics at baseURL and returns the first error or nil.
func CheckServer(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	for _, path := range []string{"/healthz", "/metrics"} {
		url := strings.TrimSuffix(baseURL, "/") + path
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s: HTTP %d", path, resp.StatusCode)
		}
	}
	return nil
}
