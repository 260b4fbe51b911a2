package datadog

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/ensureops/ensure/internal/config"
	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

const defaultSite = "https://app.datadoghq.com"

// Monitor is one configured monitor as returned by the list endpoint.
type Monitor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateRequest is the JSON body of a monitor registration call. Optional
// fields are forwarded only when the caller declared them.
type CreateRequest struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Name  string `json:"name"`

	Message           string             `json:"message,omitempty"`
	Silenced          map[string]int64   `json:"silenced,omitempty"`
	NotifyNoData      *bool              `json:"notify_no_data,omitempty"`
	NoDataTimeframe   *int               `json:"no_data_timeframe,omitempty"`
	TimeoutH          *int               `json:"timeout_h,omitempty"`
	RenotifyInterval  *int               `json:"renotify_interval,omitempty"`
	EscalationMessage string             `json:"escalation_message,omitempty"`
	NotifyAudit       *bool              `json:"notify_audit,omitempty"`
	Thresholds        map[string]float64 `json:"thresholds,omitempty"`
}

// API is the surface of the monitoring service the adapter consumes.
type API interface {
	// ListMonitors enumerates every configured monitor.
	ListMonitors(ctx context.Context) ([]Monitor, error)
	// CreateMonitor registers a monitor. The call is synchronous; success
	// requires a 200 response whose body carries a non-null id.
	CreateMonitor(ctx context.Context, req CreateRequest) (int64, error)
}

// Client talks to the Datadog v1 monitor API. Credentials ride as query
// parameters on every call and are held only for the invocation.
type Client struct {
	baseURL    string
	apiKey     string
	appKey     string
	httpClient *http.Client
}

var _ API = (*Client)(nil)

// NewClient builds a Client from the declared API settings.
func NewClient(api config.DatadogAPI) *Client {
	site := api.Site
	if site == "" {
		site = defaultSite
	}
	if !strings.Contains(site, "://") {
		site = "https://" + site
	}

	return &Client{
		baseURL:    strings.TrimSuffix(site, "/"),
		apiKey:     api.APIKey,
		appKey:     api.AppKey,
		httpClient: &http.Client{},
	}
}

func (c *Client) monitorURL() string {
	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("application_key", c.appKey)
	return c.baseURL + "/api/v1/monitor?" + query.Encode()
}

func (c *Client) ListMonitors(ctx context.Context) ([]Monitor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.monitorURL(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't build monitor list request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "monitor list request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read monitor list response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var monitors []Monitor
	if err := json.Unmarshal(body, &monitors); err != nil {
		return nil, errors.Wrap(err, "couldn't decode monitor list")
	}

	return monitors, nil
}

func (c *Client) CreateMonitor(ctx context.Context, createReq CreateRequest) (int64, error) {
	payload, err := json.Marshal(createReq)
	if err != nil {
		return 0, errors.Wrap(err, "couldn't encode monitor body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.monitorURL(), bytes.NewReader(payload))
	if err != nil {
		return 0, errors.Wrap(err, "couldn't build monitor create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, ensureerrors.NewRemoteError("creating monitor", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, ensureerrors.NewRemoteError("creating monitor", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, ensureerrors.NewRemoteError("creating monitor",
			errors.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var created struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, ensureerrors.NewUnexpectedResponseError("couldn't decode monitor create response", strings.TrimSpace(string(body)))
	}
	if created.ID == nil {
		return 0, ensureerrors.NewUnexpectedResponseError("monitor create response contained no id", strings.TrimSpace(string(body)))
	}

	return *created.ID, nil
}
