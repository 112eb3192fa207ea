// Package httpapi loads layers and municipality records from the map's REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/heatbox-map/internal/core/model"
	"github.com/mohammed-shakir/heatbox-map/internal/core/observability"
	"github.com/mohammed-shakir/heatbox-map/internal/source"
)

const upstream = "layer_api"

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	base     *url.URL
	startNow func() time.Time // for tests
}

var _ source.Source = (*Client)(nil)

func New(logger *slog.Logger, client *http.Client, base string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", base)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{logger: logger, client: client, base: u, startNow: time.Now}, nil
}

func (c *Client) Origin() string { return c.base.String() }

func (c *Client) Fetch(ctx context.Context, cat model.Category) ([]byte, error) {
	ep := cat.Endpoint
	if ep == "" {
		ep = "/get_" + cat.Name
	}
	b, err := c.get(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", cat.Name, err)
	}
	return b, nil
}

// KommuneRecord is the municipality row served by /api/kommunen/{ags}.
type KommuneRecord struct {
	Name      string `json:"name"`
	AGS       string `json:"ags"`
	KWPStatus string `json:"kwp_status"`
}

func (c *Client) Kommune(ctx context.Context, ags string) (KommuneRecord, error) {
	var rec KommuneRecord
	b, err := c.get(ctx, "/api/kommunen/"+url.PathEscape(ags))
	if err != nil {
		return rec, fmt.Errorf("kommune %s: %w", ags, err)
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return rec, fmt.Errorf("decode kommune %s: %w", ags, err)
	}
	return rec, nil
}

// Energiemix returns one row per year: "jahr" plus the share per energy carrier.
func (c *Client) Energiemix(ctx context.Context, ags string) ([]map[string]any, error) {
	b, err := c.get(ctx, "/api/energiemix/"+url.PathEscape(ags))
	if err != nil {
		return nil, fmt.Errorf("energiemix %s: %w", ags, err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("decode energiemix %s: %w", ags, err)
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, p string) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(p, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := c.startNow()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	dur := time.Since(start)
	observability.ObserveUpstreamLatency(upstream, dur.Seconds())
	c.logger.DebugContext(ctx, "upstream call done", "path", u.Path, "status", resp.StatusCode, "duration", dur.String())

	if resp.StatusCode == http.StatusNotFound {
		return nil, source.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, string(b))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if err := errorBody(b); err != nil {
		return nil, err
	}
	return b, nil
}

// errorBody detects the API's failure shape: HTTP 200 with {"error": "..."}.
func errorBody(b []byte) error {
	t := bytes.TrimSpace(b)
	if len(t) == 0 || t[0] != '{' || !bytes.Contains(t, []byte(`"error"`)) {
		return nil
	}
	var e struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(t, &e); err != nil || e.Error == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(*e.Error), "not found") {
		return source.ErrNotFound
	}
	return errors.New("upstream error: " + *e.Error)
}
