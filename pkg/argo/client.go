// Package argo fetches Argo float profiles from an ERDDAP tabledap server,
// the same backend argopy uses by default.
package argo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"floatchat-be/pkg/ocean"
)

const (
	DefaultBaseURL = "https://erddap.ifremer.fr/erddap"
	DefaultDataset = "ArgoFloats"
)

// Failure classes, shared with the fetch orchestrator.
var (
	ErrTimeout   = ocean.ErrFetchTimeout
	ErrNoData    = ocean.ErrNoData
	ErrTransport = ocean.ErrFetchTransport
)

// Variables requested from the dataset, in output order.
var defaultVariables = []string{
	"platform_number", "cycle_number", "time", "latitude", "longitude",
	"pres", "temp", "psal",
}

// ERDDAP answers an empty selection with this message, sometimes under a 500.
const noMatchMessage = "Your query produced no matching results"

type Client struct {
	baseURL   string
	dataset   string
	variables []string
	client    *http.Client
}

func NewClient(baseURL, dataset string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		dataset:   dataset,
		variables: defaultVariables,
		client:    &http.Client{Timeout: timeout},
	}
}

type tableResponse struct {
	Table struct {
		ColumnNames []string `json:"columnNames"`
		ColumnTypes []string `json:"columnTypes"`
		Rows        [][]any  `json:"rows"`
	} `json:"table"`
}

// QueryURL builds the tabledap request for a region.
func (c *Client) QueryURL(r ocean.Region) string {
	constraints := []string{
		fmt.Sprintf("longitude>=%g", r.LonMin),
		fmt.Sprintf("longitude<=%g", r.LonMax),
		fmt.Sprintf("latitude>=%g", r.LatMin),
		fmt.Sprintf("latitude<=%g", r.LatMax),
		fmt.Sprintf("pres>=%g", r.DepthMin),
		fmt.Sprintf("pres<=%g", r.DepthMax),
	}
	if r.DateStart != "" {
		constraints = append(constraints, "time>="+r.DateStart+"T00:00:00Z")
	}
	if r.DateEnd != "" {
		constraints = append(constraints, "time<="+r.DateEnd+"T23:59:59Z")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s/tabledap/%s.json?%s", c.baseURL, c.dataset, strings.Join(c.variables, ","))
	for _, con := range constraints {
		b.WriteString("&")
		b.WriteString(url.QueryEscape(con))
	}
	return b.String()
}

// Fetch downloads all rows in the region. Column names are upper-cased to
// the argopy convention (LATITUDE, TEMP, PSAL, ...).
func (c *Client) Fetch(ctx context.Context, r ocean.Region) (*ocean.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.QueryURL(r), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	var tr tableResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode erddap table: %w", err)
	}
	if len(tr.Table.Rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, noMatchMessage)
	}

	cols := make([]string, len(tr.Table.ColumnNames))
	for i, name := range tr.Table.ColumnNames {
		cols[i] = strings.ToUpper(name)
	}
	return &ocean.Table{Columns: cols, Rows: tr.Table.Rows}, nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

func classifyStatus(status int, body []byte) error {
	snippet := string(body)
	if len(snippet) > 300 {
		snippet = snippet[:300]
	}
	switch {
	case status == http.StatusNotFound || strings.Contains(snippet, noMatchMessage):
		return fmt.Errorf("%w: erddap status %d", ErrNoData, status)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: erddap status %d", ErrTimeout, status)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: erddap status %d: %s", ErrTransport, status, snippet)
	default:
		return fmt.Errorf("erddap rejected request: status %d: %s", status, snippet)
	}
}
