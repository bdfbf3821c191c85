// Package client talks to a running deployctl server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rflorenc/deploy-ledger/internal/contract"
	"github.com/rflorenc/deploy-ledger/internal/dbms"
	"github.com/rflorenc/deploy-ledger/internal/ledger"
)

// ErrNotFound is matched by a StatusError carrying HTTP 404.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Options configures transport security for a Client.
type Options struct {
	Insecure bool
	CACert   string
	Timeout  time.Duration
}

// Client is an HTTP client for the ledger API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts Options) *Client {
	transport := &http.Transport{}
	if opts.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if opts.CACert != "" {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM([]byte(opts.CACert)) {
			transport.TLSClientConfig = &tls.Config{RootCAs: pool}
		}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
	}
}

// LogRow is the listing form of a stored install log.
type LogRow struct {
	ID            int    `json:"id"`
	Package       string `json:"package"`
	ObjectType    string `json:"object_type"`
	Status        string `json:"status"`
	ArchiveRef    string `json:"archive_ref"`
	ArchiveExists bool   `json:"archive_exists"`
	Transactions  int    `json:"transactions"`
}

// do sends one request and returns the body of a 2xx answer.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return truncate(string(data), 200)
}

func (c *Client) getJSON(ctx context.Context, path string, dest interface{}) error {
	data, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func sendXML[T any](ctx context.Context, c *Client, method, path string, e contract.Encoder, dec contract.Decoder[T]) (T, error) {
	var zero T
	var body []byte
	if e != nil {
		var err error
		if body, err = contract.Marshal(e); err != nil {
			return zero, err
		}
	}
	data, err := c.do(ctx, method, path, "application/xml", body)
	if err != nil {
		return zero, err
	}
	return contract.Unmarshal(data, dec)
}

// PushLog stores an install log and returns it with its server-assigned id.
func (c *Client) PushLog(ctx context.Context, s *ledger.LogSummary) (*ledger.LogSummary, error) {
	if s == nil {
		return nil, contract.Required("summary")
	}
	return sendXML(ctx, c, http.MethodPost, "/api/logs", s, ledger.DecodeLogSummary)
}

// GetLog fetches one stored log by id.
func (c *Client) GetLog(ctx context.Context, id int) (*ledger.LogSummary, error) {
	return sendXML[*ledger.LogSummary](ctx, c, http.MethodGet, "/api/logs/"+strconv.Itoa(id), nil, ledger.DecodeLogSummary)
}

// ListLogs lists stored logs, all of them when pkg is empty.
func (c *Client) ListLogs(ctx context.Context, pkg string) ([]LogRow, error) {
	path := "/api/logs"
	if pkg != "" {
		path += "?" + url.Values{"package": {pkg}}.Encode()
	}
	var rows []LogRow
	if err := c.getJSON(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// PurgeArchive records that the archive behind log id is gone.
func (c *Client) PurgeArchive(ctx context.Context, id int) (LogRow, error) {
	var row LogRow
	data, err := c.do(ctx, http.MethodPost, "/api/logs/"+strconv.Itoa(id)+"/purge", "", nil)
	if err != nil {
		return row, err
	}
	err = json.Unmarshal(data, &row)
	return row, err
}

// Resolve asks the server to translate a datasource name for sourceServer.
func (c *Client) Resolve(ctx context.Context, sourceServer, source string) (string, error) {
	body, err := json.Marshal(map[string]string{"source_server": sourceServer, "source": source})
	if err != nil {
		return "", err
	}
	data, err := c.do(ctx, http.MethodPost, "/api/dbms/resolve", "application/json", body)
	if err != nil {
		return "", err
	}
	var resp struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	return resp.Target, nil
}

// GetDbmsMap fetches the datasource table for server.
func (c *Client) GetDbmsMap(ctx context.Context, server string) (*dbms.Map, error) {
	return sendXML[*dbms.Map](ctx, c, http.MethodGet, "/api/dbms/"+url.PathEscape(server), nil, dbms.DecodeMap)
}

// PutDbmsMap replaces the server's table for m.SourceServer().
func (c *Client) PutDbmsMap(ctx context.Context, m *dbms.Map) (*dbms.Map, error) {
	if m == nil {
		return nil, contract.Required("map")
	}
	return sendXML(ctx, c, http.MethodPut, "/api/dbms/"+url.PathEscape(m.SourceServer()), m, dbms.DecodeMap)
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	var servers []string
	return c.getJSON(ctx, "/api/dbms", &servers)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
