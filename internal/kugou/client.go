package kugou

import (
	"bytes"
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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 10 * time.Second
	StatusOK       = 200
	userAgent      = "lyricsync/1.0"
)

var ErrStatus = errors.New("unexpected http status")

// ID accepts both JSON strings and numbers; mirrors disagree on the type.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

type Candidate struct {
	ID        ID     `json:"id"`
	AccessKey string `json:"accesskey"`
	Song      string `json:"song"`
	Singer    string `json:"singer"`
	Duration  int64  `json:"duration"`
	Score     int    `json:"score"`
}

type SearchResponse struct {
	Status     int         `json:"status"`
	ErrMsg     string      `json:"errmsg"`
	Candidates []Candidate `json:"candidates"`
}

type LyricResponse struct {
	Status        int    `json:"status"`
	Format        string `json:"fmt"`
	Charset       string `json:"charset"`
	DecodeContent string `json:"decodeContent"`
}

// SearchPath builds the lyric search query for a track content hash.
func SearchPath(hash string) string {
	query := url.Values{}
	query.Set("hash", hash)
	return "/search/lyric?" + query.Encode()
}

// LyricPath builds the decoded lyric content query for a search candidate.
func LyricPath(id string, accessKey string) string {
	query := url.Values{}
	query.Set("id", id)
	query.Set("accesskey", accessKey)
	query.Set("decode", "true")
	return "/lyric?" + query.Encode()
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid api url %q: missing scheme or host", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}

	return &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Get issues a GET for path (relative to the base url, or absolute) and
// decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	requestURL, err := c.resolve(path)
	if err != nil {
		return err
	}

	logger := log.With().Str("component", "kugou").Logger()
	logger.Debug().Str("url", requestURL).Msg("requesting")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logEvent(&logger, resp.StatusCode).Str("url", requestURL).Msg("request rejected")
		return fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return fmt.Errorf("failed to decode response json: %w", err)
	}

	return nil
}

// Search is a typed convenience over Get for CLI use.
func (c *Client) Search(ctx context.Context, hash string) (*SearchResponse, error) {
	var resp SearchResponse
	err := c.Get(ctx, SearchPath(hash), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Lyric(ctx context.Context, id string, accessKey string) (*LyricResponse, error) {
	var resp LyricResponse
	err := c.Get(ctx, LyricPath(id, accessKey), &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	base := *c.baseURL
	base.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	base.RawQuery = ref.RawQuery
	return base.String(), nil
}

func logEvent(logger *zerolog.Logger, status int) *zerolog.Event {
	if status >= 500 {
		return logger.Error().Int("status", status)
	}
	return logger.Warn().Int("status", status)
}
