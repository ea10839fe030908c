// Package remote talks to the online leaderboard, a hierarchical JSON
// document store reached over its REST surface. Scores are appended with
// POST and read back with an ordered, limited GET.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/upward-game/leaderboard/internal/models"
)

// LeaderboardPath is the collection every score lives under.
const LeaderboardPath = "/leaderboard.json"

var ErrRemoteStatus = errors.New("leaderboard request failed")

// Prometheus metrics
var (
	submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upward_remote_submissions_total",
		Help: "Score submissions to the online leaderboard, by result",
	}, []string{"result"})

	fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upward_remote_fetches_total",
		Help: "Leaderboard fetches, by result (ok, empty, error)",
	}, []string{"result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upward_remote_request_duration_seconds",
		Help:    "Duration of requests to the online leaderboard",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	// Now is used for submission timestamps; defaults to time.Now.
	Now func() time.Time
}

// Client is the online leaderboard client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewClient creates a client for the database at cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger.Sugar(),
		now:        cfg.Now,
	}
}

// BaseURL returns the database URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// Submit uploads one score. It reports false on any transport error or
// non-2xx status and never retries.
func (c *Client) Submit(ctx context.Context, name string, seconds float64) bool {
	if err := c.submit(ctx, name, seconds); err != nil {
		c.logger.Warnw("Failed to upload leaderboard entry", "name", name, "time", seconds, "error", err)
		submissions.WithLabelValues("error").Inc()
		return false
	}
	submissions.WithLabelValues("ok").Inc()
	return true
}

// SubmitAsync runs Submit on its own goroutine and delivers the outcome on
// the returned channel, which receives exactly one value.
func (c *Client) SubmitAsync(ctx context.Context, name string, seconds float64) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		out <- c.Submit(ctx, name, seconds)
	}()
	return out
}

func (c *Client) submit(ctx context.Context, name string, seconds float64) error {
	rec := models.ScoreRecord{
		Name:      name,
		Time:      seconds,
		Timestamp: c.now().UTC().Unix(),
	}.WithDefaultName()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LeaderboardPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

// FetchTop reads up to limit scores, fastest first. The server is asked to
// order and limit, but the result is sorted and cut here as well. An empty
// slice with a nil error means the leaderboard is empty.
func (c *Client) FetchTop(ctx context.Context, limit int) ([]models.ScoreRecord, error) {
	if limit < 0 {
		limit = 0
	}
	url := c.baseURL + LeaderboardPath + `?orderBy=%22time%22&limitToFirst=` + strconv.Itoa(limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fetches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		c.logger.Warnw("Failed to load leaderboard", "url", url, "error", err)
		fetches.WithLabelValues("error").Inc()
		return nil, err
	}

	records := parseLeaderboard(body, limit)
	if len(records) == 0 {
		fetches.WithLabelValues("empty").Inc()
	} else {
		fetches.WithLabelValues("ok").Inc()
	}
	return records, nil
}

// FetchResult is what FetchTopAsync delivers.
type FetchResult struct {
	Records []models.ScoreRecord
	Err     error
}

// FetchTopAsync runs FetchTop on its own goroutine.
func (c *Client) FetchTopAsync(ctx context.Context, limit int) <-chan FetchResult {
	out := make(chan FetchResult, 1)
	go func() {
		records, err := c.FetchTop(ctx, limit)
		out <- FetchResult{Records: records, Err: err}
	}()
	return out
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %s", ErrRemoteStatus, req.Method, req.URL.Path, resp.Status)
	}
	return body, nil
}
