// Package virustotal talks to a VirusTotal-compatible URL scanning API:
// submit a URL, then poll the analysis with backoff until it completes.
package virustotal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL       = "https://www.virustotal.com/api/v3"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxWait       = 5 * time.Minute
	DefaultPollStep      = 15 * time.Second
	DefaultMaxPoll       = 60 * time.Second
	DefaultThrottleFloor = 30 * time.Second
	DefaultGrowthFactor  = 1.5
	DefaultHeadStart     = 2 * time.Second

	StatusCompleted = "completed"
	StatusError     = "error"

	maxErrorBody = 2048
)

// Config configures a Client. Zero values fall back to the defaults above.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxWait       time.Duration
	PollStep      time.Duration
	MaxPoll       time.Duration
	ThrottleFloor time.Duration
	GrowthFactor  float64
	HeadStart     time.Duration

	// RequestsPerMinute paces every outgoing request. 0 disables pacing.
	RequestsPerMinute int

	HTTPClient *http.Client
}

// Analysis is the decoded state of a remote analysis.
type Analysis struct {
	ID     string
	Status string
	// Date is the analysis time in unix seconds.
	Date  int64
	Stats AnalysisStats
	Error string
}

type AnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
	Timeout    int `json:"timeout"`
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.PollStep <= 0 {
		cfg.PollStep = DefaultPollStep
	}
	if cfg.MaxPoll <= 0 {
		cfg.MaxPoll = DefaultMaxPoll
	}
	if cfg.ThrottleFloor <= 0 {
		cfg.ThrottleFloor = DefaultThrottleFloor
	}
	if cfg.GrowthFactor < 1 {
		cfg.GrowthFactor = DefaultGrowthFactor
	}
	if cfg.HeadStart <= 0 {
		cfg.HeadStart = DefaultHeadStart
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: limiter,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && strings.TrimSpace(c.cfg.APIKey) != ""
}

type submitResponse struct {
	Data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

type analysisResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status string        `json:"status"`
			Date   int64         `json:"date"`
			Stats  AnalysisStats `json:"stats"`
			Error  string        `json:"error"`
		} `json:"attributes"`
	} `json:"data"`
}

// Submit queues rawURL for analysis and returns the analysis id.
func (c *Client) Submit(ctx context.Context, rawURL string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", &SubmissionError{Err: err}
	}

	form := url.Values{"url": {rawURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/urls", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &SubmissionError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-apikey", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &SubmissionError{Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SubmissionError{StatusCode: resp.StatusCode, Detail: readErrorBody(resp.Body)}
	}

	var payload submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &SubmissionError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload.Data.ID == "" {
		return "", &SubmissionError{Detail: "response carried no analysis id"}
	}
	return payload.Data.ID, nil
}

// fetchAnalysis performs one poll. A nil Analysis with throttled=true means
// the authority asked us to slow down.
func (c *Client) fetchAnalysis(ctx context.Context, jobID string) (analysis *Analysis, throttled bool, err error) {
	if err := c.wait(ctx); err != nil {
		return nil, false, err
	}

	endpoint := c.cfg.BaseURL + "/analyses/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, &RemoteAnalysisError{JobID: jobID, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-apikey", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, &RemoteAnalysisError{JobID: jobID, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &RemoteAnalysisError{JobID: jobID, StatusCode: resp.StatusCode, Detail: readErrorBody(resp.Body)}
	}

	var payload analysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, &RemoteAnalysisError{JobID: jobID, Err: fmt.Errorf("decode response: %w", err)}
	}

	attrs := payload.Data.Attributes
	return &Analysis{
		ID:     jobID,
		Status: attrs.Status,
		Date:   attrs.Date,
		Stats:  attrs.Stats,
		Error:  attrs.Error,
	}, false, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func readErrorBody(body io.Reader) string {
	content, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	return strings.TrimSpace(string(content))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
