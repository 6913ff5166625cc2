package stages

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mortenoh/uptimer/internal/uptimer"
)

// userAgent avoids being blocked by sites that reject bot traffic.
const userAgent = "Mozilla/5.0 (compatible; Uptimer/1.0; +https://github.com/mortenoh/uptimer)"

// maxBody caps how much of a response body is kept in the check context.
const maxBody = 1 << 20 // 1 MB

const (
	defaultHTTPTimeout = 10 * time.Second
	maxStageTimeout    = 60 * time.Second
)

// HTTPStage performs a GET with redirect following and seeds the check
// context with the response body, headers and headline values.
type HTTPStage struct {
	timeout time.Duration
	headers map[string]string
}

func newHTTPStage(opts map[string]any) (Stage, error) {
	timeout := time.Duration(optFloat(opts, "timeout", defaultHTTPTimeout.Seconds()) * float64(time.Second))
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	if timeout > maxStageTimeout {
		timeout = maxStageTimeout
	}
	return &HTTPStage{timeout: timeout, headers: optStringMap(opts, "headers")}, nil
}

func (s *HTTPStage) Name() string           { return "http" }
func (s *HTTPStage) Description() string    { return "HTTP check with redirect following" }
func (s *HTTPStage) IsNetworkStage() bool   { return true }
func (s *HTTPStage) Timeout() time.Duration { return s.timeout }

func (s *HTTPStage) Check(ctx context.Context, url string, verbose bool, cc *uptimer.CheckContext) *Result {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	type hop struct {
		Status   int    `json:"status"`
		Location string `json:"location"`
	}
	var redirects []hop

	client := &http.Client{
		Timeout: s.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			prev := req.Response
			if prev != nil {
				redirects = append(redirects, hop{
					Status:   prev.StatusCode,
					Location: prev.Header.Get("Location"),
				})
			}
			return nil
		},
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return down("transport_error", map[string]any{"error": err.Error()})
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return &Result{
			Status:    uptimer.StatusDown,
			Message:   "transport_error",
			ElapsedMS: float64(time.Since(start)) / float64(time.Millisecond),
			Details:   map[string]any{"error": err.Error()},
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	elapsedMS := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return &Result{
			Status:    uptimer.StatusDown,
			Message:   "transport_error",
			ElapsedMS: elapsedMS,
			Details:   map[string]any{"error": err.Error()},
		}
	}

	details := map[string]any{
		"status_code":  resp.StatusCode,
		"http_version": resp.Proto,
		"final_url":    resp.Request.URL.String(),
	}
	if server := resp.Header.Get("Server"); server != "" {
		details["server"] = server
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		details["content_type"] = ct
	}
	if len(redirects) > 0 {
		details["redirects"] = redirects
	}

	// Seed the context for subsequent extractor and assertion stages.
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	cc.ResponseBody = string(body)
	cc.SetHeaders(headers)
	cc.StatusCode = resp.StatusCode
	cc.ElapsedMS = elapsedMS
	cc.Store("final_url", resp.Request.URL.String())
	cc.Store("http_version", resp.Proto)
	cc.Store("server", resp.Header.Get("Server"))
	cc.Store("content_type", resp.Header.Get("Content-Type"))
	if len(redirects) > 0 {
		cc.Store("redirects", len(redirects))
	}

	status := uptimer.StatusUp
	if resp.StatusCode >= 400 {
		status = uptimer.StatusDegraded
	}
	return &Result{
		Status:    status,
		Message:   strconv.Itoa(resp.StatusCode),
		ElapsedMS: elapsedMS,
		Details:   details,
	}
}

func registerHTTP(r *Registry) {
	r.Register(Info{
		Type:           "http",
		Name:           "HTTP",
		Description:    "HTTP check with redirect following",
		IsNetworkStage: true,
		Options: []Option{
			{Name: "timeout", Label: "Timeout", Type: "number", Default: 10, Description: "Request timeout in seconds"},
			{Name: "headers", Label: "Custom Headers", Type: "object", Description: "Custom HTTP headers to send"},
		},
	}, newHTTPStage)
}
