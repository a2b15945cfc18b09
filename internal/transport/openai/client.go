package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/totsar/lostfound/internal/domain"
	"github.com/totsar/lostfound/internal/metrics"
)

// Config holds the AI provider settings shared by both adapters.
type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	ChatModel      string
	Temperature    float32
	Logger         *zap.Logger
}

// clientPair holds the default client plus a fallback client whose transport
// ignores inherited proxy environment settings. Some deployments export
// malformed HTTP(S)_PROXY values that the default transport rejects; the
// fallback is tried exactly once per call before the failure surfaces.
type clientPair struct {
	primary  *openai.Client
	fallback *openai.Client
	logger   *zap.Logger
}

func newClientPair(cfg *Config) clientPair {
	build := func(hc *http.Client) *openai.Client {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		if hc != nil {
			clientCfg.HTTPClient = hc
		}
		return openai.NewClientWithConfig(clientCfg)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return clientPair{
		primary:  build(nil),
		fallback: build(noProxyHTTPClient()),
		logger:   logger,
	}
}

// do runs call against the primary client, retrying exactly once on the
// no-proxy fallback transport when the failure is a proxy configuration error.
func (p *clientPair) do(call func(*openai.Client) error) error {
	err := call(p.primary)
	if err != nil && isProxyConfigError(err) {
		metrics.ProviderTransportFallbacksTotal.Inc()
		p.logger.Warn("provider call rejected proxy configuration, retrying without environment proxy",
			zap.Error(err))
		err = call(p.fallback)
	}
	return err
}

// noProxyHTTPClient builds an HTTP client that never consults proxy
// environment variables.
func noProxyHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: nil,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// isProxyConfigError reports whether err stems from proxy configuration
// (e.g. "unsupported proxy scheme", malformed proxy URL).
func isProxyConfigError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "proxy")
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrProviderUnavailable.
func parseAPIError(call string, err error) error {
	wrap := domain.ErrProviderUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", call, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", call, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", call, err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (p *clientPair) healthCheck(ctx context.Context) error {
	err := p.do(func(c *openai.Client) error {
		_, callErr := c.ListModels(ctx)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
