package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const defaultHTTPTimeout = 10 * time.Second

// maxResponseBytes bounds the detector response body (4MB).
const maxResponseBytes = 4 << 20

// HTTPDetector delegates detection to an external service.
//
// Request:  POST {endpoint} {"text": "..."}
// Response: {"findings": [{"start":0,"end":4,"type":"NAME","confidence":0.9}]}
type HTTPDetector struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPDetector creates a client for endpoint. A zero timeout uses 10s.
func NewHTTPDetector(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPDetector {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDetector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type detectRequest struct {
	Text string `json:"text"`
}

type detectResponse struct {
	Findings []Finding `json:"findings"`
}

// DetectPII implements Detector. Findings outside the text are dropped.
func (d *HTTPDetector) DetectPII(ctx context.Context, text string) ([]Finding, error) {
	body, err := json.Marshal(detectRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode pii request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create pii request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pii detector request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("pii detector returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pii response: %w", err)
	}

	n := len(out.Findings)
	findings := validFindings(out.Findings, utf8.RuneCountInString(text))
	if dropped := n - len(findings); dropped > 0 {
		d.logger.Warn("dropped out-of-range pii findings", zap.Int("dropped", dropped))
	}
	if findings == nil {
		findings = []Finding{}
	}
	return findings, nil
}
