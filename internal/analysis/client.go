package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/metrics"
)

// Client talks to the frame-analysis service. Analysis is best-effort: when
// credentials are missing or the provider throttles us, Analyze returns a
// degraded but well-formed result instead of an error, so the camera detail
// flow never breaks on an upstream outage.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	now        func() time.Time
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		now: time.Now,
	}
}

type analyzeRequest struct {
	Frame      []byte `json:"frame"`
	CameraName string `json:"camera_name"`
	Location   string `json:"location"`
}

type analyzeResponse struct {
	Summary         string   `json:"summary"`
	PersonCount     int      `json:"person_count"`
	ThreatLevel     string   `json:"threat_level"`
	DetectedObjects []string `json:"detected_objects"`
	Anomalies       []string `json:"anomalies"`
}

// Analyze submits one JPEG frame. The returned result always has a non-empty
// summary, a valid threat level and non-nil lists.
func (c *Client) Analyze(ctx context.Context, frame []byte, cameraName, location string) data.AnalysisResult {
	if c.APIKey == "" {
		return c.degraded("Analysis unavailable: no API key configured")
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(analyzeRequest{
		Frame:      frame,
		CameraName: cameraName,
		Location:   location,
	}); err != nil {
		return c.degraded(fmt.Sprintf("Analysis unavailable: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/analyze", &buf)
	if err != nil {
		return c.degraded(fmt.Sprintf("Analysis unavailable: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("analysis: request failed: %v", err)
		return c.degraded("Analysis unavailable: service unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return c.degraded("Analysis unavailable: provider quota exhausted")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return c.degraded("Analysis unavailable: API key rejected")
	case resp.StatusCode >= 400:
		log.Printf("analysis: service error status=%d", resp.StatusCode)
		return c.degraded(fmt.Sprintf("Analysis unavailable: service error (%d)", resp.StatusCode))
	}

	var body analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("analysis: bad response body: %v", err)
		return c.degraded("Analysis unavailable: malformed response")
	}

	metrics.AnalysisCallsTotal.WithLabelValues("ok").Inc()
	return data.AnalysisResult{
		Summary:         body.Summary,
		PersonCount:     body.PersonCount,
		ThreatLevel:     normalizeThreat(body.ThreatLevel),
		DetectedObjects: orEmpty(body.DetectedObjects),
		Anomalies:       orEmpty(body.Anomalies),
		AnalyzedAt:      c.now(),
	}
}

func (c *Client) degraded(summary string) data.AnalysisResult {
	metrics.AnalysisCallsTotal.WithLabelValues("degraded").Inc()
	return data.AnalysisResult{
		Summary:         summary,
		PersonCount:     0,
		ThreatLevel:     data.ThreatLow,
		DetectedObjects: []string{},
		Anomalies:       []string{},
		AnalyzedAt:      c.now(),
	}
}

// normalizeThreat maps provider strings onto the known levels; anything
// unrecognized is treated as LOW rather than propagated.
func normalizeThreat(s string) data.ThreatLevel {
	switch data.ThreatLevel(s) {
	case data.ThreatLow, data.ThreatMedium, data.ThreatHigh, data.ThreatCritical:
		return data.ThreatLevel(s)
	default:
		return data.ThreatLow
	}
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
