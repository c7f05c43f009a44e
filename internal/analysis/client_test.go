package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/technosupport/fleetwatch/internal/analysis"
	"github.com/technosupport/fleetwatch/internal/data"
)

func TestAnalyzeSuccessMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"summary":          "Two people near the dock gate",
			"person_count":     2,
			"threat_level":     "HIGH",
			"detected_objects": []string{"person", "person", "bag"},
			"anomalies":        []string{"loitering"},
		})
	}))
	defer srv.Close()

	c := analysis.NewClient(srv.URL, "test-key")
	res := c.Analyze(context.Background(), []byte("jpeg"), "CH01", "Dock")

	if res.ThreatLevel != data.ThreatHigh {
		t.Errorf("threat = %s, want HIGH", res.ThreatLevel)
	}
	if res.PersonCount != 2 || len(res.Anomalies) != 1 {
		t.Errorf("mapping lost fields: %+v", res)
	}
	if res.AnalyzedAt.IsZero() {
		t.Error("AnalyzedAt not stamped")
	}
}

func TestAnalyzeDegradedOnMissingKey(t *testing.T) {
	c := analysis.NewClient("http://unused.invalid", "")
	res := c.Analyze(context.Background(), []byte("jpeg"), "CH01", "Dock")
	assertDegraded(t, res)
	if !strings.Contains(res.Summary, "API key") {
		t.Errorf("summary should explain the missing key: %q", res.Summary)
	}
}

func TestAnalyzeDegradedOnQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := analysis.NewClient(srv.URL, "k")
	res := c.Analyze(context.Background(), []byte("jpeg"), "CH01", "Dock")
	assertDegraded(t, res)
	if !strings.Contains(res.Summary, "quota") {
		t.Errorf("summary should mention quota: %q", res.Summary)
	}
}

func TestAnalyzeDegradedOnUnreachableService(t *testing.T) {
	c := analysis.NewClient("http://127.0.0.1:1", "k")
	res := c.Analyze(context.Background(), []byte("jpeg"), "CH01", "Dock")
	assertDegraded(t, res)
}

func TestAnalyzeNormalizesUnknownThreat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"summary": "ok", "threat_level": "EXTREME"})
	}))
	defer srv.Close()

	c := analysis.NewClient(srv.URL, "k")
	res := c.Analyze(context.Background(), []byte("jpeg"), "CH01", "Dock")
	if res.ThreatLevel != data.ThreatLow {
		t.Errorf("unknown threat mapped to %s, want LOW", res.ThreatLevel)
	}
	if res.DetectedObjects == nil || res.Anomalies == nil {
		t.Error("lists must be non-nil")
	}
}

func assertDegraded(t *testing.T, res data.AnalysisResult) {
	t.Helper()
	if res.ThreatLevel != data.ThreatLow {
		t.Errorf("degraded threat = %s, want LOW", res.ThreatLevel)
	}
	if len(res.DetectedObjects) != 0 || len(res.Anomalies) != 0 {
		t.Error("degraded result must have empty lists")
	}
	if res.Summary == "" {
		t.Error("degraded result must carry an explanatory summary")
	}
	if res.DetectedObjects == nil || res.Anomalies == nil {
		t.Error("degraded lists must be non-nil")
	}
}
