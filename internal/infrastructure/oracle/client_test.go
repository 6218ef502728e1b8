package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

func TestAnalyzeDecodesAndNormalizesResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"form_type": "form_65",
			"confidence": 0.91,
			"extracted_fields": {"debtor_name": "J. Smith"},
			"compliance_status": "COMPLIANT",
			"overall_risk": "severe",
			"risk_factors": [
				{"factor_type": "income_mismatch", "severity": "HIGH", "description": "deposits exceed income"},
				{"factor_type": "", "severity": "low"}
			]
		}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{APIKey: "secret"})
	result, err := client.Analyze(context.Background(), ports.OracleRequest{
		DocumentID: "doc-1",
		Text:       "statement of affairs",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.FormType != "form_65" || result.DocumentID != "doc-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ComplianceStatus != domain.ComplianceCompliant {
		t.Fatalf("expected compliance normalized, got %s", result.ComplianceStatus)
	}
	if result.OverallRisk != domain.SeverityMedium {
		t.Fatalf("unknown severity must default to medium, got %s", result.OverallRisk)
	}
	if len(result.RiskFactors) != 1 {
		t.Fatalf("factor without a type must be dropped, got %+v", result.RiskFactors)
	}
	if result.RiskFactors[0].Severity != domain.SeverityHigh {
		t.Fatalf("expected high severity, got %s", result.RiskFactors[0].Severity)
	}
}

func TestAnalyzeServerErrorIsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Analyze(context.Background(), ports.OracleRequest{DocumentID: "doc-1", Text: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if kind := domain.FailureKindOf(err); kind != domain.FailureOracleProvider {
		t.Fatalf("expected oracle_provider_error, got %s", kind)
	}
}

func TestAnalyzeUndecodableBodyIsParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("I could not produce JSON today"))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Analyze(context.Background(), ports.OracleRequest{DocumentID: "doc-1", Text: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if kind := domain.FailureKindOf(err); kind != domain.FailureOracleParse {
		t.Fatalf("expected oracle_parse_error, got %s", kind)
	}
}

func TestAnalyzeMissingFieldsIsParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reasoning": "no idea"}`))
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	_, err := client.Analyze(context.Background(), ports.OracleRequest{DocumentID: "doc-1", Text: "x"})
	if kind := domain.FailureKindOf(err); kind != domain.FailureOracleParse {
		t.Fatalf("expected oracle_parse_error for empty result, got %v", err)
	}
}

func TestAnalyzeDeadlineIsTimeoutFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := New(server.URL, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Analyze(ctx, ports.OracleRequest{DocumentID: "doc-1", Text: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if kind := domain.FailureKindOf(err); kind != domain.FailureOracleTimeout {
		t.Fatalf("expected oracle_timeout, got %s (%v)", kind, err)
	}
}

func TestExtractJSONObjectStripsWrapping(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"form_type\": \"form_65\"}\n```"
	if got := extractJSONObject(raw); got != `{"form_type": "form_65"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestTruncateTextRespectsRuneBoundaries(t *testing.T) {
	text := "ééééé"
	got := truncateText(text, 3)
	if got != "ééé" {
		t.Fatalf("expected rune-bounded truncation, got %q", got)
	}
}
