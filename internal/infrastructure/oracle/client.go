package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
	"github.com/insolvd/docpipe/internal/infrastructure/resilience"
)

// maxOracleText caps the text sent per request. Longer documents are
// truncated at a rune boundary before shipping.
const maxOracleText = 24000

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	APIKey             string
	RequestTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     options.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type analyzeResponse struct {
	FormType         string            `json:"form_type"`
	Confidence       float64           `json:"confidence"`
	ExtractedFields  map[string]string `json:"extracted_fields"`
	ComplianceStatus string            `json:"compliance_status"`
	OverallRisk      string            `json:"overall_risk"`
	Reasoning        string            `json:"reasoning"`
	RiskFactors      []struct {
		FactorType          string `json:"factor_type"`
		Severity            string `json:"severity"`
		Description         string `json:"description"`
		Recommendation      string `json:"recommendation"`
		RegulatoryReference string `json:"regulatory_reference"`
	} `json:"risk_factors"`
}

// Analyze sends extracted text to the analysis service and maps every
// failure to a typed stage failure: oracle_timeout for deadline hits,
// oracle_parse_error for undecodable responses, oracle_provider_error
// for everything else.
func (c *Client) Analyze(ctx context.Context, req ports.OracleRequest) (*domain.AnalysisResult, error) {
	payload := ports.OracleRequest{
		DocumentID:             req.DocumentID,
		Text:                   truncateText(req.Text, maxOracleText),
		Hints:                  req.Hints,
		IncludeRiskAssessment:  req.IncludeRiskAssessment,
		IncludeComplianceCheck: req.IncludeComplianceCheck,
	}

	var raw json.RawMessage
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/v1/analyze", payload, &raw, "analyze")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "oracle.analyze", call, classifyOracleError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.NewStageFailure(failureKindFor(err), err)
	}

	result, err := decodeResult(req.DocumentID, raw)
	if err != nil {
		return nil, domain.NewStageFailure(domain.FailureOracleParse, err)
	}
	return result, nil
}

func decodeResult(documentID string, raw json.RawMessage) (*domain.AnalysisResult, error) {
	var resp analyzeResponse
	if err := json.Unmarshal([]byte(extractJSONObject(string(raw))), &resp); err != nil {
		return nil, fmt.Errorf("parse analyze response: %w", err)
	}
	if resp.FormType == "" && resp.OverallRisk == "" {
		return nil, fmt.Errorf("analyze response missing form_type and overall_risk")
	}

	result := &domain.AnalysisResult{
		DocumentID:       documentID,
		FormType:         resp.FormType,
		Confidence:       resp.Confidence,
		ExtractedFields:  resp.ExtractedFields,
		ComplianceStatus: normalizeCompliance(resp.ComplianceStatus),
		OverallRisk:      normalizeSeverity(resp.OverallRisk),
		Reasoning:        resp.Reasoning,
		CreatedAt:        time.Now().UTC(),
	}
	if result.ExtractedFields == nil {
		result.ExtractedFields = map[string]string{}
	}
	for _, rf := range resp.RiskFactors {
		if rf.FactorType == "" {
			continue
		}
		result.RiskFactors = append(result.RiskFactors, domain.RiskFactor{
			FactorType:          rf.FactorType,
			Severity:            normalizeSeverity(rf.Severity),
			Description:         rf.Description,
			Recommendation:      rf.Recommendation,
			RegulatoryReference: rf.RegulatoryReference,
		})
	}
	return result, nil
}

func normalizeSeverity(raw string) domain.Severity {
	switch domain.Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.SeverityLow:
		return domain.SeverityLow
	case domain.SeverityMedium:
		return domain.SeverityMedium
	case domain.SeverityHigh:
		return domain.SeverityHigh
	default:
		return domain.SeverityMedium
	}
}

func normalizeCompliance(raw string) domain.ComplianceStatus {
	switch domain.ComplianceStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.ComplianceCompliant:
		return domain.ComplianceCompliant
	case domain.ComplianceNonCompliant:
		return domain.ComplianceNonCompliant
	case domain.ComplianceReviewRequired:
		return domain.ComplianceReviewRequired
	default:
		return domain.ComplianceReviewRequired
	}
}

func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
