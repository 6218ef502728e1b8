package domain

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities for threshold comparisons; unknown values
// rank below low so they never trip a task generator.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

type ComplianceStatus string

const (
	ComplianceCompliant      ComplianceStatus = "compliant"
	ComplianceReviewRequired ComplianceStatus = "review_required"
	ComplianceNonCompliant   ComplianceStatus = "non_compliant"
)

type RiskFactor struct {
	ID                  string   `json:"id"`
	AnalysisID          string   `json:"analysis_id"`
	FactorType          string   `json:"factor_type"`
	Severity            Severity `json:"severity"`
	Description         string   `json:"description"`
	Recommendation      string   `json:"recommendation,omitempty"`
	RegulatoryReference string   `json:"regulatory_reference,omitempty"`
}

// AnalysisResult is the oracle's structured output for one document.
// At most one result per document is current (Superseded=false);
// re-analysis inserts a new row and supersedes the old one atomically.
type AnalysisResult struct {
	ID               string            `json:"id"`
	DocumentID       string            `json:"document_id"`
	FormType         string            `json:"form_type"`
	Confidence       float64           `json:"confidence"`
	ExtractedFields  map[string]string `json:"extracted_fields"`
	ComplianceStatus ComplianceStatus  `json:"compliance_status"`
	OverallRisk      Severity          `json:"overall_risk"`
	Reasoning        string            `json:"reasoning,omitempty"`
	Degraded         bool              `json:"degraded,omitempty"`
	Superseded       bool              `json:"superseded,omitempty"`
	RiskFactors      []RiskFactor      `json:"risk_factors,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// DegradedResult records that analysis was attempted but the oracle's
// output could not be parsed. Losing that fact silently is worse than
// storing a low-confidence placeholder.
func DegradedResult(documentID, reason string) *AnalysisResult {
	return &AnalysisResult{
		DocumentID:       documentID,
		FormType:         "unknown",
		Confidence:       0,
		ExtractedFields:  map[string]string{},
		ComplianceStatus: ComplianceReviewRequired,
		OverallRisk:      SeverityMedium,
		Reasoning:        reason,
		Degraded:         true,
		RiskFactors: []RiskFactor{
			{
				FactorType:     "analysis_degraded",
				Severity:       SeverityHigh,
				Description:    "automated analysis returned unreadable output; manual review required",
				Recommendation: "review the document manually and re-run analysis",
			},
		},
	}
}

// AnalysisOptions controls a manual analysis invocation.
type AnalysisOptions struct {
	IncludeRiskAssessment  bool `json:"include_risk_assessment"`
	IncludeComplianceCheck bool `json:"include_compliance_check"`
	GenerateTasks          bool `json:"generate_tasks"`
	Force                  bool `json:"force"`
}

func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		IncludeRiskAssessment:  true,
		IncludeComplianceCheck: true,
		GenerateTasks:          true,
	}
}
