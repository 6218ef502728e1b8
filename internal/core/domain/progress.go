package domain

// DeriveProgress projects {status, metadata} onto a 0-100 scale for
// display. It is a pure function of the document record so a
// reconnecting client can always recompute it; it is never stored.
func DeriveProgress(status DocumentStatus, meta Metadata) int {
	switch status {
	case StatusPending:
		return 5
	case StatusProcessing:
		if meta.Has(MetaExtractionCompletedAt) {
			return 45
		}
		return 25
	case StatusProcessingFinancial:
		if meta.Has(MetaOracleCompletedAt) {
			return 85
		}
		return 70
	case StatusComplete:
		return 100
	case StatusFailed:
		return lastObservedProgress(meta)
	default:
		return 0
	}
}

// lastObservedProgress reconstructs how far a failed run got from the
// stage timestamps it left behind.
func lastObservedProgress(meta Metadata) int {
	switch {
	case meta.Has(MetaOracleCompletedAt):
		return 85
	case meta.String(MetaStage) == StageFinancialAnalysis:
		return 70
	case meta.Has(MetaExtractionCompletedAt):
		return 45
	case meta.String(MetaStage) == StageTextExtraction:
		return 25
	default:
		return 5
	}
}
