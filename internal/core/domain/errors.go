package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionNotFound  = errors.New("version not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflicting state")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// FailureKind is the closed taxonomy of pipeline failure reasons
// recorded in document metadata when a stage maps to status=failed.
type FailureKind string

const (
	FailureUpload         FailureKind = "upload_failure"
	FailureOracleTimeout  FailureKind = "oracle_timeout"
	FailureOracleProvider FailureKind = "oracle_provider_error"
	FailureOracleParse    FailureKind = "oracle_parse_error"
	FailurePersistence    FailureKind = "persistence_failure"
	FailureUserCancelled  FailureKind = "user_cancelled"
	FailureStageTimeout   FailureKind = "stage_timeout"
)

// StageFailure carries a failure kind across the orchestrator boundary
// so it can be recorded in metadata instead of surfacing as a raw error.
type StageFailure struct {
	Kind FailureKind
	Err  error
}

func (f *StageFailure) Error() string {
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *StageFailure) Unwrap() error { return f.Err }

func NewStageFailure(kind FailureKind, err error) *StageFailure {
	return &StageFailure{Kind: kind, Err: err}
}

// FailureKindOf extracts the recorded kind, defaulting to upload_failure
// for errors raised before the pipeline proper and persistence_failure
// for store errors.
func FailureKindOf(err error) FailureKind {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf.Kind
	}
	return FailureUpload
}
