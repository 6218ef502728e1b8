package domain

// Fingerprint identifies uploaded content for duplicate detection.
// ContentHash is the strong signal; Title/Size form the degraded
// fallback for rows stored before hashing existed (false negatives
// accepted, per the resolver's fail-open posture).
type Fingerprint struct {
	ContentHash string
	Title       string
	Size        int64
	MimeType    string
}

func (f Fingerprint) HasContentHash() bool {
	return f.ContentHash != ""
}

type ResolutionDecision string

const (
	ResolutionProceed ResolutionDecision = "proceed"
	ResolutionReplace ResolutionDecision = "replace"
	ResolutionVersion ResolutionDecision = "version"
	ResolutionRename  ResolutionDecision = "rename"
	ResolutionCancel  ResolutionDecision = "cancel"
)

func (d ResolutionDecision) IsValid() bool {
	switch d {
	case ResolutionReplace, ResolutionVersion, ResolutionRename, ResolutionCancel:
		return true
	default:
		return false
	}
}

// DuplicateCheck is the transient result of a fingerprint lookup.
// Candidates are existing documents owned by the same user that match;
// an empty set means proceed.
type DuplicateCheck struct {
	Decision   ResolutionDecision `json:"decision"`
	Candidates []Document         `json:"candidates,omitempty"`
	// CheckFailed marks a fail-open proceed: the lookup itself errored
	// and the upload went ahead rather than blocking.
	CheckFailed bool `json:"check_failed,omitempty"`
}
