package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/insolvd/docpipe/internal/core/domain"
)

// SHA256 fingerprints uploads by content hash. Title and size travel
// alongside the hash so duplicate lookups can fall back to them for
// records ingested before hashing existed.
type SHA256 struct{}

func New() SHA256 {
	return SHA256{}
}

func (SHA256) Compute(title, mimeType string, content []byte) domain.Fingerprint {
	sum := sha256.Sum256(content)
	return domain.Fingerprint{
		ContentHash: hex.EncodeToString(sum[:]),
		Title:       title,
		Size:        int64(len(content)),
		MimeType:    mimeType,
	}
}
