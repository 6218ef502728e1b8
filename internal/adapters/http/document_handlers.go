package httpadapter

import (
	"io"
	"net/http"
	"strings"

	"github.com/insolvd/docpipe/internal/core/domain"
)

const ownerIDHeader = "X-Owner-Id"

func ownerID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(ownerIDHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.FormValue("owner_id"))
}

// uploadDocument accepts a multipart upload and either enqueues the
// document (202) or returns the duplicate prompt (409) for the client
// to resolve.
func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	outcome, err := rt.ingestor.Upload(
		r.Context(),
		ownerID(r),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.recordUpload("rejected", 0)
		writeError(w, err)
		return
	}

	if outcome.Document == nil {
		rt.recordUpload("duplicate", 0)
		if rt.metrics != nil {
			rt.metrics.RecordDuplicatePrompt(rt.service)
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"duplicate":  outcome.Duplicate,
			"message":    "a matching document already exists; resolve to continue",
			"resolve_at": "/v1/documents/resolve",
		})
		return
	}

	rt.recordUpload("accepted", outcome.Document.SizeBytes)
	if outcome.Duplicate != nil && outcome.Duplicate.CheckFailed {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"document":        outcome.Document,
			"duplicate_check": outcome.Duplicate,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, outcome.Document)
}

// resolveDuplicate re-submits an upload together with the user's
// decision. Cancel carries no file and creates nothing.
func (rt *Router) resolveDuplicate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	decision := domain.ResolutionDecision(strings.TrimSpace(r.FormValue("decision")))
	if !decision.IsValid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decision must be one of replace, version, rename, cancel"})
		return
	}
	targetID := strings.TrimSpace(r.FormValue("target_document_id"))

	var (
		title    string
		mimeType string
		body     io.Reader = http.NoBody
	)
	file, fileHeader, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		title = fileHeader.Filename
		mimeType = fileHeader.Header.Get("Content-Type")
		body = file
	} else if decision != domain.ResolutionCancel {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}

	doc, err := rt.resolver.Resolve(r.Context(), ownerID(r), title, mimeType, body, decision, targetID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordResolution(rt.service, string(decision))
	}

	if doc == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	docs, err := rt.reader.List(r.Context(), domain.DocumentFilter{
		OwnerID: strings.TrimSpace(query.Get("owner_id")),
		Status:  domain.DocumentStatus(strings.TrimSpace(query.Get("status"))),
		Folder:  strings.TrimSpace(query.Get("folder")),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.reader.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rt.reader.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (rt *Router) recordUpload(outcome string, sizeBytes int64) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(rt.service, outcome, sizeBytes)
	}
}
