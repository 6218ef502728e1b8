package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/insolvd/docpipe/internal/core/domain"
)

func (rt *Router) retryDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := rt.lifecycle.Retry(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": string(domain.StatusPending)})
}

func (rt *Router) cancelDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := rt.lifecycle.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": string(domain.StatusFailed)})
}

// analyzeDocument triggers manual analysis. A nil result with a nil
// error means re-analysis was queued rather than served from the
// current result.
func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	opts := domain.DefaultAnalysisOptions()
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.analysis.Analyze(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusAccepted, map[string]string{"document_id": id, "status": "queued"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	result, err := rt.analysis.Current(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := rt.tasks.ListByDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (rt *Router) listVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := rt.versions.List(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (rt *Router) activateVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	versionID := r.PathValue("version_id")
	if err := rt.versions.Activate(r.Context(), id, versionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "current_version_id": versionID})
}

func (rt *Router) getRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := rt.folders.Recommendation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (rt *Router) acceptRecommendation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := rt.folders.AcceptRecommendation(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "status": "accepted"})
}

func (rt *Router) moveDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Folder) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "folder is required"})
		return
	}

	if err := rt.folders.Move(r.Context(), id, req.Folder); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_id": id, "folder": req.Folder})
}
