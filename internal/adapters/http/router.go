package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/insolvd/docpipe/internal/core/ports"
	"github.com/insolvd/docpipe/internal/observability/metrics"
)

// maxUploadBytes bounds a single multipart upload.
const maxUploadBytes = 64 << 20

type Router struct {
	service string

	ingestor  ports.DocumentIngestor
	resolver  ports.DuplicateResolver
	reader    ports.DocumentReader
	lifecycle ports.LifecycleService
	analysis  ports.AnalysisService
	versions  ports.VersionService
	folders   ports.FolderService
	tasks     ports.TaskRepository

	metrics *metrics.HTTPServerMetrics
	traffic *TrafficControl
}

type RouterOptions struct {
	Service        string
	Metrics        *metrics.HTTPServerMetrics
	TrafficControl *TrafficControl
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	resolver ports.DuplicateResolver,
	reader ports.DocumentReader,
	lifecycle ports.LifecycleService,
	analysis ports.AnalysisService,
	versions ports.VersionService,
	folders ports.FolderService,
	tasks ports.TaskRepository,
	options RouterOptions,
) *Router {
	service := options.Service
	if service == "" {
		service = "docpipe-api"
	}
	return &Router{
		service:   service,
		ingestor:  ingestor,
		resolver:  resolver,
		reader:    reader,
		lifecycle: lifecycle,
		analysis:  analysis,
		versions:  versions,
		folders:   folders,
		tasks:     tasks,
		metrics:   options.Metrics,
		traffic:   options.TrafficControl,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("POST /v1/documents/resolve", rt.resolveDuplicate)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	mux.HandleFunc("GET /v1/documents/{id}/status", rt.getStatus)
	mux.HandleFunc("POST /v1/documents/{id}/retry", rt.retryDocument)
	mux.HandleFunc("POST /v1/documents/{id}/cancel", rt.cancelDocument)
	mux.HandleFunc("POST /v1/documents/{id}/analyze", rt.analyzeDocument)
	mux.HandleFunc("GET /v1/documents/{id}/analysis", rt.getAnalysis)
	mux.HandleFunc("GET /v1/documents/{id}/tasks", rt.listTasks)
	mux.HandleFunc("GET /v1/documents/{id}/versions", rt.listVersions)
	mux.HandleFunc("POST /v1/documents/{id}/versions/{version_id}/activate", rt.activateVersion)
	mux.HandleFunc("GET /v1/documents/{id}/recommendation", rt.getRecommendation)
	mux.HandleFunc("POST /v1/documents/{id}/recommendation/accept", rt.acceptRecommendation)
	mux.HandleFunc("POST /v1/documents/{id}/move", rt.moveDocument)

	var handler http.Handler = mux
	if rt.traffic != nil {
		handler = rt.traffic.Middleware(handler)
	}
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
