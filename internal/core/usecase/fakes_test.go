package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/insolvd/docpipe/internal/core/domain"
	"github.com/insolvd/docpipe/internal/core/ports"
)

type statusCall struct {
	id     string
	status domain.DocumentStatus
	extra  domain.Metadata
}

type repoFake struct {
	docs map[string]*domain.Document

	createErr  error
	getErr     error
	statusErr  error
	findErr    error
	resetErr   error
	replaceErr error

	created     []*domain.Document
	statusCalls []statusCall
	resetCalls  []domain.Metadata
	duplicates  []domain.Document
	stale       []domain.Document
	folderSet   string
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: map[string]*domain.Document{}}
	for _, doc := range docs {
		f.docs[doc.ID] = doc
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.created = append(f.created, &copyDoc)
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *repoFake) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	out := make([]domain.Document, 0)
	for _, doc := range f.docs {
		if filter.OwnerID != "" && doc.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, *doc)
	}
	return out, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, extra domain.Metadata) error {
	f.statusCalls = append(f.statusCalls, statusCall{id: id, status: status, extra: extra})
	if f.statusErr != nil {
		return f.statusErr
	}
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		if doc.Metadata == nil {
			doc.Metadata = domain.Metadata{}
		}
		for k, v := range extra {
			doc.Metadata[k] = v
		}
	}
	return nil
}

func (f *repoFake) ResetForRetry(_ context.Context, id string, extra domain.Metadata) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resetCalls = append(f.resetCalls, extra)
	if doc, ok := f.docs[id]; ok {
		doc.Status = domain.StatusPending
		for _, key := range domain.ErrorMetadataKeys {
			delete(doc.Metadata, key)
		}
		if doc.Metadata == nil {
			doc.Metadata = domain.Metadata{}
		}
		for k, v := range extra {
			doc.Metadata[k] = v
		}
	}
	return nil
}

func (f *repoFake) FindDuplicates(context.Context, string, domain.Fingerprint) ([]domain.Document, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.duplicates, nil
}

func (f *repoFake) ReplaceContent(_ context.Context, id, storagePath, contentHash string, sizeBytes int64) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if doc, ok := f.docs[id]; ok {
		doc.StoragePath = storagePath
		doc.ContentHash = contentHash
		doc.SizeBytes = sizeBytes
	}
	return nil
}

func (f *repoFake) SetFolder(_ context.Context, id, folder string) error {
	f.folderSet = folder
	if doc, ok := f.docs[id]; ok {
		doc.Folder = folder
	}
	return nil
}

func (f *repoFake) ListStale(context.Context, time.Time) ([]domain.Document, error) {
	return f.stale, nil
}

type storageFake struct {
	saveErr error

	saved   map[string]string
	deleted []string
	content string
}

func newStorageFake() *storageFake {
	return &storageFake{saved: map[string]string{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	err       error
	published []string
}

func (f *queueFake) PublishProcessDocument(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeProcessDocument(context.Context, func(context.Context, ports.ProcessEvent) error) error {
	return errors.New("not implemented")
}

type fingerprintFake struct {
	hash string
}

func (f fingerprintFake) Compute(title, mimeType string, content []byte) domain.Fingerprint {
	return domain.Fingerprint{
		ContentHash: f.hash,
		Title:       title,
		Size:        int64(len(content)),
		MimeType:    mimeType,
	}
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type oracleFake struct {
	result  *domain.AnalysisResult
	err     error
	calls   int
	lastReq ports.OracleRequest
}

func (f *oracleFake) Analyze(_ context.Context, req ports.OracleRequest) (*domain.AnalysisResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	copyResult := *f.result
	return &copyResult, nil
}

type analysesFake struct {
	current *domain.AnalysisResult
	saveErr error
	saved   []*domain.AnalysisResult

	superseded []string
}

func (f *analysesFake) Save(_ context.Context, result *domain.AnalysisResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	copyResult := *result
	f.saved = append(f.saved, &copyResult)
	return nil
}

func (f *analysesFake) GetCurrentByDocument(_ context.Context, documentID string) (*domain.AnalysisResult, error) {
	if f.current == nil {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get current analysis", errors.New(documentID))
	}
	copyResult := *f.current
	return &copyResult, nil
}

func (f *analysesFake) SupersedeCurrent(_ context.Context, documentID string) error {
	f.superseded = append(f.superseded, documentID)
	f.current = nil
	return nil
}

type versionsFake struct {
	versions  map[string][]domain.DocumentVersion
	createErr error
	switched  []string
}

func newVersionsFake() *versionsFake {
	return &versionsFake{versions: map[string][]domain.DocumentVersion{}}
}

func (f *versionsFake) Create(_ context.Context, v *domain.DocumentVersion) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.versions[v.DocumentID] = append(f.versions[v.DocumentID], *v)
	return nil
}

func (f *versionsFake) ListByDocument(_ context.Context, documentID string) ([]domain.DocumentVersion, error) {
	return f.versions[documentID], nil
}

func (f *versionsFake) GetByID(_ context.Context, versionID string) (*domain.DocumentVersion, error) {
	for _, list := range f.versions {
		for _, v := range list {
			if v.ID == versionID {
				copyVersion := v
				return &copyVersion, nil
			}
		}
	}
	return nil, domain.WrapError(domain.ErrVersionNotFound, "get version", errors.New(versionID))
}

func (f *versionsFake) SwitchCurrent(_ context.Context, documentID, versionID string) error {
	list := f.versions[documentID]
	found := false
	for i := range list {
		list[i].IsCurrent = list[i].ID == versionID
		if list[i].IsCurrent {
			found = true
		}
	}
	if !found {
		return domain.WrapError(domain.ErrVersionNotFound, "switch current version", errors.New(versionID))
	}
	f.switched = append(f.switched, versionID)
	return nil
}

func (f *versionsFake) NextVersionNumber(_ context.Context, documentID string) (int, error) {
	max := 0
	for _, v := range f.versions[documentID] {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max + 1, nil
}

type tasksFake struct {
	upserted []*domain.FollowUpTask
	err      error
}

func (f *tasksFake) UpsertRiskTask(_ context.Context, task *domain.FollowUpTask) error {
	if f.err != nil {
		return f.err
	}
	copyTask := *task
	f.upserted = append(f.upserted, &copyTask)
	return nil
}

func (f *tasksFake) ListByDocument(context.Context, string) ([]domain.FollowUpTask, error) {
	out := make([]domain.FollowUpTask, 0, len(f.upserted))
	for _, task := range f.upserted {
		out = append(out, *task)
	}
	return out, nil
}

type recsFake struct {
	upserted *domain.FolderRecommendation
	accepted []string
	err      error
}

func (f *recsFake) Upsert(_ context.Context, rec *domain.FolderRecommendation) error {
	if f.err != nil {
		return f.err
	}
	copyRec := *rec
	f.upserted = &copyRec
	return nil
}

func (f *recsFake) GetByDocument(_ context.Context, documentID string) (*domain.FolderRecommendation, error) {
	if f.upserted == nil {
		return nil, domain.WrapError(domain.ErrAnalysisNotFound, "get folder recommendation", errors.New(documentID))
	}
	copyRec := *f.upserted
	return &copyRec, nil
}

func (f *recsFake) MarkAccepted(_ context.Context, documentID string) error {
	f.accepted = append(f.accepted, documentID)
	return nil
}

type pipelineMetricsFake struct {
	stages      []string
	oracleCalls int
	oracleErrs  int
}

func (f *pipelineMetricsFake) ObserveStage(stage string, _ time.Duration) {
	f.stages = append(f.stages, stage)
}

func (f *pipelineMetricsFake) RecordOracleCall(err error) {
	f.oracleCalls++
	if err != nil {
		f.oracleErrs++
	}
}

type classifierFake struct {
	folder     string
	confidence float64
	reason     string
	ok         bool
}

func (f classifierFake) Classify(string, string) (string, float64, string, bool) {
	return f.folder, f.confidence, f.reason, f.ok
}
