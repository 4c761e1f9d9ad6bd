package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	importapp "github.com/brandinglab/backend/internal/application/importing"
	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/infrastructure/config"
	"github.com/brandinglab/backend/internal/interfaces/http/dto"
)

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*importing.ImportJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[uuid.UUID]*importing.ImportJob{}}
}

// Save and FindByID copy the aggregate so the background import loop and
// the test never share a mutable struct.
func (r *memJobRepo) Save(_ context.Context, job *importing.ImportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) FindByID(_ context.Context, id uuid.UUID) (*importing.ImportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (r *memJobRepo) FindAll(_ context.Context, limit, offset int) ([]*importing.ImportJob, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*importing.ImportJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, job)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *memJobRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

type memLockStore struct {
	mu   sync.Mutex
	lock *importing.ImportLock
}

func (s *memLockStore) Acquire(_ context.Context, lock *importing.ImportLock, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock != nil {
		return false, nil
	}
	s.lock = lock
	return true, nil
}

func (s *memLockStore) Refresh(_ context.Context, lock *importing.ImportLock, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock = lock
	return nil
}

func (s *memLockStore) Get(_ context.Context) (*importing.ImportLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock, nil
}

func (s *memLockStore) Release(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock = nil
	return nil
}

type stubSyncer struct{}

func (stubSyncer) SyncRecord(context.Context, importing.NormalizedRecord) (importing.RowOutcome, error) {
	return importing.OutcomeCreated, nil
}

type importFixture struct {
	engine *gin.Engine
	jobs   *memJobRepo
	locks  *memLockStore
}

func newImportFixture() *importFixture {
	jobs := newMemJobRepo()
	locks := &memLockStore{}
	cfg := config.ImportConfig{
		ProgressEveryRows:    1,
		CancelCheckEveryRows: 1,
		LockTTL:              time.Minute,
		RequiredFields:       []string{"email", "name", "product", "transactionId", "status"},
	}
	jobService := importapp.NewJobService(
		jobs, locks,
		func(string) importapp.RowSyncer { return stubSyncer{} },
		nil, nil, cfg, zap.NewNop(),
	)
	templateService := importapp.NewTemplateService(newMemTemplateRepo(), zap.NewNop())
	h := NewImportHandler(jobService, templateService)

	engine := gin.New()
	api := engine.Group("/api/v1")
	h.RegisterRoutes(api)
	return &importFixture{engine: engine, jobs: jobs, locks: locks}
}

const salesCSV = "Email,Nome do Comprador,Produto,Código da Transação,Status da Compra\n" +
	"ana@example.com,Ana Lima,Kit Boas-Vindas,HP1,Aprovado\n" +
	"bruno@example.com,Bruno Souza,Curso Online,HP2,Aprovado\n" +
	"carla@example.com,Carla Dias,Kit Boas-Vindas,HP3,Reembolsado\n"

const salesMappingJSON = `{"email":"Email","name":"Nome do Comprador","product":"Produto",` +
	`"transactionId":"Código da Transação","status":"Status da Compra"}`

func multipartUpload(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func (f *importFixture) upload(t *testing.T, path string, fields map[string]string, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, fields, "vendas.csv", content)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	f.engine.ServeHTTP(w, req)
	return w
}

func TestImportHandlerPreview(t *testing.T) {
	f := newImportFixture()

	w := f.upload(t, "/api/v1/imports/preview", nil, salesCSV)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Len(t, data["headers"], 5)
	assert.EqualValues(t, 3, data["row_count"])

	mapping := data["mapping"].(map[string]any)
	assert.Equal(t, "Email", mapping["email"])
	assert.Equal(t, "Status da Compra", mapping["status"])

	statuses := data["distinct_statuses"].([]any)
	assert.ElementsMatch(t, []any{"Aprovado", "Reembolsado"}, statuses)
}

func TestImportHandlerPreviewRequiresFile(t *testing.T) {
	f := newImportFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/preview", nil)
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlerStart(t *testing.T) {
	f := newImportFixture()

	w := f.upload(t, "/api/v1/imports", map[string]string{
		"platform": "hotmart",
		"mapping":  salesMappingJSON,
	}, salesCSV)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "hotmart", data["platform"])
	assert.Equal(t, "Aprovado", data["paid_status"])
	assert.Equal(t, "vendas.csv", data["filename"])
	assert.EqualValues(t, 2, data["total_rows"])

	jobID := uuid.MustParse(data["id"].(string))
	require.Eventually(t, func() bool {
		job, err := f.jobs.FindByID(context.Background(), jobID)
		return err == nil && job.Status == importing.JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestImportHandlerStartRejectsBadMappingJSON(t *testing.T) {
	f := newImportFixture()

	w := f.upload(t, "/api/v1/imports", map[string]string{
		"platform": "hotmart",
		"mapping":  "{not json",
	}, salesCSV)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlerStartRejectsUnknownPlatform(t *testing.T) {
	f := newImportFixture()

	w := f.upload(t, "/api/v1/imports", map[string]string{
		"platform": "shopify",
		"mapping":  salesMappingJSON,
	}, salesCSV)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlerStartWhileLocked(t *testing.T) {
	f := newImportFixture()
	_, err := f.locks.Acquire(context.Background(), &importing.ImportLock{Owner: "other"}, time.Minute)
	require.NoError(t, err)

	w := f.upload(t, "/api/v1/imports", map[string]string{
		"platform": "hotmart",
		"mapping":  salesMappingJSON,
	}, salesCSV)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeImportLocked, resp.Error.Code)
}

func TestImportHandlerStartNoPaidRows(t *testing.T) {
	f := newImportFixture()

	onlyRefunds := "Email,Nome do Comprador,Produto,Código da Transação,Status da Compra\n" +
		"ana@example.com,Ana Lima,Kit Boas-Vindas,HP1,Reembolsado\n"
	w := f.upload(t, "/api/v1/imports", map[string]string{
		"platform": "hotmart",
		"mapping":  salesMappingJSON,
	}, onlyRefunds)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeNoPaidRows, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Reembolsado")
}

func TestImportHandlerLockLifecycle(t *testing.T) {
	f := newImportFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-lock", nil)
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := f.locks.Acquire(context.Background(), &importing.ImportLock{
		Owner:    "job-1",
		Filename: "vendas.csv",
	}, time.Minute)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/import-lock", nil)
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "vendas.csv", resp.Data.(map[string]any)["filename"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/import-lock", nil)
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	lock, err := f.locks.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, lock)
}

func TestImportHandlerGetInvalidID(t *testing.T) {
	f := newImportFixture()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/not-a-uuid", nil)
	f.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlerList(t *testing.T) {
	f := newImportFixture()

	w := f.upload(t, "/api/v1/imports", map[string]string{
		"platform": "hotmart",
		"mapping":  salesMappingJSON,
	}, salesCSV)
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports?limit=10&offset=0", nil)
	f.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
	assert.Len(t, resp.Data.([]any), 1)
}
