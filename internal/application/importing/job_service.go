// Package importing orchestrates CSV import jobs.
package importing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	"github.com/brandinglab/backend/internal/infrastructure/config"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
	"github.com/brandinglab/backend/internal/infrastructure/queue"
)

// RowSyncer pushes one normalized record to the CRM. Implemented by
// crm.SyncContext.
type RowSyncer interface {
	SyncRecord(ctx context.Context, rec importing.NormalizedRecord) (importing.RowOutcome, error)
}

// SyncFactory builds the per-job sync state for a pipeline stage.
type SyncFactory func(stageID string) RowSyncer

// RowPublisher enqueues row tasks for queue-mode execution.
type RowPublisher interface {
	PublishRow(ctx context.Context, task queue.RowTask) error
}

// NoPaidRowsError is returned when the paid-status filter leaves nothing
// to import. It carries the distinct statuses the file actually had so
// the user can spot a wrong filter value.
type NoPaidRowsError struct {
	Expected string
	Seen     []string
}

// Error implements the error interface
func (e *NoPaidRowsError) Error() string {
	return fmt.Sprintf("no rows with status %q; file contains: %s", e.Expected, strings.Join(e.Seen, ", "))
}

// StartOptions parameterizes one import run.
type StartOptions struct {
	Platform   importing.Platform
	PaidStatus string
	Mapping    csvimport.ColumnMapping
	Filename   string
	StageID    string
	UseQueue   bool
}

// JobService runs import jobs: parse, filter, normalize, sync, with
// persisted progress for resumption and cooperative cancellation.
type JobService struct {
	jobs      importing.JobRepository
	lockStore importing.LockStore
	syncFor   SyncFactory
	publisher RowPublisher
	events    shared.EventPublisher
	cfg       config.ImportConfig
	logger    *zap.Logger
}

// NewJobService creates the import orchestrator.
func NewJobService(
	jobs importing.JobRepository,
	lockStore importing.LockStore,
	syncFor SyncFactory,
	publisher RowPublisher,
	events shared.EventPublisher,
	cfg config.ImportConfig,
	logger *zap.Logger,
) *JobService {
	return &JobService{
		jobs:      jobs,
		lockStore: lockStore,
		syncFor:   syncFor,
		publisher: publisher,
		events:    events,
		cfg:       cfg,
		logger:    logger.Named("import-jobs"),
	}
}

// PreviewResult is what the mapping screen needs to configure an import.
type PreviewResult struct {
	Headers          []string
	Mapping          csvimport.ColumnMapping
	DistinctStatuses []string
	RowCount         int
}

// Preview parses a file and proposes a column mapping.
func (s *JobService) Preview(file io.Reader) (*PreviewResult, error) {
	parsed, err := csvimport.Parse(file)
	if err != nil {
		return nil, err
	}
	mapping := csvimport.AutoDetect(parsed.Headers)
	return &PreviewResult{
		Headers:          parsed.Headers,
		Mapping:          mapping,
		DistinctStatuses: distinctStatuses(parsed.Rows, mapping),
		RowCount:         len(parsed.Rows),
	}, nil
}

// RequiredFields resolves the configured required field keys.
func (s *JobService) RequiredFields() []csvimport.FieldKey {
	keys := make([]csvimport.FieldKey, 0, len(s.cfg.RequiredFields))
	for _, f := range s.cfg.RequiredFields {
		keys = append(keys, csvimport.FieldKey(f))
	}
	return keys
}

// Start validates the file against the mapping, creates the job and
// launches the background run. Validation failures surface before any
// job exists.
func (s *JobService) Start(ctx context.Context, file io.Reader, opts StartOptions) (*importing.ImportJob, error) {
	parsed, err := csvimport.Parse(file)
	if err != nil {
		return nil, err
	}
	if missing := csvimport.Validate(opts.Mapping, s.RequiredFields(), parsed.Headers); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, k := range missing {
			names[i] = string(k)
		}
		return nil, shared.NewDomainError("MAPPING_INCOMPLETE", "Missing required fields: "+strings.Join(names, ", "))
	}

	paidStatus := opts.PaidStatus
	if paidStatus == "" {
		paidStatus = opts.Platform.PaidStatus()
	}
	if paidStatus == "" {
		return nil, shared.NewDomainError("PAID_STATUS_REQUIRED", "Custom imports must declare the paid status value")
	}

	rows := filterPaid(parsed.Rows, opts.Mapping, paidStatus)
	if len(rows) == 0 {
		return nil, &NoPaidRowsError{
			Expected: paidStatus,
			Seen:     distinctStatuses(parsed.Rows, opts.Mapping),
		}
	}

	job := importing.NewImportJob(opts.Platform, paidStatus, opts.Mapping, opts.Filename, opts.StageID, len(rows))
	if err := s.acquireLock(ctx, job); err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.releaseLock(ctx)
		return nil, err
	}
	s.publishEvents(ctx, job)

	if opts.UseQueue && s.publisher != nil {
		if err := s.enqueueRows(ctx, job, rows); err != nil {
			// A half-published job has no worker feeding the rest of its
			// rows; fail it and free the lock instead of leaving it running.
			s.fail(ctx, job, err.Error(), s.logger.With(zap.String("job_id", job.ID.String())))
			return nil, err
		}
		return job, nil
	}

	go s.run(context.WithoutCancel(ctx), job, rows)
	return job, nil
}

// Resume re-parses the file and continues an interrupted job from its
// saved offset. The CRM external-id check absorbs any rows that were
// synced but not yet recorded when the job stopped.
func (s *JobService) Resume(ctx context.Context, jobID uuid.UUID, file io.Reader) (*importing.ImportJob, error) {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Active() {
		return nil, shared.ErrInvalidState
	}
	parsed, err := csvimport.Parse(file)
	if err != nil {
		return nil, err
	}
	rows := filterPaid(parsed.Rows, job.Mapping, job.PaidStatus)
	if len(rows) != job.TotalRows {
		return nil, shared.NewDomainError("FILE_MISMATCH", "Uploaded file does not match the original import")
	}
	if err := s.acquireLock(ctx, job); err != nil {
		return nil, err
	}
	go s.run(context.WithoutCancel(ctx), job, rows)
	return job, nil
}

// Cancel flags a job as cancelled. The background loop observes the flag
// at its next checkpoint and stops.
func (s *JobService) Cancel(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.jobs.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if err := job.Cancel(); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}
	s.publishEvents(ctx, job)
	return nil
}

// Get loads one job.
func (s *JobService) Get(ctx context.Context, jobID uuid.UUID) (*importing.ImportJob, error) {
	return s.jobs.FindByID(ctx, jobID)
}

// List returns jobs newest first.
func (s *JobService) List(ctx context.Context, limit, offset int) ([]*importing.ImportJob, int64, error) {
	return s.jobs.FindAll(ctx, limit, offset)
}

// Lock returns the current import lock, if held.
func (s *JobService) Lock(ctx context.Context) (*importing.ImportLock, error) {
	return s.lockStore.Get(ctx)
}

// ReleaseLock force-releases the import lock.
func (s *JobService) ReleaseLock(ctx context.Context) error {
	return s.lockStore.Release(ctx)
}

// run is the background import loop. It processes rows sequentially from
// the job's saved offset, persists progress at a bounded cadence, and
// re-reads the job document periodically so a cancellation (or deletion)
// takes effect without killing the process.
func (s *JobService) run(ctx context.Context, job *importing.ImportJob, rows []csvimport.Row) {
	log := s.logger.With(zap.String("job_id", job.ID.String()))
	if err := job.Start(); err != nil {
		log.Error("job start rejected", zap.Error(err))
		return
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		log.Error("job save failed", zap.Error(err))
		return
	}

	syncer := s.syncFor(job.StageID)
	lastPersisted := job.Counters.Processed

	// Rows before the saved offset were handled by an earlier run.
	released := 0
	releaseRows(rows, &released, job.LastOffset)

	for offset := job.LastOffset; offset < len(rows); offset++ {
		if s.cancelled(ctx, job, offset) {
			log.Info("job cancelled, stopping", zap.Int("offset", offset))
			s.releaseLock(ctx)
			return
		}

		outcome, errMsg, fatal := s.processRow(ctx, syncer, rows[offset], job.Mapping)
		if fatal {
			s.fail(ctx, job, errMsg, log)
			return
		}
		if err := job.RecordRow(offset, outcome, errMsg); err != nil {
			log.Error("record row rejected", zap.Error(err))
			s.releaseLock(ctx)
			return
		}

		if job.Counters.Processed-lastPersisted >= s.cfg.ProgressEveryRows {
			if stop := s.persistProgress(ctx, job, log); stop {
				log.Info("job no longer active, stopping", zap.Int("offset", offset))
				s.releaseLock(ctx)
				return
			}
			lastPersisted = job.Counters.Processed
			// The loop never revisits persisted rows; drop them so a
			// large file is not held resident for the whole job.
			releaseRows(rows, &released, offset+1)
		}
	}

	if err := job.Complete(); err != nil {
		log.Error("job complete rejected", zap.Error(err))
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		log.Error("final job save failed", zap.Error(err))
	}
	s.publishEvents(ctx, job)
	s.releaseLock(ctx)
	log.Info("import finished",
		zap.Int("processed", job.Counters.Processed),
		zap.Int("created", job.Counters.Created),
		zap.Int("existing", job.Counters.Existing),
		zap.Int("skipped", job.Counters.Skipped),
		zap.Int("errors", job.Counters.Errors),
	)
}

// processRow normalizes and syncs one row. Data problems come back as a
// row-level error outcome; transport failures (CRM unreachable, context
// cancelled) are fatal and abort the whole job.
func (s *JobService) processRow(ctx context.Context, syncer RowSyncer, row csvimport.Row, mapping csvimport.ColumnMapping) (outcome importing.RowOutcome, errMsg string, fatal bool) {
	rec, err := importing.BuildRecord(row, mapping)
	if err != nil {
		return importing.OutcomeError, err.Error(), false
	}
	outcome, err = syncer.SyncRecord(ctx, rec)
	if err != nil {
		return importing.OutcomeError, fmt.Sprintf("line %d: %v", row.Line, err), isTransportError(ctx, err)
	}
	return outcome, "", false
}

// isTransportError distinguishes "the CRM could not be reached" from
// "the CRM rejected this row". Only the former aborts a job.
func isTransportError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// cancelled re-fetches the job document every few rows. A missing or
// non-active document means someone cancelled the import.
func (s *JobService) cancelled(ctx context.Context, job *importing.ImportJob, offset int) bool {
	if offset%s.cfg.CancelCheckEveryRows != 0 {
		return false
	}
	current, err := s.jobs.FindByID(ctx, job.ID)
	if err != nil {
		return true
	}
	return !current.Active()
}

func (s *JobService) fail(ctx context.Context, job *importing.ImportJob, cause string, log *zap.Logger) {
	if err := job.Fail(cause); err != nil {
		log.Error("job fail rejected", zap.Error(err))
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		log.Error("job save failed", zap.Error(err))
	}
	s.publishEvents(ctx, job)
	s.releaseLock(ctx)
	log.Error("import failed", zap.String("cause", cause))
}

// persistProgress saves the in-flight counters and refreshes the lock.
// It re-reads the stored document first so a concurrent cancellation is
// never overwritten by a progress save. Returns true when the loop must
// stop.
func (s *JobService) persistProgress(ctx context.Context, job *importing.ImportJob, log *zap.Logger) bool {
	current, err := s.jobs.FindByID(ctx, job.ID)
	if err != nil || !current.Active() {
		return true
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		log.Warn("progress save failed", zap.Error(err))
		return false
	}
	if s.lockStore == nil {
		return false
	}
	lock := &importing.ImportLock{
		Owner:       job.ID.String(),
		Filename:    job.Filename,
		StartedAt:   startedAt(job),
		Counters:    job.Counters,
		TotalRows:   job.TotalRows,
		RefreshedAt: time.Now(),
	}
	if err := s.lockStore.Refresh(ctx, lock, s.cfg.LockTTL); err != nil {
		log.Warn("lock refresh failed", zap.Error(err))
	}
	return false
}

func (s *JobService) acquireLock(ctx context.Context, job *importing.ImportJob) error {
	if s.lockStore == nil {
		return nil
	}
	lock := &importing.ImportLock{
		Owner:       job.ID.String(),
		Filename:    job.Filename,
		StartedAt:   time.Now(),
		TotalRows:   job.TotalRows,
		RefreshedAt: time.Now(),
	}
	ok, err := s.lockStore.Acquire(ctx, lock, s.cfg.LockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrImportLocked
	}
	return nil
}

func (s *JobService) releaseLock(ctx context.Context) {
	if s.lockStore == nil {
		return
	}
	if err := s.lockStore.Release(ctx); err != nil {
		s.logger.Warn("lock release failed", zap.Error(err))
	}
}

func (s *JobService) publishEvents(ctx context.Context, job *importing.ImportJob) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, job.GetDomainEvents()...); err != nil {
		s.logger.Warn("event publish failed", zap.Error(err))
	}
	job.ClearDomainEvents()
}

// enqueueRows publishes one task per row for the queue workers.
func (s *JobService) enqueueRows(ctx context.Context, job *importing.ImportJob, rows []csvimport.Row) error {
	if err := job.Start(); err != nil {
		return err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}
	for offset, row := range rows {
		task := queue.RowTask{
			JobID:  job.ID,
			Offset: offset,
			Line:   row.Line,
			Fields: row.Fields(),
		}
		if err := s.publisher.PublishRow(ctx, task); err != nil {
			return fmt.Errorf("enqueue row %d: %w", offset, err)
		}
	}
	return nil
}

// HandleRowTask executes one queue-mode row. Queue workers share no
// in-process caches; each task builds a fresh sync context, trading API
// calls for horizontal scalability.
func (s *JobService) HandleRowTask(ctx context.Context, task queue.RowTask) error {
	job, err := s.jobs.FindByID(ctx, task.JobID)
	if err != nil {
		// Job deleted: treat as cancelled, drop the task.
		s.logger.Info("row task for missing job, dropping",
			zap.String("job_id", task.JobID.String()))
		return nil
	}
	if !job.Active() {
		return nil
	}

	syncer := s.syncFor(job.StageID)
	row := csvimport.NewRow(task.Line, task.Fields)
	outcome, errMsg, fatal := s.processRow(ctx, syncer, row, job.Mapping)
	if fatal {
		// Transport errors are retryable; hand back to the queue.
		return fmt.Errorf("row %d: %s", task.Offset, errMsg)
	}
	if err := job.RecordRow(task.Offset, outcome, errMsg); err != nil {
		return err
	}
	if job.Counters.Processed >= job.TotalRows {
		if err := job.Complete(); err == nil {
			s.publishEvents(ctx, job)
			s.releaseLock(ctx)
		}
	}
	return s.jobs.Save(ctx, job)
}

// releaseRows zeroes rows[released:upto] so the chunks a run has finished
// with can be collected while later rows are still being synced.
func releaseRows(rows []csvimport.Row, released *int, upto int) {
	for i := *released; i < upto && i < len(rows); i++ {
		rows[i] = csvimport.Row{}
	}
	if upto > *released {
		*released = upto
	}
}

func filterPaid(rows []csvimport.Row, mapping csvimport.ColumnMapping, paidStatus string) []csvimport.Row {
	out := make([]csvimport.Row, 0, len(rows))
	for _, row := range rows {
		if mapping.Value(row, csvimport.FieldStatus) == paidStatus {
			out = append(out, row)
		}
	}
	return out
}

func distinctStatuses(rows []csvimport.Row, mapping csvimport.ColumnMapping) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		if v := mapping.Value(row, csvimport.FieldStatus); v != "" {
			seen[v] = true
		}
	}
	statuses := make([]string, 0, len(seen))
	for v := range seen {
		statuses = append(statuses, v)
	}
	sort.Strings(statuses)
	return statuses
}

func startedAt(job *importing.ImportJob) time.Time {
	if job.StartedAt != nil {
		return *job.StartedAt
	}
	return time.Now()
}
