package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"sonora/types"
	"sonora/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by AddJob when the queue buffer is exhausted
	ErrQueueFull = errors.New("scan queue is full")
	// ErrNotDirectory is returned by AddJob when the target is not a directory
	ErrNotDirectory = errors.New("not a directory")
)

const queueSize = 100

// DirectoryScanner scans a directory into library tracks
type DirectoryScanner interface {
	ScanDirectory(ctx context.Context, root string, progress ProgressFunc) (*ScanResult, error)
}

// JobQueue interface defines the methods for managing scan jobs
type JobQueue interface {
	Start()
	Stop()
	AddJob(directory string) (*types.ScanJob, error)
	GetJob(id string) (*types.ScanJob, bool)
	GetAllJobs() []*types.ScanJob
	CancelJob(id string) bool
}

// jobQueue manages scan jobs. Getters return copies; only workers mutate jobs.
type jobQueue struct {
	jobs       map[string]*types.ScanJob
	cancels    map[string]context.CancelFunc
	queue      chan *types.ScanJob
	mu         sync.RWMutex
	maxWorkers int

	scanner DirectoryScanner
	scope   *Scope
	hub     websocket.Hub
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobQueue creates a new job queue. hub and scope may be nil.
func NewJobQueue(maxWorkers int, scanner DirectoryScanner, scope *Scope, hub websocket.Hub, logger *zap.Logger) JobQueue {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &jobQueue{
		jobs:       make(map[string]*types.ScanJob),
		cancels:    make(map[string]context.CancelFunc),
		queue:      make(chan *types.ScanJob, queueSize),
		maxWorkers: maxWorkers,
		scanner:    scanner,
		scope:      scope,
		hub:        hub,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// AddJob validates the directory and queues a scan of it
func (jq *jobQueue) AddJob(directory string) (*types.ScanJob, error) {
	abs, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}

	job := &types.ScanJob{
		ID:        uuid.New().String(),
		Directory: abs,
		Status:    types.JobStatusQueued,
		CreatedAt: time.Now(),
	}

	jq.mu.Lock()
	defer jq.mu.Unlock()

	select {
	case jq.queue <- job:
	default:
		return nil, ErrQueueFull
	}
	jq.jobs[job.ID] = job

	jq.logger.Info("scan job queued", zap.String("job", job.ID), zap.String("directory", abs))
	return snapshot(job), nil
}

// GetJob retrieves a job by ID
func (jq *jobQueue) GetJob(id string) (*types.ScanJob, bool) {
	jq.mu.RLock()
	defer jq.mu.RUnlock()
	job, exists := jq.jobs[id]
	if !exists {
		return nil, false
	}
	return snapshot(job), true
}

// GetAllJobs returns all jobs, oldest first
func (jq *jobQueue) GetAllJobs() []*types.ScanJob {
	jq.mu.RLock()
	defer jq.mu.RUnlock()

	jobs := make([]*types.ScanJob, 0, len(jq.jobs))
	for _, job := range jq.jobs {
		jobs = append(jobs, snapshot(job))
	}
	sortJobs(jobs)
	return jobs
}

// CancelJob cancels a queued or running job
func (jq *jobQueue) CancelJob(id string) bool {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, exists := jq.jobs[id]
	if !exists {
		return false
	}

	switch job.Status {
	case types.JobStatusQueued:
		now := time.Now()
		job.Status = types.JobStatusCancelled
		job.CompletedAt = &now
		jq.broadcastStatus(job)
		return true
	case types.JobStatusProcessing:
		if cancel, ok := jq.cancels[id]; ok {
			cancel()
			return true
		}
	}
	return false
}

// Start begins processing jobs
func (jq *jobQueue) Start() {
	for i := 0; i < jq.maxWorkers; i++ {
		jq.wg.Add(1)
		go jq.worker()
	}
}

// Stop cancels running scans and waits for the workers to exit
func (jq *jobQueue) Stop() {
	jq.cancel()
	jq.wg.Wait()
}

// worker processes jobs from the queue
func (jq *jobQueue) worker() {
	defer jq.wg.Done()
	for {
		select {
		case <-jq.ctx.Done():
			return
		case job := <-jq.queue:
			jq.process(job)
		}
	}
}

func (jq *jobQueue) process(job *types.ScanJob) {
	ctx, ok := jq.begin(job.ID)
	if !ok {
		return
	}

	result, err := jq.scanner.ScanDirectory(ctx, job.Directory, func(done, total int, file string) {
		jq.updateProgress(job.ID, done, total, file)
	})

	switch {
	case err != nil && ctx.Err() != nil:
		jq.finish(job.ID, types.JobStatusCancelled, nil, "")
		jq.logger.Info("scan job cancelled", zap.String("job", job.ID))
	case err != nil:
		jq.finish(job.ID, types.JobStatusFailed, nil, err.Error())
		jq.logger.Error("scan job failed", zap.String("job", job.ID), zap.Error(err))
	default:
		if jq.scope != nil {
			paths := make([]string, 0, len(result.Tracks))
			for _, t := range result.Tracks {
				paths = append(paths, t.Path)
			}
			jq.scope.Allow(paths...)
		}
		jq.finish(job.ID, types.JobStatusCompleted, result, "")
		jq.logger.Info("scan job completed",
			zap.String("job", job.ID),
			zap.Int("tracks", len(result.Tracks)),
			zap.Int("skipped", result.Skipped))
	}
}

// begin marks a queued job as processing and returns its context.
// Jobs cancelled while queued are dropped.
func (jq *jobQueue) begin(id string) (context.Context, bool) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, exists := jq.jobs[id]
	if !exists || job.Status != types.JobStatusQueued {
		return nil, false
	}

	ctx, cancel := context.WithCancel(jq.ctx)
	jq.cancels[id] = cancel

	now := time.Now()
	job.Status = types.JobStatusProcessing
	job.StartedAt = &now
	jq.broadcastStatus(job)
	return ctx, true
}

func (jq *jobQueue) updateProgress(id string, done, total int, file string) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	job, exists := jq.jobs[id]
	if !exists {
		return
	}
	if done > job.Progress {
		job.Progress = done
	}
	job.Total = total

	if jq.hub != nil && total > 0 {
		jq.hub.BroadcastProgress(id, "progress", string(job.Status), file,
			fmt.Sprintf("Scanned %d of %d files", job.Progress, total),
			float64(job.Progress)/float64(total)*100)
	}
}

func (jq *jobQueue) finish(id string, status types.JobStatus, result *ScanResult, errorMsg string) {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if cancel, ok := jq.cancels[id]; ok {
		cancel()
		delete(jq.cancels, id)
	}

	job, exists := jq.jobs[id]
	if !exists {
		return
	}

	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.Error = errorMsg
	if result != nil {
		job.Tracks = result.Tracks
		job.Skipped = result.Skipped
	}
	jq.broadcastStatus(job)
}

// broadcastStatus must be called with jq.mu held
func (jq *jobQueue) broadcastStatus(job *types.ScanJob) {
	if jq.hub == nil {
		return
	}

	msgType := "status"
	message := string(job.Status)
	progress := 0.0
	if job.Total > 0 {
		progress = float64(job.Progress) / float64(job.Total) * 100
	}

	switch job.Status {
	case types.JobStatusCompleted:
		msgType = "complete"
		progress = 100.0
		message = fmt.Sprintf("Found %d tracks in %s", len(job.Tracks), job.Directory)
	case types.JobStatusFailed:
		msgType = "error"
		message = job.Error
	case types.JobStatusProcessing:
		message = fmt.Sprintf("Started scanning %s", job.Directory)
	}

	jq.hub.BroadcastProgress(job.ID, msgType, string(job.Status), "", message, progress)
}

func snapshot(job *types.ScanJob) *types.ScanJob {
	c := *job
	if job.Tracks != nil {
		c.Tracks = append([]types.Track(nil), job.Tracks...)
	}
	return &c
}

func sortJobs(jobs []*types.ScanJob) {
	slices.SortFunc(jobs, func(a, b *types.ScanJob) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
