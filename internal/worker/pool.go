// Package worker runs online leaderboard uploads off the caller's goroutine.
// A run's local write has already happened by the time it is enqueued here,
// so the pool is free to shed load: a dropped or failed upload costs the
// online board one entry and nothing else. Jobs are never retried.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metrics
var (
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upward_submit_jobs_total",
		Help: "Upload jobs processed by the submission pool, by result",
	}, []string{"result"})

	jobsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upward_submit_load_shed_total",
		Help: "Upload jobs dropped because the queue was full or stopped",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "upward_submit_queue_depth",
		Help: "Current depth of the submission queue",
	})

	jobLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upward_submit_job_latency_seconds",
		Help:    "Time from enqueue to upload completion",
		Buckets: prometheus.DefBuckets,
	})
)

// Submitter uploads one score and reports whether it was accepted.
type Submitter interface {
	Submit(ctx context.Context, name string, seconds float64) bool
}

// Job is one pending upload.
type Job struct {
	Name      string
	Time      float64
	Timestamp time.Time
	result    chan bool
}

// PoolConfig configures the pool
type PoolConfig struct {
	WorkerCount int
	QueueSize   int
	Submitter   Submitter
	Logger      *zap.Logger
}

// Pool is a fixed set of upload workers fed by a bounded queue.
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

// NewPool creates a pool. Call Start before enqueueing.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Submission pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
	)
}

// Stop closes the queue, lets the workers finish what is already queued,
// then releases the pool context. Only the first call does anything, and it
// is safe before Start.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping submission pool...")
		close(p.jobQueue)
		p.wg.Wait()
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Info("Submission pool stopped")
	})
}

// Enqueue queues an upload without blocking. The returned channel receives
// the upload result once. ok is false when the job was shed, in which case
// the channel is nil.
func (p *Pool) Enqueue(name string, seconds float64) (result <-chan bool, ok bool) {
	job := Job{
		Name:      name,
		Time:      seconds,
		Timestamp: time.Now(),
		result:    make(chan bool, 1),
	}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue upload (pool stopped)", "error", r)
			jobsLoadShed.Inc()
			result, ok = nil, false
		}
	}()

	if p.ctx != nil && p.ctx.Err() != nil {
		jobsLoadShed.Inc()
		return nil, false
	}

	select {
	case p.jobQueue <- job:
		return job.result, true
	default:
		p.logger.Warnw("Submission queue full, dropping upload", "name", name, "time", seconds)
		jobsLoadShed.Inc()
		return nil, false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		ok := p.config.Submitter.Submit(p.ctx, job.Name, job.Time)
		if ok {
			jobsProcessed.WithLabelValues("ok").Inc()
		} else {
			jobsProcessed.WithLabelValues("failed").Inc()
			p.logger.Warnw("Upload failed", "worker", id, "name", job.Name, "time", job.Time)
		}
		jobLatency.Observe(time.Since(job.Timestamp).Seconds())
		job.result <- ok
	}
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
