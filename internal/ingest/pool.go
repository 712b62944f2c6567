package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/database"
)

// PostWriteJob is the best-effort work queued after a transcript is written.
type PostWriteJob struct {
	Transcript database.Transcript
	Enqueued   time.Time
}

// QueueStats reports the current state of the post-write queue.
type QueueStats struct {
	Workers   int   `json:"workers"`
	Pending   int   `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// PoolOptions configures the post-write worker pool.
type PoolOptions struct {
	Workers   int
	QueueSize int
	Process   func(ctx context.Context, job PostWriteJob) error
	Log       zerolog.Logger
}

// Pool runs post-write jobs off the request path.
type Pool struct {
	jobs   chan PostWriteJob
	opts   PoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewPool(opts PoolOptions) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		jobs:   make(chan PostWriteJob, opts.QueueSize),
		opts:   opts,
		log:    opts.Log.With().Str("component", "post_write").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.log.Info().Int("workers", p.opts.Workers).Int("queue_size", p.opts.QueueSize).Msg("post-write pool started")
}

// Stop drains queued jobs and waits for the workers to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.log.Info().
		Int64("completed", p.completed.Load()).
		Int64("failed", p.failed.Load()).
		Int64("dropped", p.dropped.Load()).
		Msg("post-write pool stopped")
}

// Enqueue adds a job without blocking. Returns false if the queue is full
// or the pool is stopped.
func (p *Pool) Enqueue(j PostWriteJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.dropped.Add(1)
		return false
	}
	select {
	case p.jobs <- j:
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Stats returns current queue statistics.
func (p *Pool) Stats() QueueStats {
	return QueueStats{
		Workers:   p.opts.Workers,
		Pending:   len(p.jobs),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	log := p.log.With().Int("worker", id).Logger()

	for job := range p.jobs {
		if err := p.opts.Process(p.ctx, job); err != nil {
			p.failed.Add(1)
			log.Warn().Err(err).
				Str("transcript_id", job.Transcript.ID).
				Str("meeting_id", job.Transcript.MeetingID).
				Msg("post-write job failed")
		} else {
			p.completed.Add(1)
		}
	}
}
