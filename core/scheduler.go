package core

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vistaforge/renderpress/config"
	apperrors "github.com/vistaforge/renderpress/errors"
)

// Runner is a minimal interface over pipeline.Executor so that core does not
// import the pipeline package (avoiding a circular dependency).
type Runner interface {
	Apply(ctx context.Context, taskID string, f *Frame, ops []Operation) (*Frame, map[string]time.Duration, error)
}

// Scheduler expands manifests into tasks and drives them through a fixed
// worker pool.  It is safe for concurrent use.
type Scheduler struct {
	cfg      config.Config
	runner   Runner
	loader   Loader
	sink     Sink
	registry Registry
	logger   Logger
	metrics  MetricsCollector

	// Worker pool.
	jobs     chan job
	wg       sync.WaitGroup
	once     sync.Once
	shutdown chan struct{}

	// Atomic counters for lightweight internal metrics.
	succeededCount int64
	failedCount    int64
}

// job pairs a task with its execution context and result delivery.
type job struct {
	ctx     context.Context
	task    Task
	deliver func(TaskResult)
}

// NewScheduler creates a Scheduler over the given collaborators.  Call
// Start before submitting tasks; call Stop when done.
func NewScheduler(cfg config.Config, runner Runner, loader Loader, sink Sink, reg Registry) *Scheduler {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Scheduler{
		cfg:      cfg,
		runner:   runner,
		loader:   loader,
		sink:     sink,
		registry: reg,
		jobs:     make(chan job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (s *Scheduler) SetLogger(l Logger) { s.logger = l }

// SetMetrics attaches a metrics collector.
func (s *Scheduler) SetMetrics(m MetricsCollector) { s.metrics = m }

// Registry returns the codec registry so callers can register encoders and
// decoders after construction.
func (s *Scheduler) Registry() Registry { return s.registry }

// Start launches the worker pool.  It is idempotent.
func (s *Scheduler) Start() {
	s.once.Do(func() {
		workerCount := s.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			s.wg.Add(1)
			go s.worker()
		}
	})
}

// Stop shuts down all workers.  Tasks still queued are not picked up after
// Stop returns.
func (s *Scheduler) Stop() {
	close(s.shutdown)
	s.wg.Wait()
}

// ExpandTasks flattens renders into the (source, variant) cross product,
// resolving each source against inputDir unless it is already absolute.
// Expansion order is manifest order, and it is the order summaries report.
func ExpandTasks(inputDir string, renders []Render) []Task {
	var tasks []Task
	for _, r := range renders {
		src := r.Source
		if inputDir != "" && !filepath.IsAbs(src) {
			src = filepath.Join(inputDir, src)
		}
		for _, v := range r.Variants {
			tasks = append(tasks, NewTask(src, v))
		}
	}
	return tasks
}

// Run expands renders into tasks, executes them across the pool, and blocks
// until every task has terminated.  Task failures land in the summary;
// they never abort sibling tasks.
func (s *Scheduler) Run(ctx context.Context, renders []Render) *Summary {
	s.Start()
	start := time.Now()

	tasks := ExpandTasks(s.cfg.InputDir, renders)
	results := make([]TaskResult, len(tasks))
	done := make(chan struct{}, len(tasks))

	submitted := 0
	for i := range tasks {
		idx := i
		j := job{
			ctx:  ctx,
			task: tasks[idx],
			deliver: func(r TaskResult) {
				results[idx] = r
				done <- struct{}{}
			},
		}
		select {
		case s.jobs <- j:
			submitted++
		case <-ctx.Done():
			results[idx] = s.fail(TaskResult{Task: tasks[idx], State: TaskRunning}, start,
				apperrors.Wrap(apperrors.CategoryPipeline, "submit", ctx.Err()))
		}
	}
	for n := 0; n < submitted; n++ {
		<-done
	}

	summary := &Summary{Results: results, Elapsed: time.Since(start)}
	for _, r := range results {
		if r.State == TaskSucceeded {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	s.logInfo("run complete",
		"tasks", len(tasks), "succeeded", summary.Succeeded,
		"failed", summary.Failed, "elapsed", summary.Elapsed)
	return summary
}

// Submit enqueues one task without blocking and delivers its result to
// resultCh.  Returns ErrQueueFull when the queue is at capacity.
func (s *Scheduler) Submit(ctx context.Context, t Task, resultCh chan<- TaskResult) error {
	j := job{
		ctx:  ctx,
		task: t,
		deliver: func(r TaskResult) {
			if resultCh != nil {
				resultCh <- r
			}
		},
	}
	select {
	case s.jobs <- j:
		return nil
	default:
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrQueueFull)
	}
}

// Execute runs one task synchronously: load, apply, encode, save.  The
// returned result is terminal.
func (s *Scheduler) Execute(ctx context.Context, task Task) TaskResult {
	start := time.Now()
	res := TaskResult{Task: task, State: TaskRunning}
	s.logDebug("task start", "task", task.ID, "source", task.Source)

	if err := ctx.Err(); err != nil {
		return s.fail(res, start, apperrors.Wrap(apperrors.CategoryPipeline, "execute", err))
	}

	frame, err := s.loader.Load(ctx, task.Source)
	if err != nil {
		return s.fail(res, start, err)
	}

	frame, timings, err := s.runner.Apply(ctx, task.ID, frame, task.Variant.Operations)
	res.OpTimings = timings
	if err != nil {
		return s.fail(res, start, err)
	}

	data, format, err := s.encode(ctx, frame, task.Variant)
	if err != nil {
		return s.fail(res, start, err)
	}

	outPath := task.Variant.Filename
	if s.cfg.OutputDir != "" && !filepath.IsAbs(outPath) {
		outPath = filepath.Join(s.cfg.OutputDir, outPath)
	}
	if err := s.sink.Save(ctx, outPath, data); err != nil {
		return s.fail(res, start, err)
	}

	res.State = TaskSucceeded
	res.OutputPath = outPath
	res.Elapsed = time.Since(start)
	atomic.AddInt64(&s.succeededCount, 1)
	if s.metrics != nil {
		s.metrics.RecordTaskOutcome(TaskSucceeded)
		s.metrics.RecordThroughput(int64(len(data)))
	}
	s.logInfo("task done",
		"task", task.ID, "output", outPath,
		"format", string(format), "bytes", len(data), "elapsed", res.Elapsed)
	return res
}

// encode serialises the frame in the format implied by the variant filename.
// Quality precedence: operation override, then variant, then config default.
func (s *Scheduler) encode(ctx context.Context, f *Frame, v Variant) ([]byte, Format, error) {
	format := FormatFromPath(v.Filename)
	if format == FormatUnknown {
		return nil, format, apperrors.Invalid(apperrors.CategoryEncode, "encode",
			"cannot infer output format from %q", v.Filename)
	}
	enc, ok := s.registry.EncoderFor(format)
	if !ok {
		return nil, format, apperrors.New(apperrors.CategoryEncode, "encode",
			fmt.Errorf("%w: no encoder for %s", apperrors.ErrUnsupportedFormat, format))
	}

	quality := f.Quality
	if quality <= 0 {
		quality = v.Quality
	}
	if quality <= 0 {
		quality = s.cfg.DefaultQuality
	}

	data, err := enc.Encode(ctx, f, EncodeOptions{Quality: quality})
	if err != nil {
		return nil, format, err
	}
	return data, format, nil
}

func (s *Scheduler) fail(res TaskResult, start time.Time, err error) TaskResult {
	res.State = TaskFailed
	res.Err = err
	res.Elapsed = time.Since(start)
	atomic.AddInt64(&s.failedCount, 1)
	if s.metrics != nil {
		s.metrics.RecordTaskOutcome(TaskFailed)
		s.metrics.RecordError("task", string(apperrors.CategoryOf(err)))
	}
	s.logError("task failed", "task", res.Task.ID, "error", err)
	return res
}

// ── Worker pool internals ─────────────────────────────────────────────────────

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		case j, ok := <-s.jobs:
			if !ok {
				return
			}
			s.runJob(j)
		}
	}
}

func (s *Scheduler) runJob(j job) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout := s.cfg.TaskTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	j.deliver(s.Execute(ctx, j.task))
}

// SucceededCount returns the number of tasks that completed successfully.
func (s *Scheduler) SucceededCount() int64 { return atomic.LoadInt64(&s.succeededCount) }

// FailedCount returns the number of tasks that terminated in failure.
func (s *Scheduler) FailedCount() int64 { return atomic.LoadInt64(&s.failedCount) }

func (s *Scheduler) logDebug(msg string, fields ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, fields...)
	}
}

func (s *Scheduler) logInfo(msg string, fields ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, fields...)
	}
}

func (s *Scheduler) logError(msg string, fields ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, fields...)
	}
}
