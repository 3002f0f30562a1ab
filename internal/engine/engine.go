package engine

import (
	"fmt"
	"sync"
	"time"

	"vantage/internal/log"
	"vantage/pkg/types"
)

// preemptInterval rate-limits preemption: at most one running job is
// killed per interval to make room for a focus job, so a user scrolling
// quickly cannot churn the whole pool.
const preemptInterval = 200 * time.Millisecond

type jobKey struct {
	path string
	tool string
}

type running struct {
	job  types.JobSpec
	tier int
	w    *worker
}

// Engine owns the job queue and the worker pool. Callers enqueue jobs
// with a placement (tier, distance) and receive completed results on the
// Completions channel; everything between - dispatch order, timeouts,
// crashes, preemption - is the engine's business.
type Engine struct {
	root    string
	theme   string
	workers int

	mu        sync.Mutex
	cond      *sync.Cond
	queue     *Queue
	paused    bool
	stopped   bool
	nextID    uint64
	queued    map[jobKey]types.SnapshotKey // dup suppression for pending jobs
	inflight  map[uint64]*running
	preempted map[uint64]bool
	retried   map[uint64]bool
	lastKill  time.Time

	completions chan types.Result
	starts      chan types.Started
	wg          sync.WaitGroup
}

func New(root, theme string, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	e := &Engine{
		root:        root,
		theme:       theme,
		workers:     workers,
		queue:       NewQueue(),
		queued:      map[jobKey]types.SnapshotKey{},
		inflight:    map[uint64]*running{},
		preempted:   map[uint64]bool{},
		retried:     map[uint64]bool{},
		completions: make(chan types.Result, 256),
		starts:      make(chan types.Started, 256),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Completions delivers finished results. The channel is bounded; the
// consumer must keep draining it.
func (e *Engine) Completions() <-chan types.Result {
	return e.completions
}

// Starts delivers dispatch notifications. These are advisory: when the
// consumer falls behind they are dropped, never blocked on.
func (e *Engine) Starts() <-chan types.Started {
	return e.starts
}

// Start launches the worker pool.
func (e *Engine) Start() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.workerLoop(i)
	}
}

// Stop drains the pool: pending jobs are abandoned, running jobs are
// killed, and the completions channel is closed once every worker exits.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.queue.Drain()
	e.queued = map[jobKey]types.SnapshotKey{}
	victims := make([]*worker, 0, len(e.inflight))
	for _, r := range e.inflight {
		victims = append(victims, r.w)
	}
	e.cond.Broadcast()
	e.mu.Unlock()

	var kills sync.WaitGroup
	for _, w := range victims {
		kills.Add(1)
		go func(w *worker) {
			defer kills.Done()
			w.kill()
		}(w)
	}
	kills.Wait()
	e.wg.Wait()
	close(e.completions)
	close(e.starts)
}

// Enqueue schedules one tool run, assigning the next job ID. A job for
// the same (path, tool) with the same snapshot key that is already
// pending or running is suppressed; a differing key replaces the pending
// job, since its inputs are stale.
func (e *Engine) Enqueue(path, absPath, tool string, argv []string, timeout time.Duration,
	key types.SnapshotKey, tier, distance int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return false
	}

	jk := jobKey{path: path, tool: tool}
	if existing, ok := e.queued[jk]; ok {
		if existing == key {
			return false
		}
		e.removePendingLocked(jk)
	}
	for _, r := range e.inflight {
		if r.job.Path == path && r.job.Tool == tool && r.job.Key == key {
			return false
		}
	}

	e.nextID++
	job := types.JobSpec{
		ID:      e.nextID,
		Path:    path,
		AbsPath: absPath,
		Tool:    tool,
		Argv:    argv,
		Timeout: timeout,
		Key:     key,
	}
	e.queue.Push(job, tier, distance)
	e.queued[jk] = key

	if tier == TierFocus {
		e.maybePreemptLocked()
	}
	e.cond.Signal()
	return true
}

// CancelPath drops every pending job for a path. Running jobs finish;
// their results are discarded by the consumer when the key no longer
// matches.
func (e *Engine) CancelPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for jk := range e.queued {
		if jk.path == path {
			e.removePendingLocked(jk)
		}
	}
}

func (e *Engine) removePendingLocked(jk jobKey) {
	e.queue.RemoveWhere(func(job types.JobSpec) bool {
		return job.Path == jk.path && job.Tool == jk.tool
	})
	delete(e.queued, jk)
}

// Rescore reassigns every pending job's placement after the cursor moved
// or the grid order changed.
func (e *Engine) Rescore(score func(path, tool string) (tier, distance int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue.Rescore(func(job types.JobSpec) (int, int) {
		return score(job.Path, job.Tool)
	})
}

// SetPaused stops or resumes dispatch. Running jobs always finish.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	e.paused = paused
	if !paused {
		e.cond.Broadcast()
	}
	e.mu.Unlock()
}

// Counts reports pending and running totals for the status bar.
func (e *Engine) Counts() (pending, active int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Len(), len(e.inflight)
}

// maybePreemptLocked kills one worker running low-tier work so the next
// dispatch picks up the focus job, at most once per preemptInterval. The
// killed job goes back in the queue.
func (e *Engine) maybePreemptLocked() {
	if len(e.inflight) < e.workers {
		return // an idle worker will take the job
	}
	if time.Since(e.lastKill) < preemptInterval {
		return
	}
	for id, r := range e.inflight {
		if r.tier == TierRest {
			e.lastKill = time.Now()
			e.preempted[id] = true
			log.Debug("preempting %s/%s for focus work", r.job.Path, r.job.Tool)
			go r.w.kill()
			return
		}
	}
}

// workerLoop is one pool slot: it owns a child process, takes jobs off
// the queue, and respawns the child when it dies.
func (e *Engine) workerLoop(id int) {
	defer e.wg.Done()
	var w *worker

	defer func() {
		if w != nil {
			w.shutdown()
		}
	}()

	for {
		e.mu.Lock()
		for !e.stopped && (e.paused || e.queue.Len() == 0) {
			e.cond.Wait()
		}
		if e.stopped {
			e.mu.Unlock()
			return
		}
		job, tier, _ := e.queue.Pop()
		delete(e.queued, jobKey{path: job.Path, tool: job.Tool})

		if w == nil {
			var err error
			w, err = spawnWorker(id, e.root, e.theme)
			if err != nil {
				e.mu.Unlock()
				log.Error("worker spawn failed", err)
				e.deliver(errorResult(job, err))
				continue
			}
		}
		r := &running{job: job, tier: tier, w: w}
		e.inflight[job.ID] = r
		e.mu.Unlock()

		select {
		case e.starts <- types.Started{Path: job.Path, Tool: job.Tool, Key: job.Key}:
		default:
		}

		res, err := w.run(job)

		e.mu.Lock()
		delete(e.inflight, job.ID)
		wasPreempted := e.preempted[job.ID]
		delete(e.preempted, job.ID)
		e.mu.Unlock()

		if err == nil {
			e.mu.Lock()
			delete(e.retried, job.ID)
			e.mu.Unlock()
			e.deliver(res)
			continue
		}

		// The child is gone either way; replace it on the next job.
		w.kill()
		w = nil

		if wasPreempted {
			e.requeue(job, TierRest, 0)
			continue
		}
		e.mu.Lock()
		alreadyRetried := e.retried[job.ID]
		if !alreadyRetried {
			e.retried[job.ID] = true
		}
		e.mu.Unlock()
		if alreadyRetried {
			e.mu.Lock()
			delete(e.retried, job.ID)
			e.mu.Unlock()
			log.Error(fmt.Sprintf("worker crashed twice on %s/%s", job.Path, job.Tool), err)
			e.deliver(errorResult(job, err))
			continue
		}
		log.Warn("worker crashed on %s/%s, retrying once: %v", job.Path, job.Tool, err)
		e.requeueSameID(job, TierFocus, 0)
	}
}

// requeue re-enqueues a job under a fresh ID.
func (e *Engine) requeue(job types.JobSpec, tier, distance int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.nextID++
	job.ID = e.nextID
	e.queue.Push(job, tier, distance)
	e.queued[jobKey{path: job.Path, tool: job.Tool}] = job.Key
	e.cond.Signal()
}

// requeueSameID re-enqueues a crashed job keeping its ID, so the retry
// bookkeeping can recognize the second failure.
func (e *Engine) requeueSameID(job types.JobSpec, tier, distance int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.queue.Push(job, tier, distance)
	e.queued[jobKey{path: job.Path, tool: job.Tool}] = job.Key
	e.cond.Signal()
}

func (e *Engine) deliver(res types.Result) {
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return // nobody is draining anymore
	}
	e.completions <- res
}

func errorResult(job types.JobSpec, err error) types.Result {
	now := time.Now()
	return types.Result{
		ID:         job.ID,
		Path:       job.Path,
		Tool:       job.Tool,
		Key:        job.Key,
		Status:     types.Error,
		Body:       fmt.Sprintf("worker failure: %v", err),
		StartedAt:  now,
		FinishedAt: now,
	}
}
