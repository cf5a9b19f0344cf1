// Package executor implements the cooperative, single-threaded deterministic
// task scheduler that runs workflow code, signal/query/update handlers, and
// interceptor layers. Exactly one task ever executes at a time; the executor
// does not preempt a running task, and the order in which suspended tasks
// are resumed is entirely controlled by callers appending to the ready
// queue (see Resume), never by goroutine scheduling.
package executor

import "sync"

// TaskFunc is the body of a scheduled task. It receives a TaskContext bound
// to its own Task so it can spawn siblings and suspend itself.
type TaskFunc func(ctx *TaskContext)

// Task is a handle to a scheduled unit of work. The zero value is not
// meaningful; Tasks are created by Executor.Spawn.
type Task struct {
	id       uint64
	resumeCh chan struct{}
	pauseCh  chan struct{}

	mu       sync.Mutex
	started  bool
	finished bool
}

// Finished reports whether the task's body has returned.
func (t *Task) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// TaskContext is the per-task handle passed to a running TaskFunc.
type TaskContext struct {
	ex   *Executor
	task *Task
}

// Spawn schedules a new sibling task. The sibling is appended to the ready
// queue and runs after the current task's turn ends (suspends or returns),
// after any tasks already ahead of it in the queue.
func (c *TaskContext) Spawn(fn TaskFunc) *Task {
	return c.ex.Spawn(fn)
}

// Suspend parks the current task: it yields control back to the executor's
// drain loop and blocks until some future Resume(task) call hands control
// back. This is the executor's only suspension primitive; every
// domain-level wait (sleep, activity, child, condition, signal) is built on
// top of it by the state machine.
func (c *TaskContext) Suspend() {
	c.task.pauseCh <- struct{}{}
	<-c.task.resumeCh
}

// Task returns the Task this context is bound to, so callers can later
// Resume it.
func (c *TaskContext) Task() *Task {
	return c.task
}

// Executor is a single logical worker with an ordered, FIFO ready-queue.
// It is not safe for concurrent use from multiple goroutines: the Instance
// Orchestrator drives it from a single goroutine per workflow run, matching
// the "no workflow code may migrate to another thread" scheduling model.
type Executor struct {
	nextID uint64
	ready  []*Task
	fns    map[*Task]TaskFunc
}

// New constructs an empty Executor.
func New() *Executor {
	return &Executor{fns: make(map[*Task]TaskFunc)}
}

// Spawn schedules fn to run as a new task, appended to the tail of the ready
// queue. The task does not start executing until the executor reaches it in
// Drain.
func (e *Executor) Spawn(fn TaskFunc) *Task {
	e.nextID++
	t := &Task{
		id:       e.nextID,
		resumeCh: make(chan struct{}),
		pauseCh:  make(chan struct{}),
	}
	e.fns[t] = fn
	e.ready = append(e.ready, t)
	return t
}

// Resume re-enqueues a previously suspended task at the tail of the ready
// queue, to be given its turn on a future Drain call. Resuming a task that
// has already finished is a no-op.
func (e *Executor) Resume(t *Task) {
	if t.Finished() {
		return
	}
	e.ready = append(e.ready, t)
}

// Drain runs ready tasks to quiescence: it repeatedly gives the task at the
// front of the ready queue its turn (starting it if new, resuming it
// otherwise) and waits for that task to either suspend or finish before
// considering the next one. It returns once the ready queue is empty, i.e.
// once every live task is parked on a state-machine wait.
func (e *Executor) Drain() {
	for len(e.ready) > 0 {
		t := e.ready[0]
		e.ready = e.ready[1:]

		t.mu.Lock()
		started := t.started
		t.started = true
		t.mu.Unlock()

		if !started {
			fn := e.fns[t]
			ctx := &TaskContext{ex: e, task: t}
			go func() {
				fn(ctx)
				t.mu.Lock()
				t.finished = true
				t.mu.Unlock()
				t.pauseCh <- struct{}{}
			}()
		} else {
			t.resumeCh <- struct{}{}
		}
		<-t.pauseCh
	}
}

// Runnable reports whether any task is currently queued to run on the next
// Drain call.
func (e *Executor) Runnable() bool {
	return len(e.ready) > 0
}
