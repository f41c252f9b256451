package machine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/halo-sim/halo-sim/sim"
)

// ErrTaskPanic is wrapped by the TaskError of a task that panicked.
var ErrTaskPanic = errors.New("task panicked")

// TaskError reports the failure of one supervised task.
type TaskError struct {
	Name string
	Err  error
}

func (e *TaskError) Error() string { return fmt.Sprintf("task %s failed: %v", e.Name, e.Err) }
func (e *TaskError) Unwrap() error { return e.Err }

// TaskStatus is the lifecycle state of a supervised task.
type TaskStatus string

const (
	TaskRunning TaskStatus = "running"
	TaskExited  TaskStatus = "exited"
	TaskFailed  TaskStatus = "failed"
)

// TaskGroup runs named tasks concurrently. The first task to fail (return
// an error or panic) cancels the group context and sets the shutdown
// signal so the others can exit voluntarily. Tasks are never restarted or
// timed out: a task ignoring the signal keeps Wait blocked.
type TaskGroup struct {
	g    *errgroup.Group
	ctx  context.Context
	quit *sim.Signal
	log  logrus.FieldLogger

	mu     sync.Mutex
	status map[string]TaskStatus
}

// NewTaskGroup creates a group whose tasks run under a context derived from
// ctx.
func NewTaskGroup(ctx context.Context, quit *sim.Signal, log logrus.FieldLogger) *TaskGroup {
	g, gctx := errgroup.WithContext(ctx)
	return &TaskGroup{g: g, ctx: gctx, quit: quit, log: log, status: make(map[string]TaskStatus)}
}

// Go starts fn as the task called name. Names must be unique in the group.
func (tg *TaskGroup) Go(name string, fn func(ctx context.Context) error) {
	tg.mu.Lock()
	if _, dup := tg.status[name]; dup {
		tg.mu.Unlock()
		panic(fmt.Sprintf("TaskGroup.Go: task %q started twice", name))
	}
	tg.status[name] = TaskRunning
	tg.mu.Unlock()

	tg.g.Go(func() (err error) {
		log := tg.log.WithField("task", name)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			}
			if err != nil {
				err = &TaskError{Name: name, Err: err}
				log.WithError(err).Error("Task failed, requesting shutdown")
				tg.quit.Set()
				tg.setStatus(name, TaskFailed)
				return
			}
			log.Debug("Task exited")
			tg.setStatus(name, TaskExited)
		}()
		return fn(tg.ctx)
	})
}

func (tg *TaskGroup) setStatus(name string, s TaskStatus) {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	tg.status[name] = s
}

// Context returns the group context, cancelled when a task fails or Wait
// returns.
func (tg *TaskGroup) Context() context.Context { return tg.ctx }

// Wait blocks until every task has returned and reports the first failure
// as a *TaskError.
func (tg *TaskGroup) Wait() error {
	return tg.g.Wait()
}

// Status returns the state of every task started so far.
func (tg *TaskGroup) Status() map[string]TaskStatus {
	tg.mu.Lock()
	defer tg.mu.Unlock()
	out := make(map[string]TaskStatus, len(tg.status))
	for name, s := range tg.status {
		out[name] = s
	}
	return out
}

// Failed returns the names of failed tasks in sorted order.
func (tg *TaskGroup) Failed() []string {
	var names []string
	for name, s := range tg.Status() {
		if s == TaskFailed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
