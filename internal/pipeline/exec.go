package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"hotcron/internal/task/scheduler"
	logx "hotcron/pkg/logx"
)

// epochs hands out the context executions are bound to. rotate cancels the
// current one (killing everything launched under it) and starts a new one.
type epochs struct {
	mu       sync.Mutex
	parent   context.Context
	cur      context.Context
	cancel   context.CancelFunc
	inflight int
	closed   bool
	wg       sync.WaitGroup
}

func newEpochs(parent context.Context) *epochs {
	e := &epochs{parent: parent}
	e.cur, e.cancel = context.WithCancel(parent)
	return e
}

// acquire registers one execution under the current epoch.
func (e *epochs) acquire() (context.Context, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, false
	}
	e.inflight++
	e.wg.Add(1)
	return e.cur, true
}

func (e *epochs) release() {
	e.mu.Lock()
	e.inflight--
	e.mu.Unlock()
	e.wg.Done()
}

// rotate returns how many executions were running when it was called.
func (e *epochs) rotate() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0
	}
	e.cancel()
	e.cur, e.cancel = context.WithCancel(e.parent)
	return e.inflight
}

// close kills the current epoch and waits for every execution to finish.
func (e *epochs) close() {
	e.mu.Lock()
	e.closed = true
	e.cancel()
	e.mu.Unlock()
	e.wg.Wait()
}

func (p *Pipeline) launch(ctx context.Context, ep *epochs, tr scheduler.Trigger, out chan<- Instruction) {
	ectx, ok := ep.acquire()
	if !ok {
		return
	}
	runID := uuid.NewString()
	ex := p.runner.Launch(ectx, tr.Command)
	log := p.log.With(
		logx.String("run_id", runID),
		logx.Uint64("generation", tr.Generation),
		logx.Int("index", tr.Index),
	)
	log.Info("instruction launched", logx.String("command", tr.Command), logx.Int("pid", ex.PID))

	go func() {
		defer ep.release()
		o := ex.Outcome()
		in := Instruction{
			RunID:       runID,
			Generation:  tr.Generation,
			Index:       tr.Index,
			Schedule:    tr.Schedule,
			Instruction: tr.Command,
			Outcome:     o,
		}
		if !send(ctx, out, in) {
			log.Debug("instruction outcome discarded; feed closed", logx.Bool("killed", o.Killed))
		}
	}()
}
