package cleanup

import (
	"context"
	"errors"
	"sync"

	"github.com/Automaat/shader-buster/internal/cancel"
	"github.com/Automaat/shader-buster/internal/logging"
	"github.com/Automaat/shader-buster/internal/provider"
	"github.com/google/uuid"
)

// ErrRunActive is returned by Start while another run is in progress.
var ErrRunActive = errors.New("a cleanup run is already active")

// Runner runs at most one cleanup at a time on a background goroutine.
type Runner struct {
	orch   *Orchestrator
	mu     sync.Mutex
	active *Handle
}

// NewRunner creates a runner around orch.
func NewRunner(orch *Orchestrator) *Runner {
	return &Runner{orch: orch}
}

// Handle controls one started run.
type Handle struct {
	ID     string
	token  *cancel.Token
	done   chan struct{}
	result Result
}

// Cancel requests cooperative cancellation. The run stops at its next
// checkpoint. Reports whether this call requested it.
func (h *Handle) Cancel() bool {
	return h.token.Cancel()
}

// Done is closed when the run has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// Start launches a run over providers. A second Start while a run is active
// is rejected with ErrRunActive.
func (r *Runner) Start(ctx context.Context, providers []provider.Provider, opts Options, obs Observer) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, ErrRunActive
	}

	h := &Handle{
		ID:    uuid.NewString(),
		token: cancel.New(),
		done:  make(chan struct{}),
	}
	r.active = h

	reg := provider.NewRegistry(r.orch.deps.FS, providers...)
	runCtx := logging.WithRun(ctx, h.ID)

	go func() {
		defer func() {
			r.mu.Lock()
			r.active = nil
			r.mu.Unlock()
			close(h.done)
		}()
		h.result = r.orch.Run(runCtx, reg, opts, h.token, obs)
	}()

	return h, nil
}

// Active returns the running handle, or nil.
func (r *Runner) Active() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}
