package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/store"
)

// Engine sequences commands, applies them to the ledger and commits them to
// the journal.
//
// Thread-safety model:
//   - Execute(): safe from any goroutine; callers are serialized
//   - Enqueue()/Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Ledger(): safe from any goroutine
type Engine struct {
	mu         sync.RWMutex // write-held across seq stamping, apply and commit
	store      *store.Store
	ledger     *ledger.Ledger
	ledgerOpts []ledger.Option
	policy     store.Policy
	bound      bool // journal already carries policy
	clock      Sequencer
	queue      *requestQueue
	txGen      TxIDGenerator
	log        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLedgerOptions sets the policies used for the ledger the engine builds,
// both at construction and on Recover. The journal is bound to these
// policies on its first commit.
func WithLedgerOptions(opts ...ledger.Option) Option {
	return func(e *Engine) {
		e.ledgerOpts = append(e.ledgerOpts, opts...)
	}
}

// WithClock replaces the logical clock. Used by the scenario harness.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger replaces slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine over an empty ledger with the clock at 0.
// Call Recover to resume from a populated store.
func New(s *store.Store, txGen TxIDGenerator, opts ...Option) *Engine {
	e := &Engine{
		store: s,
		clock: NewClock(),
		queue: newRequestQueue(),
		txGen: txGen,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = ledger.New(e.ledgerOpts...)
	e.policy = store.Policy{Pricing: e.ledger.Pricing(), Reward: e.ledger.Reward()}
	return e
}

// Ledger returns the in-memory ledger for read paths. The pointer is
// replaced when the engine reloads from the store, so callers should not
// hold it across commands.
func (e *Engine) Ledger() *ledger.Ledger {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger
}

// Seq returns the last seq handed out.
func (e *Engine) Seq() int64 {
	return e.clock.Current()
}

// Recover loads the materialized state and the clock position from the store.
// It fails with ErrCodePolicyMismatch if the journal was written under a
// different policy than the engine's.
func (e *Engine) Recover(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reload(ctx)
}

func (e *Engine) reload(ctx context.Context) error {
	stored, bound, err := e.store.LoadPolicy(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if bound && stored != e.policy {
		return &RuntimeError{
			Code:    ErrCodePolicyMismatch,
			Message: fmt.Sprintf("journal has %+v, engine has %+v", stored, e.policy),
		}
	}

	st, err := e.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	l, err := ledger.FromState(st, e.ledgerOpts...)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	seq, err := e.store.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}

	e.ledger = l
	e.clock.Set(seq)
	e.bound = bound

	e.log.Info("engine recovered",
		"seq", seq,
		"producers", len(st.Producers),
		"consumers", len(st.Consumers),
		"listings", len(st.Listings),
	)
	return nil
}

// Execute sequences and commits one command, returning its receipt.
//
// A ledger rejection is not an error: the receipt carries the rejection
// code as its case and the ledger is unchanged. Errors are reserved for
// malformed commands and storage failures.
func (e *Engine) Execute(ctx context.Context, cmd ir.Command) (ir.Receipt, error) {
	if err := cmd.Validate(); err != nil {
		return ir.Receipt{}, &RuntimeError{Code: ErrCodeMalformedCommand, Message: err.Error()}
	}
	if err := ctx.Err(); err != nil {
		return ir.Receipt{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seq := e.clock.Next()
	cmdID, err := ir.CommandID(seq, cmd)
	if err != nil {
		return ir.Receipt{}, err
	}

	out, err := apply(e.ledger, cmd)
	if err != nil {
		return ir.Receipt{}, e.abort(ctx, seq, err)
	}

	if !e.bound {
		p := e.policy
		out.Changes.Policy = &p
	}

	rec := ir.Receipt{
		Seq:       seq,
		TxID:      e.txGen.Generate(),
		CommandID: cmdID,
		Kind:      cmd.Kind,
		Caller:    cmd.Caller,
		Case:      out.Case,
		Result:    out.Result,
	}

	inserted, err := e.store.Commit(ctx, cmd, rec, out.Changes)
	if errors.Is(err, store.ErrPolicyMismatch) {
		return ir.Receipt{}, e.abort(ctx, seq, &RuntimeError{
			Code:    ErrCodePolicyMismatch,
			Message: err.Error(),
			Seq:     seq,
		})
	}
	if err != nil {
		return ir.Receipt{}, e.abort(ctx, seq, err)
	}
	if !inserted {
		return ir.Receipt{}, e.abort(ctx, seq, &RuntimeError{
			Code:    ErrCodeJournalConflict,
			Message: "command id already journaled",
			Seq:     seq,
		})
	}
	e.bound = true

	if rec.OK() {
		e.log.Info("command applied",
			"seq", seq,
			"kind", cmd.Kind,
			"caller", cmd.Caller,
			"tx_id", rec.TxID,
		)
	} else {
		e.log.Info("command rejected",
			"seq", seq,
			"kind", cmd.Kind,
			"caller", cmd.Caller,
			"case", rec.Case,
			"tx_id", rec.TxID,
		)
	}
	return rec, nil
}

// abort restores the ledger and clock from the store after a failed commit,
// so memory never runs ahead of the journal.
func (e *Engine) abort(ctx context.Context, seq int64, cause error) error {
	e.log.Error("command failed",
		"seq", seq,
		"error", cause,
	)
	if err := e.reload(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("seq %d: %w (reload failed: %v)", seq, cause, err)
	}
	return fmt.Errorf("seq %d: %w", seq, cause)
}

// Enqueue submits a command for the Run loop. The returned channel receives
// exactly one Reply. Returns false if the engine has been stopped.
func (e *Engine) Enqueue(cmd ir.Command) (<-chan Reply, bool) {
	reply := make(chan Reply, 1)
	if !e.queue.Enqueue(request{cmd: cmd, reply: reply}) {
		return nil, false
	}
	return reply, true
}

// Submit enqueues cmd and waits for its reply.
func (e *Engine) Submit(ctx context.Context, cmd ir.Command) (ir.Receipt, error) {
	reply, ok := e.Enqueue(cmd)
	if !ok {
		return ir.Receipt{}, errStopped
	}
	select {
	case <-ctx.Done():
		return ir.Receipt{}, ctx.Err()
	case r := <-reply:
		return r.Receipt, r.Err
	}
}

// Run starts the single-writer loop over queued commands.
// Blocks until the context is cancelled or Stop() is called. Requests still
// queued when the loop exits are answered with a stopped error.
//
// A failed command is logged and answered; the loop keeps going.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting", "seq", e.clock.Current())
	defer e.failPending()

	for {
		req, ok := e.queue.TryDequeue()
		if ok {
			rec, err := e.Execute(ctx, req.cmd)
			if err != nil {
				e.log.Error("queued command failed",
					"kind", req.cmd.Kind,
					"caller", req.cmd.Caller,
					"error", err,
				)
			}
			req.reply <- Reply{Receipt: rec, Err: err}
			continue
		}

		select {
		case <-ctx.Done():
			e.log.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed
			if e.queue.Len() == 0 && e.stopped() {
				e.log.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the requests already queued have
// been processed.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

func (e *Engine) failPending() {
	for _, req := range e.queue.drain() {
		req.reply <- Reply{Err: errStopped}
	}
}
