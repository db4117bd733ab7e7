package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridsync/internal/ir"
	"github.com/roach88/gridsync/internal/ledger"
	"github.com/roach88/gridsync/internal/policy"
	"github.com/roach88/gridsync/internal/store"
	"github.com/roach88/gridsync/internal/testutil"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridsync.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s, _ := openTestStore(t)
	opts = append([]Option{WithLogger(quietLogger)}, opts...)
	return New(s, testutil.NewSequentialTxGenerator("tx"), opts...), s
}

func mustExecute(t *testing.T, e *Engine, cmd ir.Command) ir.Receipt {
	t.Helper()
	rec, err := e.Execute(context.Background(), cmd)
	require.NoError(t, err)
	return rec
}

// largeTradeCommands is the 2000-at-10 listing followed by a 1500 unit buy.
func largeTradeCommands() []ir.Command {
	return []ir.Command{
		{Kind: ir.KindRegisterProducer, Caller: "alice"},
		{Kind: ir.KindRegisterConsumer, Caller: "bob"},
		{Kind: ir.KindListEnergyUnits, Caller: "alice", Units: 2000, Price: 10},
		{Kind: ir.KindBuyEnergy, Caller: "bob", ListingID: 1, Units: 1500},
	}
}

func TestExecute_LargeTrade(t *testing.T) {
	e, s := newTestEngine(t)

	var receipts []ir.Receipt
	for _, cmd := range largeTradeCommands() {
		receipts = append(receipts, mustExecute(t, e, cmd))
	}

	for i, rec := range receipts {
		assert.Equal(t, int64(i+1), rec.Seq)
		assert.Equal(t, ir.CaseOK, rec.Case)
		assert.Equal(t, ir.MustCommandID(rec.Seq, largeTradeCommands()[i]), rec.CommandID)
	}
	assert.Equal(t, "tx-000004", receipts[3].TxID)

	trade := receipts[3].Result
	assert.Equal(t, ir.IRInt(15000), trade["value"])
	assert.Equal(t, ir.IRInt(11), trade["new_price"])
	assert.Equal(t, ir.IRInt(750), trade["points"])
	assert.Equal(t, ir.IRInt(500), trade["remaining_units"])
	assert.Equal(t, ir.IRString("alice"), trade["seller"])

	stored, err := s.LoadState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, e.Ledger().Snapshot(), stored)
}

func TestExecute_RejectionIsJournaled(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()

	rec := mustExecute(t, e, ir.Command{Kind: ir.KindBuyEnergy, Caller: "bob", ListingID: 9, Units: 1})
	assert.Equal(t, int64(1), rec.Seq)
	assert.Equal(t, string(ledger.CodeNoSuchListing), rec.Case)
	assert.False(t, rec.OK())
	assert.Equal(t, ir.IRInt(9), rec.Result["listing_id"])

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.New().Snapshot(), st)
}

func TestExecute_RejectionLeavesLedgerUnchanged(t *testing.T) {
	e, _ := newTestEngine(t)
	for _, cmd := range largeTradeCommands() {
		mustExecute(t, e, cmd)
	}
	before := e.Ledger().Snapshot()

	rejected := []ir.Command{
		{Kind: ir.KindRegisterProducer, Caller: "bob"},
		{Kind: ir.KindListEnergyUnits, Caller: "alice", Units: 0, Price: 10},
		{Kind: ir.KindListEnergyUnits, Caller: "bob", Units: 10, Price: 10},
		{Kind: ir.KindBuyEnergy, Caller: "bob", ListingID: 1, Units: 501},
		{Kind: ir.KindBuyEnergy, Caller: "alice", ListingID: 1, Units: 1},
	}
	wantCases := []ledger.Code{
		ledger.CodeAlreadyRegistered,
		ledger.CodeInvalidQuantity,
		ledger.CodeNotRegistered,
		ledger.CodeInsufficientUnits,
		ledger.CodeNotRegistered,
	}
	for i, cmd := range rejected {
		rec := mustExecute(t, e, cmd)
		assert.Equal(t, string(wantCases[i]), rec.Case, "command %d", i)
	}

	assert.Equal(t, before, e.Ledger().Snapshot())
	assert.Equal(t, int64(len(largeTradeCommands())+len(rejected)), e.Seq())
}

func TestExecute_MalformedCommandNotSequenced(t *testing.T) {
	e, s := newTestEngine(t)

	_, err := e.Execute(context.Background(), ir.Command{Kind: "mint", Caller: "alice"})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	_, err = e.Execute(context.Background(), ir.Command{Kind: ir.KindRegisterProducer})
	assert.True(t, IsMalformed(err))

	assert.Equal(t, int64(0), e.Seq())
	seq, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestExecute_CancelledContext(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, ir.Command{Kind: ir.KindRegisterProducer, Caller: "alice"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), e.Seq())
}

func TestExecute_CommitFailureRestoresLedger(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	e, _ := newTestEngine(t, WithClock(clock))

	mustExecute(t, e, ir.Command{Kind: ir.KindRegisterProducer, Caller: "alice"})

	// Rewind so the next command collides with seq 1 in the journal
	clock.Set(0)
	_, err := e.Execute(context.Background(), ir.Command{Kind: ir.KindRegisterProducer, Caller: "bob"})
	require.Error(t, err)

	_, ok := e.Ledger().ProducerInfo("bob")
	assert.False(t, ok, "failed commit must not leave bob registered")
	assert.Equal(t, int64(1), e.Seq(), "clock restored from journal")

	rec := mustExecute(t, e, ir.Command{Kind: ir.KindRegisterProducer, Caller: "bob"})
	assert.Equal(t, int64(2), rec.Seq)
	assert.True(t, rec.OK())
}

func TestExecute_DuplicateCommandIDIsConflict(t *testing.T) {
	clock := testutil.NewDeterministicClock()
	e, _ := newTestEngine(t, WithClock(clock))
	cmd := ir.Command{Kind: ir.KindRegisterProducer, Caller: "alice"}

	mustExecute(t, e, cmd)
	clock.Set(0)

	_, err := e.Execute(context.Background(), cmd)
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeJournalConflict, re.Code)
	assert.Equal(t, int64(1), e.Seq())
}

func TestExecute_WithLedgerOptions(t *testing.T) {
	pricing := policy.DefaultPricing()
	pricing.IncreasePercent = 20
	e, _ := newTestEngine(t, WithLedgerOptions(ledger.WithPricing(pricing)))

	var last ir.Receipt
	for _, cmd := range largeTradeCommands() {
		last = mustExecute(t, e, cmd)
	}
	assert.Equal(t, ir.IRInt(12), last.Result["new_price"])
}

func TestRecover_ResumesStateAndClock(t *testing.T) {
	s, path := openTestStore(t)
	e := New(s, testutil.NewSequentialTxGenerator("tx"), WithLogger(quietLogger))
	for _, cmd := range largeTradeCommands() {
		mustExecute(t, e, cmd)
	}
	want := e.Ledger().Snapshot()
	require.NoError(t, s.Close())

	s2, err := store.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	e2 := New(s2, testutil.NewSequentialTxGenerator("tx2"), WithLogger(quietLogger))
	require.NoError(t, e2.Recover(context.Background()))

	assert.Equal(t, want, e2.Ledger().Snapshot())
	assert.Equal(t, int64(4), e2.Seq())

	rec := mustExecute(t, e2, ir.Command{Kind: ir.KindListEnergyUnits, Caller: "alice", Units: 5, Price: 3})
	assert.Equal(t, int64(5), rec.Seq)
	assert.Equal(t, ir.IRInt(2), rec.Result["listing_id"])
}

func TestRecover_RejectsDifferentPolicy(t *testing.T) {
	s, path := openTestStore(t)
	e := New(s, testutil.NewSequentialTxGenerator("tx"), WithLogger(quietLogger))
	for _, cmd := range largeTradeCommands() {
		mustExecute(t, e, cmd)
	}
	mustExecute(t, e, ir.Command{Kind: ir.KindRegisterConsumer, Caller: "carol"})
	require.NoError(t, s.Close())

	s2, err := store.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	e2 := New(s2, testutil.NewSequentialTxGenerator("tx2"),
		WithLogger(quietLogger),
		WithLedgerOptions(ledger.WithReward(policy.Reward{Percent: 50})),
	)
	err = e2.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, IsPolicyMismatch(err), "got %v", err)

	// Same policy recovers fine.
	e3 := New(s2, testutil.NewSequentialTxGenerator("tx3"), WithLogger(quietLogger))
	require.NoError(t, e3.Recover(context.Background()))
	assert.Equal(t, int64(5), e3.Seq())
}

func TestExecute_DifferentPolicyWithoutRecoverIsNotCommitted(t *testing.T) {
	e, s := newTestEngine(t)
	for _, cmd := range largeTradeCommands() {
		mustExecute(t, e, cmd)
	}

	e2 := New(s, testutil.NewSequentialTxGenerator("tx2"),
		WithLogger(quietLogger),
		WithClock(NewClockAt(4)),
		WithLedgerOptions(ledger.WithReward(policy.Reward{Percent: 50})),
	)
	_, err := e2.Execute(context.Background(), ir.Command{Kind: ir.KindBuyEnergy, Caller: "bob", ListingID: 1, Units: 100})
	require.Error(t, err)
	assert.True(t, IsPolicyMismatch(err), "got %v", err)

	seq, err := s.LastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), seq)

	_, err = VerifyReplay(context.Background(), s)
	assert.NoError(t, err)
}

func TestLedger_ConcurrentWithRecover(t *testing.T) {
	e, _ := newTestEngine(t)
	for _, cmd := range largeTradeCommands() {
		mustExecute(t, e, cmd)
	}
	want := e.Ledger().Snapshot()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, want, e.Ledger().Snapshot())
			}
		}()
	}
	for j := 0; j < 20; j++ {
		require.NoError(t, e.Recover(context.Background()))
	}
	wg.Wait()
}

func TestRun_SubmitFromManyGoroutines(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	const n = 20
	seqs := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := e.Submit(ctx, ir.Command{Kind: ir.KindRegisterConsumer, Caller: string(rune('a' + i))})
			assert.NoError(t, err)
			assert.True(t, rec.OK())
			seqs <- rec.Seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := map[int64]bool{}
	for s := range seqs {
		seen[s] = true
	}
	assert.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing seq %d", i)
	}

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	_, err := e.Submit(ctx, ir.Command{Kind: ir.KindRegisterConsumer, Caller: "late"})
	assert.True(t, IsStopped(err))
}

func TestRun_ContextCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, ok := e.Enqueue(ir.Command{Kind: ir.KindRegisterConsumer, Caller: "late"})
	assert.False(t, ok)
}

func TestRun_RejectionsAreReplies(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	rec, err := e.Submit(ctx, ir.Command{Kind: ir.KindBuyEnergy, Caller: "bob", ListingID: 1, Units: 1})
	require.NoError(t, err)
	assert.Equal(t, string(ledger.CodeNoSuchListing), rec.Case)

	_, err = e.Submit(ctx, ir.Command{Kind: "mint", Caller: "bob"})
	assert.True(t, IsMalformed(err))
}
