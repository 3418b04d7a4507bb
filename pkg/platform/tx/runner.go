package tx

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	dErrors "github.com/Stratton1/ppukv6-0-sub001/pkg/domain-errors"
)

// Runner executes a function inside one atomic unit of work. Every governed
// mutation and its audit entry go through a Runner so the pairing guarantee
// (no mutation without audit, no audit without mutation) holds under partial
// failure.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// defaultTxTimeout bounds a unit of work that arrives without a deadline.
const defaultTxTimeout = 5 * time.Second

// SQLRunner runs the unit of work inside a database transaction. The *sql.Tx
// is carried in context so stores join it via From.
type SQLRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{db: db}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Journal collects undo operations registered by memory stores during a unit
// of work, so MemoryRunner can roll them back when a later step fails.
type Journal struct {
	mu    sync.Mutex
	undos []func()
}

// OnRollback registers an undo operation. Undos run in reverse order.
func (j *Journal) OnRollback(undo func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.undos = append(j.undos, undo)
}

func (j *Journal) rollback() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.undos) - 1; i >= 0; i-- {
		j.undos[i]()
	}
	j.undos = nil
}

type journalKey struct{}

// JournalFrom extracts the rollback journal from context if a MemoryRunner is
// driving the unit of work.
func JournalFrom(ctx context.Context) (*Journal, bool) {
	j, ok := ctx.Value(journalKey{}).(*Journal)
	return j, ok
}

// MemoryRunner provides transactional semantics over in-memory stores: a
// coarse lock for serialization plus a journal of undo operations executed on
// failure. It mirrors SQLRunner closely enough that the audit-pairing
// guarantee is testable without a database.
type MemoryRunner struct {
	mu sync.Mutex
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	journal := &Journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, journal)); err != nil {
		journal.rollback()
		return err
	}
	return nil
}
