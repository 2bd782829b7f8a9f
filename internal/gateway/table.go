package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/randalmurphal/plank/internal/db"
	"github.com/randalmurphal/plank/internal/db/driver"
	plankerrors "github.com/randalmurphal/plank/internal/errors"
	"github.com/randalmurphal/plank/internal/schema"
)

// Table is the remote CRUD contract for one entity table. R is the
// storage-shape row. Each call is a single round trip with no retry.
type Table[R any] interface {
	// Select returns the rows matching filter.
	Select(ctx context.Context, filter Filter) ([]R, error)

	// Insert stores row and returns it as persisted.
	Insert(ctx context.Context, row R) (R, error)

	// Update assigns cols on the row with id. Guards are extra equality
	// conditions that must hold for the write to apply; when the row exists
	// but a guard fails the error is REVISION_CONFLICT.
	Update(ctx context.Context, id string, cols schema.Columns, guards ...Cond) error

	// Delete removes the row with id.
	Delete(ctx context.Context, id string) error
}

// rowCodec describes how one row type maps onto its table.
type rowCodec[R any] struct {
	table   string
	columns []string
	values  func(R) []any
	targets func(*R) []any
}

// sqlTable implements Table over a db.DB.
type sqlTable[R any] struct {
	db      *db.DB
	codec   rowCodec[R]
	allowed map[string]bool
	logger  *slog.Logger
}

func newSQLTable[R any](d *db.DB, codec rowCodec[R], logger *slog.Logger) *sqlTable[R] {
	allowed := make(map[string]bool, len(codec.columns))
	for _, c := range codec.columns {
		allowed[c] = true
	}
	return &sqlTable[R]{db: d, codec: codec, allowed: allowed, logger: logger}
}

func (t *sqlTable[R]) Select(ctx context.Context, filter Filter) ([]R, error) {
	start := time.Now()
	tail, args, err := filter.build(t.allowed)
	if err != nil {
		return nil, plankerrors.ErrRemote("select "+t.codec.table, err)
	}
	query := "SELECT " + strings.Join(t.codec.columns, ", ") + " FROM " + t.codec.table + tail

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, t.fail("select", err)
	}
	defer func() { _ = rows.Close() }()

	out := []R{}
	for rows.Next() {
		var r R
		if err := rows.Scan(t.codec.targets(&r)...); err != nil {
			return nil, t.fail("scan", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, t.fail("select", err)
	}
	t.logger.Debug("remote select", "table", t.codec.table, "rows", len(out), "duration", time.Since(start))
	return out, nil
}

func (t *sqlTable[R]) Insert(ctx context.Context, row R) (R, error) {
	start := time.Now()
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.codec.columns)), ", ")
	query := "INSERT INTO " + t.codec.table + " (" + strings.Join(t.codec.columns, ", ") + ") VALUES (" + marks + ")"

	if _, err := t.db.ExecContext(ctx, query, t.codec.values(row)...); err != nil {
		var zero R
		return zero, t.fail("insert", err)
	}
	t.logger.Debug("remote insert", "table", t.codec.table, "duration", time.Since(start))
	return row, nil
}

func (t *sqlTable[R]) Update(ctx context.Context, id string, cols schema.Columns, guards ...Cond) error {
	start := time.Now()
	if len(cols) == 0 {
		return plankerrors.ErrInvalidInput("columns", "update of "+t.codec.table+" sets nothing")
	}

	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+len(guards)+1)
	for _, c := range cols {
		if !t.allowed[c.Name] || c.Name == "id" {
			return plankerrors.ErrRemote("update "+t.codec.table, fmt.Errorf("column %q is not updatable", c.Name))
		}
		sets = append(sets, c.Name+" = ?")
		args = append(args, c.Value)
	}
	where := []string{"id = ?"}
	args = append(args, id)
	for _, g := range guards {
		if !t.allowed[g.Column] {
			return plankerrors.ErrRemote("update "+t.codec.table, fmt.Errorf("unknown guard column %q", g.Column))
		}
		where = append(where, g.Column+" = ?")
		args = append(args, g.Value)
	}
	query := "UPDATE " + t.codec.table + " SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(where, " AND ")

	res, err := t.db.ExecContext(ctx, query, args...)
	if err != nil {
		return t.fail("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t.fail("update", err)
	}
	if n == 0 {
		return t.explainMiss(ctx, id, guards)
	}
	t.logger.Debug("remote update", "table", t.codec.table, "id", id,
		"columns", cols.Names(), "duration", time.Since(start))
	return nil
}

func (t *sqlTable[R]) Delete(ctx context.Context, id string) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.codec.table+" WHERE id = ?", id)
	if err != nil {
		return t.fail("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return t.fail("delete", err)
	}
	if n == 0 {
		return plankerrors.ErrRemoteMissing(t.codec.table, id)
	}
	t.logger.Debug("remote delete", "table", t.codec.table, "id", id)
	return nil
}

// explainMiss tells a missing row apart from a failed guard after an update
// matched nothing.
func (t *sqlTable[R]) explainMiss(ctx context.Context, id string, guards []Cond) error {
	var one int
	err := t.db.QueryRowContext(ctx, "SELECT 1 FROM "+t.codec.table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return plankerrors.ErrRemoteMissing(t.codec.table, id)
	}
	if err != nil {
		return t.fail("probe", err)
	}
	if len(guards) == 0 {
		return plankerrors.ErrRemote("update "+t.codec.table, fmt.Errorf("row %s matched no rows", id))
	}
	base := 0
	if v, ok := guards[0].Value.(int); ok {
		base = v
	}
	t.logger.Debug("remote update rejected by guard", "table", t.codec.table, "id", id, "guard", guards[0].Column)
	return plankerrors.ErrStaleRevision(t.codec.table, id, base)
}

// fail converts a driver error into a typed gateway error.
func (t *sqlTable[R]) fail(op string, err error) error {
	what := op + " " + t.codec.table
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return plankerrors.ErrUnavailable(what, err)
	}
	switch t.db.Classify(err) {
	case driver.KindConnection:
		return plankerrors.ErrUnavailable(what, err)
	case driver.KindConstraint:
		return plankerrors.ErrConstraint(what, err)
	default:
		return plankerrors.ErrRemote(what, err)
	}
}
