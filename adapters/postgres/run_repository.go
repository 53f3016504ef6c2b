package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"flakewatch/domain/run"
	"flakewatch/internal/errors"
	"flakewatch/ports"
)

// RunRepository reads raw run outcomes from the `run` table. A row's
// fail_stage is NULL for a pass and names the failed stage otherwise; the
// analysis core only cares whether any failure stage was recorded.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// FetchOutcomes returns raw outcomes matching the filter, ordered by entity
// and snapshot for reproducible reads.
func (r *RunRepository) FetchOutcomes(ctx context.Context, filter ports.RunFilter) ([]run.Outcome, error) {
	query := `
		SELECT entity, snapshot, fail_stage IS NOT NULL AS failed
		FROM run`
	where, args := filterClauses(filter)
	query += where + `
		ORDER BY entity, snapshot`

	var outcomes []run.Outcome
	if err := r.db.SelectContext(ctx, &outcomes, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to fetch run outcomes", err)
	}
	return outcomes, nil
}

// FetchSpans returns first/last event timestamps per matching entity.
func (r *RunRepository) FetchSpans(ctx context.Context, filter ports.RunFilter) ([]run.Span, error) {
	query := `
		SELECT entity, MIN(snapshot) AS first_event, MAX(snapshot) AS last_event
		FROM run`
	where, args := filterClauses(filter)
	query += where + `
		GROUP BY entity
		ORDER BY entity`

	var spans []run.Span
	if err := r.db.SelectContext(ctx, &spans, query, args...); err != nil {
		return nil, errors.DatabaseError("failed to fetch event spans", err)
	}
	return spans, nil
}

func filterClauses(filter ports.RunFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		clauses = append(clauses, "entity = $"+strconv.Itoa(len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		clauses = append(clauses, "snapshot >= $"+strconv.Itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "\n\t\tWHERE " + strings.Join(clauses, " AND "), args
}

var _ ports.RunSource = (*RunRepository)(nil)
