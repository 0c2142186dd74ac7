package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/pg"
	"github.com/dmitrymomot/seoscope/pkg/quota"
)

// usageColumns maps metered categories to usage_tracking columns. Capacity
// categories are counted from their own tables and have no column.
var usageColumns = map[quota.Category]string{
	quota.KeywordSearches:      "keyword_searches",
	quota.BacklinkAnalyses:     "backlink_analyses",
	quota.AuditPages:           "audit_pages",
	quota.DomainAnalyses:       "domain_analyses",
	quota.Exports:              "exports",
	quota.AIVisibilityRequests: "ai_visibility_requests",
}

// usageOrder fixes the column order of counter selects.
var usageOrder = []quota.Category{
	quota.KeywordSearches,
	quota.BacklinkAnalyses,
	quota.AuditPages,
	quota.DomainAnalyses,
	quota.Exports,
	quota.AIVisibilityRequests,
}

var errPeriodMissing = errors.New("usage period row does not exist")

// UsageStore implements quota.Store on the usage_tracking table. Increments
// are single conditional UPDATE statements, so concurrent requests for the
// same user cannot overshoot a limit.
type UsageStore struct {
	db DB
}

func NewUsageStore(db DB) *UsageStore {
	return &UsageStore{db: db}
}

// GetOrCreatePeriod inserts an all-zero row for the period. An existing row is
// left untouched and read back with a plain select.
func (s *UsageStore) GetOrCreatePeriod(ctx context.Context, userID uuid.UUID, period quota.Period) (quota.Usage, error) {
	query, args, err := psql.Insert("usage_tracking").
		Columns("user_id", "period_start", "period_end").
		Values(userID, period.Start, period.End).
		Suffix("ON CONFLICT (user_id, period_start) DO NOTHING RETURNING " + counterColumns()).
		ToSql()
	if err != nil {
		return quota.Usage{}, fmt.Errorf("build insert usage query: %w", err)
	}

	usage := quota.Usage{UserID: userID, Period: period}
	usage.Counters, err = scanCounters(s.db.QueryRow(ctx, query, args...))
	if err == nil {
		return usage, nil
	}
	if !pg.IsNotFoundError(err) {
		return quota.Usage{}, fmt.Errorf("insert usage period: %w", err)
	}

	if usage.Counters, err = s.selectCounters(ctx, userID, period); err != nil {
		return quota.Usage{}, fmt.Errorf("select usage period: %w", err)
	}
	return usage, nil
}

func (s *UsageStore) GetPeriod(ctx context.Context, userID uuid.UUID, period quota.Period) (quota.Usage, error) {
	usage := quota.Usage{UserID: userID, Period: period}
	counters, err := s.selectCounters(ctx, userID, period)
	switch {
	case pg.IsNotFoundError(err):
		usage.Counters = make(map[quota.Category]int64)
	case err != nil:
		return quota.Usage{}, fmt.Errorf("select usage period: %w", err)
	default:
		usage.Counters = counters
	}
	return usage, nil
}

func (s *UsageStore) selectCounters(ctx context.Context, userID uuid.UUID, period quota.Period) (map[quota.Category]int64, error) {
	query, args, err := psql.Select(counterColumns()).
		From("usage_tracking").
		Where(squirrel.Eq{"user_id": userID, "period_start": period.Start}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select usage query: %w", err)
	}
	return scanCounters(s.db.QueryRow(ctx, query, args...))
}

func (s *UsageStore) IncrementIfBelow(ctx context.Context, userID uuid.UUID, period quota.Period, category quota.Category, n int64, limit quota.Limit) (int64, bool, error) {
	column, ok := usageColumns[category]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", quota.ErrUnknownCategory, category)
	}

	update := psql.Update("usage_tracking").
		Set(column, squirrel.Expr(column+" + ?", n)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"user_id": userID, "period_start": period.Start})
	if !limit.Unlimited() {
		update = update.Where(squirrel.Expr(column+" + ? <= ?", n, int64(limit)))
	}
	query, args, err := update.Suffix("RETURNING " + column).ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build increment query: %w", err)
	}

	var current int64
	err = s.db.QueryRow(ctx, query, args...).Scan(&current)
	if err == nil {
		return current, true, nil
	}
	if !pg.IsNotFoundError(err) {
		return 0, false, fmt.Errorf("increment %s: %w", column, err)
	}

	// No row matched: either the limit condition failed or the period row is missing.
	err = s.db.QueryRow(ctx,
		"SELECT "+column+" FROM usage_tracking WHERE user_id = $1 AND period_start = $2",
		userID, period.Start,
	).Scan(&current)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return 0, false, errPeriodMissing
		}
		return 0, false, fmt.Errorf("select %s: %w", column, err)
	}
	return current, false, nil
}

func counterColumns() string {
	cols := make([]string, len(usageOrder))
	for i, c := range usageOrder {
		cols[i] = usageColumns[c]
	}
	return strings.Join(cols, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCounters(row scanner) (map[quota.Category]int64, error) {
	values := make([]int64, len(usageOrder))
	dest := make([]any, len(usageOrder))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	counters := make(map[quota.Category]int64, len(usageOrder))
	for i, c := range usageOrder {
		counters[c] = values[i]
	}
	return counters, nil
}
