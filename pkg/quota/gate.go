package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seoscope/pkg/logger"
)

// PlanResolver returns the plan currently in effect for a user. Users with no
// subscription must resolve to PlanFree.
type PlanResolver interface {
	CurrentPlan(ctx context.Context, userID uuid.UUID) (PlanType, error)
}

// PlanResolverFunc adapts a function to PlanResolver.
type PlanResolverFunc func(ctx context.Context, userID uuid.UUID) (PlanType, error)

func (f PlanResolverFunc) CurrentPlan(ctx context.Context, userID uuid.UUID) (PlanType, error) {
	return f(ctx, userID)
}

// CounterFunc counts what a user currently holds for a capacity category.
type CounterFunc func(ctx context.Context, userID uuid.UUID) (int64, error)

// Recorder observes gate decisions.
type Recorder interface {
	QuotaDecision(category, result string)
}

// Decision results reported to the Recorder.
const (
	ResultAllowed = "allowed"
	ResultDenied  = "denied"
	ResultError   = "error"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed  bool
	Message  string
	Plan     PlanType
	Category Category
	Current  int64
	Limit    Limit
}

// Err returns a *LimitError for a denied decision and nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &LimitError{Plan: d.Plan, Category: d.Category, Limit: d.Limit, Current: d.Current}
}

// Gate enforces plan limits on metered operations.
type Gate struct {
	table    *Table
	store    Store
	plans    PlanResolver
	log      *slog.Logger
	recorder Recorder
	now      func() time.Time

	mu       sync.RWMutex
	counters map[Category]CounterFunc
}

// GateOption configures a Gate.
type GateOption func(*Gate)

func WithLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.log = l }
}

func WithRecorder(r Recorder) GateOption {
	return func(g *Gate) { g.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

func NewGate(table *Table, store Store, plans PlanResolver, opts ...GateOption) *Gate {
	g := &Gate{
		table:    table,
		store:    store,
		plans:    plans,
		log:      logger.Discard(),
		now:      time.Now,
		counters: make(map[Category]CounterFunc),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterCounter wires a capacity category to the function that counts it.
func (g *Gate) RegisterCounter(category Category, fn CounterFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[category] = fn
}

// CheckAndIncrement is CheckAndIncrementBy with a weight of one.
func (g *Gate) CheckAndIncrement(ctx context.Context, userID uuid.UUID, category Category) (Decision, error) {
	return g.CheckAndIncrementBy(ctx, userID, category, 1)
}

// CheckAndIncrementBy admits an operation of weight n against the user's
// current-month counter. The counter moves only when the decision is allowed.
// Unlimited plans are always allowed and still counted. Any storage failure
// yields a denied decision together with an error wrapping ErrPersistence.
func (g *Gate) CheckAndIncrementBy(ctx context.Context, userID uuid.UUID, category Category, n int64) (Decision, error) {
	d := Decision{Category: category}
	if !category.Valid() || category.Capacity() {
		return d, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if n <= 0 {
		return d, ErrInvalidWeight
	}

	plan, err := g.plans.CurrentPlan(ctx, userID)
	if err != nil {
		return d, g.fail(ctx, userID, category, fmt.Errorf("resolve plan: %w", err))
	}
	d.Plan = plan

	limit, err := g.table.Limit(plan, category)
	if err != nil {
		g.record(category, ResultError)
		return d, err
	}
	d.Limit = limit

	period := PeriodFor(g.now())
	if _, err := g.store.GetOrCreatePeriod(ctx, userID, period); err != nil {
		return d, g.fail(ctx, userID, category, fmt.Errorf("get or create period: %w", err))
	}

	current, ok, err := g.store.IncrementIfBelow(ctx, userID, period, category, n, limit)
	if err != nil {
		return d, g.fail(ctx, userID, category, fmt.Errorf("increment: %w", err))
	}
	d.Current = current
	d.Allowed = ok

	if !ok {
		d.Message = d.Err().Error()
		g.record(category, ResultDenied)
		g.log.InfoContext(ctx, "usage limit reached",
			logger.UserID(userID),
			logger.Plan(plan.String()),
			logger.Category(category.String()),
			slog.Int64("current", current),
			slog.String("limit", limit.String()),
		)
		return d, nil
	}

	g.record(category, ResultAllowed)
	return d, nil
}

// CheckCapacity reports whether the user may hold one more item of a capacity
// category. A full plan yields a denied decision and a *LimitError. The
// decision carries the resolved limit so the caller can enforce it again in the
// statement that stores the item.
func (g *Gate) CheckCapacity(ctx context.Context, userID uuid.UUID, category Category) (Decision, error) {
	d := Decision{Category: category}
	if !category.Capacity() {
		return d, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}

	plan, err := g.plans.CurrentPlan(ctx, userID)
	if err != nil {
		return d, g.fail(ctx, userID, category, fmt.Errorf("resolve plan: %w", err))
	}
	d.Plan = plan

	limit, err := g.table.Limit(plan, category)
	if err != nil {
		return d, err
	}
	d.Limit = limit
	if limit.Unlimited() {
		d.Allowed = true
		g.record(category, ResultAllowed)
		return d, nil
	}

	current, err := g.count(ctx, userID, category)
	if err != nil {
		return d, g.fail(ctx, userID, category, err)
	}
	d.Current = current
	if !limit.Allows(current, 1) {
		d.Message = d.Err().Error()
		g.record(category, ResultDenied)
		return d, d.Err()
	}
	d.Allowed = true
	g.record(category, ResultAllowed)
	return d, nil
}

// CategoryUsage is one line of a usage snapshot.
type CategoryUsage struct {
	Current   int64 `json:"current"`
	Limit     Limit `json:"limit"`
	Remaining Limit `json:"remaining"`
}

// Snapshot is the read-only usage view for the dashboard.
type Snapshot struct {
	Plan        PlanType                   `json:"plan"`
	Usage       map[Category]CategoryUsage `json:"usage"`
	PeriodStart time.Time                  `json:"periodStart"`
	PeriodEnd   time.Time                  `json:"periodEnd"`
}

// Snapshot reports the user's plan, limits and consumption for the current
// period without creating a period row.
func (g *Gate) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	plan, err := g.plans.CurrentPlan(ctx, userID)
	if err != nil {
		return Snapshot{}, errors.Join(ErrPersistence, err)
	}

	period := PeriodFor(g.now())
	usage, err := g.store.GetPeriod(ctx, userID, period)
	if err != nil {
		return Snapshot{}, errors.Join(ErrPersistence, err)
	}

	snap := Snapshot{
		Plan:        plan,
		Usage:       make(map[Category]CategoryUsage, len(Categories)),
		PeriodStart: period.Start,
		PeriodEnd:   period.End,
	}
	for _, cat := range Categories {
		limit, err := g.table.Limit(plan, cat)
		if err != nil {
			return Snapshot{}, err
		}
		current := usage.Counters[cat]
		if cat.Capacity() {
			if current, err = g.count(ctx, userID, cat); err != nil {
				if !errors.Is(err, ErrNoCounter) {
					return Snapshot{}, errors.Join(ErrPersistence, err)
				}
				current = 0
			}
		}
		snap.Usage[cat] = CategoryUsage{Current: current, Limit: limit, Remaining: limit.Remaining(current)}
	}
	return snap, nil
}

func (g *Gate) count(ctx context.Context, userID uuid.UUID, category Category) (int64, error) {
	g.mu.RLock()
	fn, ok := g.counters[category]
	g.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoCounter, category)
	}
	return fn(ctx, userID)
}

func (g *Gate) fail(ctx context.Context, userID uuid.UUID, category Category, err error) error {
	g.record(category, ResultError)
	g.log.ErrorContext(ctx, "usage gate failed closed",
		logger.UserID(userID),
		logger.Category(category.String()),
		logger.Error(err),
	)
	return errors.Join(ErrPersistence, err)
}

func (g *Gate) record(category Category, result string) {
	if g.recorder != nil {
		g.recorder.QuotaDecision(category.String(), result)
	}
}
