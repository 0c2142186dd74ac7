package quota

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultPlans []byte

// PlanSpec is one tier of the plan table.
type PlanSpec struct {
	Name         string             `yaml:"name" json:"name"`
	Description  string             `yaml:"description" json:"description"`
	PriceMonthly int64              `yaml:"price_monthly" json:"priceMonthly"`
	Limits       map[Category]Limit `yaml:"limits" json:"limits"`
}

// Table maps every plan to its per-category limits. It is read-only once
// loaded and safe for concurrent use.
type Table struct {
	plans map[PlanType]PlanSpec
}

// DefaultTable returns the built-in table. It panics if the embedded file is
// invalid, which is a build defect.
func DefaultTable() *Table {
	t, err := LoadTable(defaultPlans)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTable parses and validates a YAML plan table.
func LoadTable(data []byte) (*Table, error) {
	var doc struct {
		Plans map[PlanType]PlanSpec `yaml:"plans"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(ErrInvalidTable, err)
	}
	t := &Table{plans: doc.Plans}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that every (plan, category) pair is defined and that no
// limit is below Unlimited.
func (t *Table) Validate() error {
	var errs []error
	for plan := range t.plans {
		if !plan.Valid() {
			errs = append(errs, fmt.Errorf("unknown plan %q", plan))
		}
	}
	for _, plan := range Plans {
		spec, ok := t.plans[plan]
		if !ok {
			errs = append(errs, fmt.Errorf("plan %q is missing", plan))
			continue
		}
		for cat := range spec.Limits {
			if !cat.Valid() {
				errs = append(errs, fmt.Errorf("plan %q: unknown category %q", plan, cat))
			}
		}
		for _, cat := range Categories {
			l, ok := spec.Limits[cat]
			switch {
			case !ok:
				errs = append(errs, fmt.Errorf("plan %q: %w: %s", plan, ErrUndefinedLimit, cat))
			case l < Unlimited:
				errs = append(errs, fmt.Errorf("plan %q: negative limit for %s", plan, cat))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidTable}, errs...)...)
	}
	return nil
}

// Limit returns the cap for category on plan.
func (t *Table) Limit(plan PlanType, category Category) (Limit, error) {
	spec, ok := t.plans[plan]
	if !ok {
		return 0, fmt.Errorf("%w: plan %q", ErrUndefinedLimit, plan)
	}
	l, ok := spec.Limits[category]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrUndefinedLimit, plan, category)
	}
	return l, nil
}

// Plan returns the name, price and limits of a tier.
func (t *Table) Plan(plan PlanType) (PlanSpec, bool) {
	spec, ok := t.plans[plan]
	return spec, ok
}
