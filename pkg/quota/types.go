package quota

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// PlanType is a subscription tier.
type PlanType string

const (
	PlanFree   PlanType = "free"
	PlanPro    PlanType = "pro"
	PlanAgency PlanType = "agency"
)

// Plans lists every tier in display order.
var Plans = []PlanType{PlanFree, PlanPro, PlanAgency}

func (p PlanType) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanAgency:
		return true
	}
	return false
}

func (p PlanType) String() string { return string(p) }

// Category is a metered usage dimension.
type Category string

const (
	KeywordSearches      Category = "keywordSearches"
	BacklinkAnalyses     Category = "backlinkAnalyses"
	AuditPages           Category = "auditPages"
	DomainAnalyses       Category = "domainAnalyses"
	TrackedKeywords      Category = "trackedKeywords"
	Projects             Category = "projects"
	Exports              Category = "exports"
	AIVisibilityRequests Category = "aiVisibilityRequests"
)

// Categories lists every category the plan table must define.
var Categories = []Category{
	KeywordSearches,
	BacklinkAnalyses,
	AuditPages,
	DomainAnalyses,
	TrackedKeywords,
	Projects,
	Exports,
	AIVisibilityRequests,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Capacity reports whether the category limits how many things a user holds
// at once rather than how many operations run per billing period.
func (c Category) Capacity() bool {
	return c == Projects || c == TrackedKeywords
}

func (c Category) String() string { return string(c) }

// Unlimited marks a category without a cap.
const Unlimited Limit = -1

// Limit is a quota value. It serializes as a number or the string "unlimited".
type Limit int64

func (l Limit) Unlimited() bool { return l == Unlimited }

// Allows reports whether current+n stays within the limit.
func (l Limit) Allows(current, n int64) bool {
	return l.Unlimited() || current+n <= int64(l)
}

// Remaining is what is left after current, never negative.
func (l Limit) Remaining(current int64) Limit {
	if l.Unlimited() {
		return Unlimited
	}
	return Limit(max(int64(l)-current, 0))
}

func (l Limit) String() string {
	if l.Unlimited() {
		return "unlimited"
	}
	return strconv.FormatInt(int64(l), 10)
}

func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unlimited() {
		return []byte(`"unlimited"`), nil
	}
	return []byte(strconv.FormatInt(int64(l), 10)), nil
}

func (l *Limit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return l.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("quota: invalid limit %s", b)
	}
	*l = Limit(n)
	return nil
}

// UnmarshalYAML accepts integers and the word "unlimited".
func (l *Limit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("quota: limit must be a scalar, line %d", node.Line)
	}
	return l.parse(node.Value)
}

func (l *Limit) parse(s string) error {
	if s == "unlimited" {
		*l = Unlimited
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("quota: invalid limit %q", s)
	}
	*l = Limit(n)
	return nil
}
