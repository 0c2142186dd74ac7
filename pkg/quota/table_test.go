package quota_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seoscope/pkg/quota"
)

func TestDefaultTableDefinesEveryPair(t *testing.T) {
	t.Parallel()

	table := quota.DefaultTable()
	for _, plan := range quota.Plans {
		for _, cat := range quota.Categories {
			l, err := table.Limit(plan, cat)
			require.NoError(t, err, "%s/%s", plan, cat)
			assert.GreaterOrEqual(t, int64(l), int64(quota.Unlimited))
		}
	}

	free, err := table.Limit(quota.PlanFree, quota.KeywordSearches)
	require.NoError(t, err)
	assert.Equal(t, quota.Limit(100), free)

	agency, err := table.Limit(quota.PlanAgency, quota.KeywordSearches)
	require.NoError(t, err)
	assert.True(t, agency.Unlimited())
}

func TestLoadTableRejectsMissingPair(t *testing.T) {
	t.Parallel()

	doc := []byte(`
plans:
  free:
    limits: {keywordSearches: 1, backlinkAnalyses: 1, auditPages: 1, domainAnalyses: 1, trackedKeywords: 1, projects: 1, exports: 1}
  pro:
    limits: {keywordSearches: 1, backlinkAnalyses: 1, auditPages: 1, domainAnalyses: 1, trackedKeywords: 1, projects: 1, exports: 1, aiVisibilityRequests: 1}
  agency:
    limits: {keywordSearches: unlimited, backlinkAnalyses: 1, auditPages: 1, domainAnalyses: 1, trackedKeywords: 1, projects: 1, exports: 1, aiVisibilityRequests: 1}
`)
	_, err := quota.LoadTable(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, quota.ErrInvalidTable)
	assert.ErrorIs(t, err, quota.ErrUndefinedLimit)
	assert.Contains(t, err.Error(), "aiVisibilityRequests")
}

func TestLoadTableRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "negative limit", doc: "plans:\n  free:\n    limits: {keywordSearches: -5}\n"},
		{name: "not a number", doc: "plans:\n  free:\n    limits: {keywordSearches: lots}\n"},
		{name: "unknown plan", doc: "plans:\n  enterprise:\n    limits: {}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := quota.LoadTable([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLimitJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(map[string]quota.Limit{"a": 100, "b": quota.Unlimited})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":100,"b":"unlimited"}`, string(b))

	var back map[string]quota.Limit
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, quota.Limit(100), back["a"])
	assert.Equal(t, quota.Unlimited, back["b"])
}

func TestLimitRemaining(t *testing.T) {
	t.Parallel()

	assert.Equal(t, quota.Limit(40), quota.Limit(100).Remaining(60))
	assert.Equal(t, quota.Limit(0), quota.Limit(100).Remaining(130))
	assert.Equal(t, quota.Unlimited, quota.Unlimited.Remaining(1e6))
	assert.True(t, quota.Limit(10).Allows(9, 1))
	assert.False(t, quota.Limit(10).Allows(9, 2))
	assert.True(t, quota.Unlimited.Allows(1e9, 1e9))
}
