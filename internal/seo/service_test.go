package seo_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seoscope/internal/seo"
	"github.com/dmitrymomot/seoscope/pkg/dataforseo"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeProvider answers each endpoint with a canned result and records calls.
type fakeProvider struct {
	mu      sync.Mutex
	hits    map[string]int
	bodies  map[string][]json.RawMessage
	results map[string]string
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	p.mu.Lock()
	p.hits[r.URL.Path]++
	p.bodies[r.URL.Path] = append(p.bodies[r.URL.Path], raw)
	result, ok := p.results[r.URL.Path]
	p.mu.Unlock()
	if !ok {
		result = "[]"
	}
	_, _ = fmt.Fprintf(w, `{"status_code":20000,"status_message":"Ok.","tasks":[{"id":"t","status_code":20000,"status_message":"Ok.","result":%s}]}`, result)
}

func (p *fakeProvider) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

type fixture struct {
	svc      *seo.Service
	provider *fakeProvider
	store    *quota.MemoryStore
	userID   uuid.UUID
}

func newFixture(t *testing.T, plan quota.PlanType, results map[string]string) *fixture {
	t.Helper()
	p := &fakeProvider{hits: map[string]int{}, bodies: map[string][]json.RawMessage{}, results: results}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	store := quota.NewMemoryStore()
	gate := quota.NewGate(quota.DefaultTable(), store,
		quota.PlanResolverFunc(func(context.Context, uuid.UUID) (quota.PlanType, error) { return plan, nil }),
		quota.WithClock(func() time.Time { return now }),
	)
	client := dataforseo.New(dataforseo.Config{URL: srv.URL, Password: "dGVzdDp0ZXN0", Timeout: 5 * time.Second}, gate)
	return &fixture{svc: seo.NewService(client, gate), provider: p, store: store, userID: uuid.New()}
}

func (f *fixture) used(t *testing.T, cat quota.Category) int64 {
	t.Helper()
	u, err := f.store.GetPeriod(context.Background(), f.userID, quota.PeriodFor(now))
	require.NoError(t, err)
	return u.Counters[cat]
}

func TestKeywordIdeas(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, map[string]string{
		seo.PathKeywordIdeas: `[{"items":[
			{"keyword":"seo tools","keyword_info":{"search_volume":5400,"cpc":3.1,"competition":0.8},"keyword_properties":{"keyword_difficulty":61},"search_intent_info":{"main_intent":"commercial"}},
			{"keyword":"free seo tools","keyword_info":{"search_volume":1900,"cpc":1.2,"competition":0.4},"keyword_properties":{"keyword_difficulty":40}}
		]}]`,
	})

	ideas, err := f.svc.KeywordIdeas(context.Background(), f.userID, seo.KeywordIdeasInput{Keyword: "  seo tools "})
	require.NoError(t, err)
	require.Len(t, ideas, 2)
	assert.Equal(t, seo.KeywordIdea{Keyword: "seo tools", SearchVolume: 5400, CPC: 3.1, Competition: 0.8, Difficulty: 61, Intent: "commercial"}, ideas[0])
	assert.Equal(t, int64(1), f.used(t, quota.KeywordSearches))

	var sent []map[string]any
	require.NoError(t, json.Unmarshal(f.provider.bodies[seo.PathKeywordIdeas][0], &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, []any{"seo tools"}, sent[0]["keywords"])
	assert.EqualValues(t, 2840, sent[0]["location_code"])
	assert.Equal(t, "en", sent[0]["language_code"])
	assert.EqualValues(t, 100, sent[0]["limit"])
}

func TestKeywordIdeasValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, nil)

	_, err := f.svc.KeywordIdeas(context.Background(), f.userID, seo.KeywordIdeasInput{Keyword: "   "})
	var verr validator.Errors
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("keyword"))
	assert.Zero(t, f.provider.count(seo.PathKeywordIdeas))
	assert.Zero(t, f.used(t, quota.KeywordSearches))
}

func TestKeywordIdeasEmptyResult(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanPro, map[string]string{seo.PathKeywordIdeas: "null"})

	ideas, err := f.svc.KeywordIdeas(context.Background(), f.userID, seo.KeywordIdeasInput{Keyword: "zzzz"})
	require.NoError(t, err)
	assert.NotNil(t, ideas)
	assert.Empty(t, ideas)
}

func TestBacklinks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, map[string]string{
		seo.PathBacklinks: `[{"target":"example.com","rank":412,"backlinks":12000,"referring_domains":340,"referring_ips":300,"broken_backlinks":12,"backlinks_spam_score":4,"first_seen":"2019-01-01"}]`,
	})

	summary, err := f.svc.Backlinks(context.Background(), f.userID, "https://www.Example.com/about")
	require.NoError(t, err)
	assert.Equal(t, "example.com", summary.Target)
	assert.Equal(t, int64(12000), summary.Backlinks)
	assert.Equal(t, int64(340), summary.ReferringDomains)
	assert.Equal(t, 4, summary.SpamScore)
	assert.Equal(t, int64(1), f.used(t, quota.BacklinkAnalyses))
}

func TestAuditPagesMetersBatchOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, map[string]string{
		seo.PathInstantPages: `[{"items":[{"url":"https://example.com/","status_code":200,"onpage_score":87.5,"meta":{"title":"Home","description":"","content":{"plain_text_word_count":420}},"checks":{"no_description":true,"is_https":true,"no_h1_tag":false}}]}]`,
	})

	urls := []string{"https://example.com/", "https://example.com/a", "https://example.com/b"}
	audits, err := f.svc.AuditPages(context.Background(), f.userID, seo.AuditInput{URLs: urls})
	require.NoError(t, err)
	require.Len(t, audits, 3)
	assert.Equal(t, []string{"no_description"}, audits[0].Issues)
	assert.Equal(t, 420, audits[1].WordCount)
	assert.InDelta(t, 87.5, audits[2].Score, 0.001)

	assert.Equal(t, 3, f.provider.count(seo.PathInstantPages))
	assert.Equal(t, int64(3), f.used(t, quota.AuditPages))
}

func TestAuditPagesValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, nil)

	tooMany := make([]string, seo.MaxAuditURLs+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("https://example.com/%d", i)
	}
	for _, urls := range [][]string{nil, {"not a url"}, tooMany} {
		_, err := f.svc.AuditPages(context.Background(), f.userID, seo.AuditInput{URLs: urls})
		var verr validator.Errors
		require.ErrorAs(t, err, &verr)
	}
	assert.Zero(t, f.provider.count(seo.PathInstantPages))
	assert.Zero(t, f.used(t, quota.AuditPages))
}

func TestDomainOverview(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanPro, map[string]string{
		seo.PathDomainOverview: `[{"items":[{"metrics":{"organic":{"etv":15300.5,"count":2100,"pos_1":20,"pos_2_3":45,"pos_4_10":150},"paid":{"etv":120,"count":8}}}]}]`,
		seo.PathRankedKeywords: `[{"items":[{"keyword_data":{"keyword":"seo","keyword_info":{"search_volume":90500}},"ranked_serp_element":{"serp_item":{"rank_absolute":7,"url":"https://example.com/seo"}}}]}]`,
		seo.PathBacklinks:      `[{"target":"example.com","rank":300,"backlinks":500,"referring_domains":80}]`,
	})

	overview, err := f.svc.DomainOverview(context.Background(), f.userID, "example.com")
	require.NoError(t, err)
	assert.InDelta(t, 15300.5, overview.OrganicTraffic, 0.001)
	assert.Equal(t, int64(65), overview.Top3)
	assert.Equal(t, int64(215), overview.Top10)
	require.Len(t, overview.TopKeywords, 1)
	assert.Equal(t, 7, overview.TopKeywords[0].Position)
	require.NotNil(t, overview.Backlinks)
	assert.Equal(t, int64(80), overview.Backlinks.ReferringDomains)

	assert.Equal(t, int64(1), f.used(t, quota.DomainAnalyses))
	assert.Zero(t, f.used(t, quota.BacklinkAnalyses))
	assert.Equal(t, 1, f.provider.count(seo.PathRankedKeywords))
	assert.Equal(t, 1, f.provider.count(seo.PathBacklinks))
}

func TestDomainOverviewDeniedMakesNoCalls(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, nil)
	_, ok, err := f.store.IncrementIfBelow(context.Background(), f.userID, quota.PeriodFor(now), quota.DomainAnalyses, 10, quota.Unlimited)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.DomainOverview(context.Background(), f.userID, "example.com")
	require.ErrorIs(t, err, quota.ErrLimitExceeded)
	assert.Contains(t, err.Error(), "domainAnalyses")
	assert.Zero(t, f.provider.count(seo.PathDomainOverview))
	assert.Zero(t, f.provider.count(seo.PathRankedKeywords))
	assert.Equal(t, int64(10), f.used(t, quota.DomainAnalyses))
}

func TestAIVisibility(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanPro, map[string]string{
		seo.PathLLMMentions: `[{"total_count":2,"items":[
			{"question":"best seo tool?","platform":"google","ai_search_volume":300,"sources":[{"domain":"blog.example.com"}]},
			{"question":"cheap seo tool?","platform":"google","ai_search_volume":90,"sources":[{"domain":"other.com"}]}
		]}]`,
	})

	report, err := f.svc.AIVisibility(context.Background(), f.userID, seo.AIVisibilityInput{Domain: "www.example.com", Keywords: []string{"seo tool"}})
	require.NoError(t, err)
	assert.Equal(t, "example.com", report.Domain)
	assert.Equal(t, int64(2), report.TotalMentions)
	require.Len(t, report.Mentions, 2)
	assert.True(t, report.Mentions[0].Cited)
	assert.False(t, report.Mentions[1].Cited)
	assert.Equal(t, int64(1), f.used(t, quota.AIVisibilityRequests))
}

func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Example.com":                  "example.com",
		"https://www.example.com/path": "example.com",
		"shop.example.co.uk/":          "shop.example.co.uk",
		"http://example.com:8080/x?y":  "example.com",
	}
	for in, want := range cases {
		got, err := seo.NormalizeDomain(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "localhost", "not a domain"} {
		_, err := seo.NormalizeDomain(bad)
		var verr validator.Errors
		assert.ErrorAs(t, err, &verr, bad)
	}
}

func TestExportKeywordIdeas(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, nil)

	out, err := f.svc.ExportKeywordIdeas(context.Background(), f.userID, seo.ExportInput{Ideas: []seo.KeywordIdea{
		{Keyword: "seo tools", SearchVolume: 5400, CPC: 3.1, Competition: 0.8, Difficulty: 61, Intent: "commercial"},
		{Keyword: "=HYPERLINK(\"x\")", SearchVolume: 10},
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"keyword", "search_volume", "cpc", "competition", "difficulty", "intent"}, records[0])
	assert.Equal(t, []string{"seo tools", "5400", "3.10", "0.80", "61", "commercial"}, records[1])
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[2][0])
	assert.Equal(t, int64(1), f.used(t, quota.Exports))
}

func TestExportKeywordIdeasLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t, quota.PlanFree, nil)
	ideas := seo.ExportInput{Ideas: []seo.KeywordIdea{{Keyword: "seo"}}}

	for range 5 {
		_, err := f.svc.ExportKeywordIdeas(context.Background(), f.userID, ideas)
		require.NoError(t, err)
	}
	_, err := f.svc.ExportKeywordIdeas(context.Background(), f.userID, ideas)
	require.ErrorIs(t, err, quota.ErrLimitExceeded)
	assert.Equal(t, int64(5), f.used(t, quota.Exports))

	_, err = f.svc.ExportKeywordIdeas(context.Background(), f.userID, seo.ExportInput{})
	var verr validator.Errors
	require.ErrorAs(t, err, &verr)
}
