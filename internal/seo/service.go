// Package seo builds keyword, backlink, audit, domain and AI visibility
// reports on top of the metered DataForSEO proxy.
package seo

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/seoscope/pkg/dataforseo"
	"github.com/dmitrymomot/seoscope/pkg/logger"
	"github.com/dmitrymomot/seoscope/pkg/quota"
	"github.com/dmitrymomot/seoscope/pkg/validator"
)

// Proxy sends metered requests to the provider. *dataforseo.Client implements it.
type Proxy interface {
	Post(ctx context.Context, userID uuid.UUID, path string, payload any, usage dataforseo.Usage) (*dataforseo.Response, error)
}

type Service struct {
	proxy       Proxy
	gate        dataforseo.Gate
	log         *slog.Logger
	concurrency int
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithConcurrency caps parallel provider calls within one report.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(proxy Proxy, gate dataforseo.Gate, opts ...Option) *Service {
	s := &Service{
		proxy:       proxy,
		gate:        gate,
		log:         logger.Discard(),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KeywordIdeas returns keyword suggestions for a seed keyword.
func (s *Service) KeywordIdeas(ctx context.Context, userID uuid.UUID, in KeywordIdeasInput) ([]KeywordIdea, error) {
	in.Keyword = strings.TrimSpace(in.Keyword)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if in.Limit == 0 {
		in.Limit = DefaultIdeasLimit
	}

	req := keywordIdeasRequest{
		Keywords:      []string{in.Keyword},
		marketRequest: market(in.LocationCode, in.LanguageCode),
		Limit:         in.Limit,
	}
	resp, err := s.proxy.Post(ctx, userID, PathKeywordIdeas, req, dataforseo.Usage{Category: quota.KeywordSearches, Weight: 1})
	if err != nil {
		return nil, err
	}
	results, err := decode[keywordIdeasResult](resp)
	if err != nil {
		return nil, err
	}

	ideas := []KeywordIdea{}
	for _, r := range results {
		for _, item := range r.Items {
			ideas = append(ideas, KeywordIdea{
				Keyword:      item.Keyword,
				SearchVolume: item.KeywordInfo.SearchVolume,
				CPC:          item.KeywordInfo.CPC,
				Competition:  item.KeywordInfo.Competition,
				Difficulty:   item.KeywordProperties.KeywordDifficulty,
				Intent:       item.SearchIntentInfo.MainIntent,
			})
		}
	}
	return ideas, nil
}

// Backlinks returns the backlink profile summary of a domain.
func (s *Service) Backlinks(ctx context.Context, userID uuid.UUID, target string) (*BacklinkSummary, error) {
	domain, err := NormalizeDomain(target)
	if err != nil {
		return nil, err
	}
	return s.backlinks(ctx, userID, domain, dataforseo.Usage{Category: quota.BacklinkAnalyses, Weight: 1})
}

func (s *Service) backlinks(ctx context.Context, userID uuid.UUID, domain string, usage dataforseo.Usage) (*BacklinkSummary, error) {
	resp, err := s.proxy.Post(ctx, userID, PathBacklinks, backlinksRequest{Target: domain, IncludeSubdomains: true}, usage)
	if err != nil {
		return nil, err
	}
	results, err := decode[backlinksResult](resp)
	if err != nil {
		return nil, err
	}

	summary := &BacklinkSummary{Target: domain}
	if len(results) > 0 {
		r := results[0]
		summary.Rank = r.Rank
		summary.Backlinks = r.Backlinks
		summary.ReferringDomains = r.ReferringDomains
		summary.ReferringIPs = r.ReferringIPs
		summary.BrokenBacklinks = r.BrokenBacklinks
		summary.SpamScore = r.BacklinksSpamScore
		summary.FirstSeen = r.FirstSeen
	}
	return summary, nil
}

// AuditPages runs an instant on-page audit for each URL. The whole batch is
// metered up front: auditPages grows by the number of URLs.
func (s *Service) AuditPages(ctx context.Context, userID uuid.UUID, in AuditInput) ([]PageAudit, error) {
	for i := range in.URLs {
		in.URLs[i] = strings.TrimSpace(in.URLs[i])
	}
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	audits := make([]PageAudit, len(in.URLs))
	first, err := s.auditPage(ctx, userID, in.URLs[0], dataforseo.Usage{Category: quota.AuditPages, Weight: int64(len(in.URLs))})
	if err != nil {
		return nil, err
	}
	audits[0] = first

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 1; i < len(in.URLs); i++ {
		g.Go(func() error {
			audit, err := s.auditPage(gctx, userID, in.URLs[i], dataforseo.Free)
			if err != nil {
				return err
			}
			audits[i] = audit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return audits, nil
}

func (s *Service) auditPage(ctx context.Context, userID uuid.UUID, pageURL string, usage dataforseo.Usage) (PageAudit, error) {
	resp, err := s.proxy.Post(ctx, userID, PathInstantPages, instantPagesRequest{URL: pageURL}, usage)
	if err != nil {
		return PageAudit{}, err
	}
	results, err := decode[instantPagesResult](resp)
	if err != nil {
		return PageAudit{}, err
	}

	audit := PageAudit{URL: pageURL, Issues: []string{}}
	for _, r := range results {
		for _, item := range r.Items {
			if item.URL != "" {
				audit.URL = item.URL
			}
			audit.StatusCode = item.StatusCode
			audit.Title = item.Meta.Title
			audit.Description = item.Meta.Description
			audit.WordCount = item.Meta.Content.WordCount
			audit.Score = item.Score
			for _, check := range auditIssueChecks {
				if item.Checks[check] {
					audit.Issues = append(audit.Issues, check)
				}
			}
		}
	}
	return audit, nil
}

// DomainOverview combines traffic metrics, top ranking keywords and the
// backlink summary of a domain. Only the first call is metered.
func (s *Service) DomainOverview(ctx context.Context, userID uuid.UUID, target string) (*DomainOverview, error) {
	domain, err := NormalizeDomain(target)
	if err != nil {
		return nil, err
	}

	mkt := market(0, "")
	resp, err := s.proxy.Post(ctx, userID, PathDomainOverview,
		domainRequest{Target: domain, marketRequest: mkt},
		dataforseo.Usage{Category: quota.DomainAnalyses, Weight: 1})
	if err != nil {
		return nil, err
	}
	results, err := decode[domainOverviewResult](resp)
	if err != nil {
		return nil, err
	}

	overview := &DomainOverview{Domain: domain, TopKeywords: []RankedKeyword{}}
	if len(results) > 0 && len(results[0].Items) > 0 {
		m := results[0].Items[0].Metrics
		overview.OrganicTraffic = m.Organic.ETV
		overview.OrganicKeywords = m.Organic.Count
		overview.PaidTraffic = m.Paid.ETV
		overview.PaidKeywords = m.Paid.Count
		overview.Top3 = m.Organic.Pos1 + m.Organic.Pos2To3
		overview.Top10 = overview.Top3 + m.Organic.Pos4To10
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		top, err := s.rankedKeywords(gctx, userID, domain, mkt)
		if err != nil {
			return err
		}
		overview.TopKeywords = top
		return nil
	})
	g.Go(func() error {
		summary, err := s.backlinks(gctx, userID, domain, dataforseo.Free)
		if err != nil {
			return err
		}
		overview.Backlinks = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "domain overview built",
		logger.UserID(userID),
		slog.String("domain", domain),
		slog.Int("top_keywords", len(overview.TopKeywords)),
	)
	return overview, nil
}

func (s *Service) rankedKeywords(ctx context.Context, userID uuid.UUID, domain string, mkt marketRequest) ([]RankedKeyword, error) {
	req := rankedKeywordsRequest{
		Target:        domain,
		marketRequest: mkt,
		Limit:         topKeywordsLimit,
		OrderBy:       []string{"keyword_data.keyword_info.search_volume,desc"},
	}
	resp, err := s.proxy.Post(ctx, userID, PathRankedKeywords, req, dataforseo.Free)
	if err != nil {
		return nil, err
	}
	results, err := decode[rankedKeywordsResult](resp)
	if err != nil {
		return nil, err
	}

	out := []RankedKeyword{}
	for _, r := range results {
		for _, item := range r.Items {
			out = append(out, RankedKeyword{
				Keyword:      item.KeywordData.Keyword,
				SearchVolume: item.KeywordData.KeywordInfo.SearchVolume,
				Position:     item.RankedSERPElement.SERPItem.RankAbsolute,
				URL:          item.RankedSERPElement.SERPItem.URL,
			})
		}
	}
	return out, nil
}

// AIVisibility reports how often AI assistants mention the domain, optionally
// narrowed to questions containing the given keywords.
func (s *Service) AIVisibility(ctx context.Context, userID uuid.UUID, in AIVisibilityInput) (*AIVisibilityReport, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	domain, err := NormalizeDomain(in.Domain)
	if err != nil {
		return nil, err
	}

	req := llmMentionsRequest{
		Target:        []llmTarget{{Domain: domain, SearchFilter: "include", IncludeSubdom: true}},
		marketRequest: market(0, ""),
		Platform:      "google",
		Limit:         100,
	}
	for _, kw := range in.Keywords {
		req.Target = append(req.Target, llmTarget{Keyword: strings.TrimSpace(kw)})
	}

	resp, err := s.proxy.Post(ctx, userID, PathLLMMentions, req, dataforseo.Usage{Category: quota.AIVisibilityRequests, Weight: 1})
	if err != nil {
		return nil, err
	}
	results, err := decode[llmMentionsResult](resp)
	if err != nil {
		return nil, err
	}

	report := &AIVisibilityReport{Domain: domain, Mentions: []Mention{}}
	for _, r := range results {
		report.TotalMentions += r.TotalCount
		for _, item := range r.Items {
			m := Mention{Question: item.Question, Platform: item.Platform, SearchVolume: item.AISearchVolume}
			m.Cited = slices.ContainsFunc(item.Sources, func(src llmSource) bool {
				return sameSite(src.Domain, domain)
			})
			report.Mentions = append(report.Mentions, m)
		}
	}
	return report, nil
}

// NormalizeDomain reduces a URL or host to a bare lower-case domain without
// the www prefix.
func NormalizeDomain(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			raw = u.Hostname()
		}
	}
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimPrefix(raw, "www.")
	if err := validator.Var("domain", raw, "required,fqdn"); err != nil {
		return "", err
	}
	return raw, nil
}

func sameSite(host, domain string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func market(location int, language string) marketRequest {
	if location == 0 {
		location = DefaultLocationCode
	}
	if language == "" {
		language = DefaultLanguageCode
	}
	return marketRequest{LocationCode: location, LanguageCode: language}
}

// decode treats an empty result as no rows.
func decode[T any](resp *dataforseo.Response) ([]T, error) {
	out, err := dataforseo.DecodeResult[T](resp)
	if errors.Is(err, dataforseo.ErrEmptyResult) {
		return nil, nil
	}
	return out, err
}
