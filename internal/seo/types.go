package seo

// Provider endpoints.
const (
	PathKeywordIdeas   = "/v3/dataforseo_labs/google/keyword_ideas/live"
	PathBacklinks      = "/v3/backlinks/summary/live"
	PathInstantPages   = "/v3/on_page/instant_pages"
	PathDomainOverview = "/v3/dataforseo_labs/google/domain_rank_overview/live"
	PathRankedKeywords = "/v3/dataforseo_labs/google/ranked_keywords/live"
	PathLLMMentions    = "/v3/ai_optimization/llm_mentions/search/live"
)

const (
	DefaultLocationCode = 2840
	DefaultLanguageCode = "en"
	DefaultIdeasLimit   = 100
	MaxAuditURLs        = 20
	MaxAIKeywords       = 10
	topKeywordsLimit    = 10
)

// KeywordIdeasInput selects seed keyword and market.
type KeywordIdeasInput struct {
	Keyword      string `json:"keyword" validate:"required,max=200"`
	LocationCode int    `json:"locationCode" validate:"omitempty,min=1"`
	LanguageCode string `json:"languageCode" validate:"omitempty,len=2"`
	Limit        int    `json:"limit" validate:"omitempty,min=1,max=1000"`
}

type KeywordIdea struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int64   `json:"searchVolume"`
	CPC          float64 `json:"cpc"`
	Competition  float64 `json:"competition"`
	Difficulty   int     `json:"difficulty"`
	Intent       string  `json:"intent,omitempty"`
}

type BacklinkSummary struct {
	Target           string `json:"target"`
	Rank             int    `json:"rank"`
	Backlinks        int64  `json:"backlinks"`
	ReferringDomains int64  `json:"referringDomains"`
	ReferringIPs     int64  `json:"referringIps"`
	BrokenBacklinks  int64  `json:"brokenBacklinks"`
	SpamScore        int    `json:"spamScore"`
	FirstSeen        string `json:"firstSeen,omitempty"`
}

type AuditInput struct {
	URLs []string `json:"urls" validate:"required,min=1,max=20,dive,required,http_url"`
}

type PageAudit struct {
	URL         string   `json:"url"`
	StatusCode  int      `json:"statusCode"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	WordCount   int      `json:"wordCount"`
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
}

type RankedKeyword struct {
	Keyword      string `json:"keyword"`
	SearchVolume int64  `json:"searchVolume"`
	Position     int    `json:"position"`
	URL          string `json:"url"`
}

type DomainOverview struct {
	Domain          string           `json:"domain"`
	OrganicTraffic  float64          `json:"organicTraffic"`
	OrganicKeywords int64            `json:"organicKeywords"`
	PaidTraffic     float64          `json:"paidTraffic"`
	PaidKeywords    int64            `json:"paidKeywords"`
	Top3            int64            `json:"top3"`
	Top10           int64            `json:"top10"`
	TopKeywords     []RankedKeyword  `json:"topKeywords"`
	Backlinks       *BacklinkSummary `json:"backlinks,omitempty"`
}

type AIVisibilityInput struct {
	Domain   string   `json:"domain" validate:"required"`
	Keywords []string `json:"keywords" validate:"max=10,dive,required,max=200"`
}

type Mention struct {
	Question     string `json:"question"`
	Platform     string `json:"platform"`
	SearchVolume int64  `json:"searchVolume"`
	Cited        bool   `json:"cited"`
}

type AIVisibilityReport struct {
	Domain        string    `json:"domain"`
	TotalMentions int64     `json:"totalMentions"`
	Mentions      []Mention `json:"mentions"`
}

type ExportInput struct {
	Ideas []KeywordIdea `json:"ideas" validate:"required,min=1,max=5000"`
}
