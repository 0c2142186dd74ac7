package seo

// Provider result shapes. Only the fields the reports use are decoded.

type keywordIdeasResult struct {
	Items []struct {
		Keyword     string `json:"keyword"`
		KeywordInfo struct {
			SearchVolume int64   `json:"search_volume"`
			CPC          float64 `json:"cpc"`
			Competition  float64 `json:"competition"`
		} `json:"keyword_info"`
		KeywordProperties struct {
			KeywordDifficulty int `json:"keyword_difficulty"`
		} `json:"keyword_properties"`
		SearchIntentInfo struct {
			MainIntent string `json:"main_intent"`
		} `json:"search_intent_info"`
	} `json:"items"`
}

type backlinksResult struct {
	Target             string `json:"target"`
	Rank               int    `json:"rank"`
	Backlinks          int64  `json:"backlinks"`
	ReferringDomains   int64  `json:"referring_domains"`
	ReferringIPs       int64  `json:"referring_ips"`
	BrokenBacklinks    int64  `json:"broken_backlinks"`
	BacklinksSpamScore int    `json:"backlinks_spam_score"`
	FirstSeen          string `json:"first_seen"`
}

type instantPagesResult struct {
	Items []struct {
		URL        string  `json:"url"`
		StatusCode int     `json:"status_code"`
		Score      float64 `json:"onpage_score"`
		Meta       struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Content     struct {
				WordCount int `json:"plain_text_word_count"`
			} `json:"content"`
		} `json:"meta"`
		Checks map[string]bool `json:"checks"`
	} `json:"items"`
}

type organicMetrics struct {
	ETV      float64 `json:"etv"`
	Count    int64   `json:"count"`
	Pos1     int64   `json:"pos_1"`
	Pos2To3  int64   `json:"pos_2_3"`
	Pos4To10 int64   `json:"pos_4_10"`
}

type domainOverviewResult struct {
	Items []struct {
		Metrics struct {
			Organic organicMetrics `json:"organic"`
			Paid    organicMetrics `json:"paid"`
		} `json:"metrics"`
	} `json:"items"`
}

type rankedKeywordsResult struct {
	Items []struct {
		KeywordData struct {
			Keyword     string `json:"keyword"`
			KeywordInfo struct {
				SearchVolume int64 `json:"search_volume"`
			} `json:"keyword_info"`
		} `json:"keyword_data"`
		RankedSERPElement struct {
			SERPItem struct {
				RankAbsolute int    `json:"rank_absolute"`
				URL          string `json:"url"`
			} `json:"serp_item"`
		} `json:"ranked_serp_element"`
	} `json:"items"`
}

type llmMentionsResult struct {
	TotalCount int64 `json:"total_count"`
	Items      []struct {
		Question       string      `json:"question"`
		Platform       string      `json:"platform"`
		AISearchVolume int64       `json:"ai_search_volume"`
		Sources        []llmSource `json:"sources"`
	} `json:"items"`
}

type llmSource struct {
	Domain string `json:"domain"`
	URL    string `json:"url"`
}

// auditIssueChecks are the instant_pages checks that flag a problem when true.
var auditIssueChecks = []string{
	"is_broken",
	"is_4xx_code",
	"is_5xx_code",
	"is_redirect",
	"no_title",
	"no_description",
	"no_h1_tag",
	"duplicate_title_tag",
	"title_too_long",
	"title_too_short",
	"low_content_rate",
	"high_loading_time",
	"no_image_alt",
	"is_http",
	"has_render_blocking_resources",
}

type marketRequest struct {
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
}

type keywordIdeasRequest struct {
	Keywords []string `json:"keywords"`
	marketRequest
	Limit int `json:"limit"`
}

type backlinksRequest struct {
	Target            string `json:"target"`
	IncludeSubdomains bool   `json:"include_subdomains"`
}

type instantPagesRequest struct {
	URL              string `json:"url"`
	EnableJavascript bool   `json:"enable_javascript"`
}

type domainRequest struct {
	Target string `json:"target"`
	marketRequest
}

type rankedKeywordsRequest struct {
	Target string `json:"target"`
	marketRequest
	Limit   int      `json:"limit"`
	OrderBy []string `json:"order_by"`
}

type llmTarget struct {
	Domain        string `json:"domain,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
	SearchFilter  string `json:"search_filter,omitempty"`
	IncludeSubdom bool   `json:"include_subdomains,omitempty"`
}

type llmMentionsRequest struct {
	Target []llmTarget `json:"target"`
	marketRequest
	Platform string `json:"platform"`
	Limit    int    `json:"limit"`
}
