// Package market defines the source of off-page search data (keyword
// metrics, backlinks, competitors, rankings) used by the market analyzers.
package market

import "context"

// Confidence labels how trustworthy a payload is.
type Confidence string

const (
	ConfidenceMeasured  Confidence = "measured"
	ConfidenceSimulated Confidence = "simulated"
	ConfidenceNone      Confidence = "none"
)

// Provider supplies market data. Implementations must be safe for
// concurrent use.
type Provider interface {
	KeywordMetrics(ctx context.Context, seeds []string) (*KeywordReport, error)
	BacklinkProfile(ctx context.Context, domain string) (*BacklinkProfile, error)
	CompetitorSet(ctx context.Context, domain string) (*CompetitorSet, error)
	RankHistory(ctx context.Context, domain string, keywords []string) (*RankHistory, error)
}

// KeywordMetric describes one keyword.
type KeywordMetric struct {
	Keyword      string  `json:"keyword"`
	SearchVolume int     `json:"search_volume"`
	Difficulty   int     `json:"difficulty"` // 0..100
	CPC          float64 `json:"cpc"`
	Competition  string  `json:"competition"` // low, medium, high
	Trend        []int   `json:"trend"`       // relative monthly interest, oldest first
}

// KeywordReport is the result of KeywordMetrics.
type KeywordReport struct {
	Keywords   []KeywordMetric `json:"keywords"`
	Related    []string        `json:"related,omitempty"`
	Confidence Confidence      `json:"confidence"`
}

// AnchorCount is an anchor text and how often backlinks use it.
type AnchorCount struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// BacklinkProfile summarizes the links pointing at a domain.
type BacklinkProfile struct {
	Domain           string        `json:"domain"`
	DomainAuthority  int           `json:"domain_authority"` // 0..100
	TotalBacklinks   int           `json:"total_backlinks"`
	ReferringDomains int           `json:"referring_domains"`
	DoFollowRatio    float64       `json:"dofollow_ratio"`
	TopAnchors       []AnchorCount `json:"top_anchors"`
	Confidence       Confidence    `json:"confidence"`
}

// Competitor is a domain competing for the same keywords.
type Competitor struct {
	Domain          string `json:"domain"`
	KeywordOverlap  int    `json:"keyword_overlap"` // percent
	DomainAuthority int    `json:"domain_authority"`
	SharedKeywords  int    `json:"shared_keywords"`
}

// CompetitorSet is the result of CompetitorSet.
type CompetitorSet struct {
	Domain      string       `json:"domain"`
	Competitors []Competitor `json:"competitors"`
	Confidence  Confidence   `json:"confidence"`
}

// RankEntry is the position history of one keyword. Position 0 means not
// ranked in the top 100.
type RankEntry struct {
	Keyword   string `json:"keyword"`
	Positions []int  `json:"positions"` // oldest first
	Latest    int    `json:"latest"`
	Change    int    `json:"change"` // positive is an improvement
}

// RankHistory is the result of RankHistory.
type RankHistory struct {
	Domain     string      `json:"domain"`
	Entries    []RankEntry `json:"entries"`
	Confidence Confidence  `json:"confidence"`
}
