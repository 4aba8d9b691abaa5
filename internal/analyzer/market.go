package analyzer

import (
	"errors"
	"fmt"
	"math"

	"github.com/spider-crawler/siteaudit/internal/market"
	"github.com/spider-crawler/siteaudit/internal/urlutil"
)

// ErrNoProvider is returned by the market analyzers when no provider is set.
var ErrNoProvider = errors.New("no market data provider configured")

// KeywordResearchDetail holds keyword metrics for the seed keywords.
type KeywordResearchDetail struct {
	Seeds             []string               `json:"seeds"`
	Keywords          []market.KeywordMetric `json:"keywords"`
	Related           []string               `json:"related"`
	AverageDifficulty float64                `json:"average_difficulty"`
	TotalVolume       int                    `json:"total_volume"`
}

// BacklinksDetail wraps the backlink profile of the domain.
type BacklinksDetail struct {
	Profile *market.BacklinkProfile `json:"profile"`
}

// CompetitorsDetail wraps the competitor set of the domain.
type CompetitorsDetail struct {
	Set            *market.CompetitorSet `json:"set"`
	AverageOverlap float64               `json:"average_overlap"`
}

// RankTrackingDetail wraps the rank history of the seed keywords.
type RankTrackingDetail struct {
	History *market.RankHistory `json:"history"`
	Ranked  int                 `json:"ranked"`
}

// confidenceOf maps the provider label onto the result confidence.
func confidenceOf(c market.Confidence) Confidence {
	switch c {
	case market.ConfidenceMeasured:
		return ConfidenceHigh
	case market.ConfidenceSimulated:
		return ConfidenceSimulated
	}
	return ConfidenceNone
}

func domainOf(ctx *AnalysisContext) string {
	return urlutil.ExtractDomain(ctx.Document.URL().Host)
}

// KeywordResearchAnalyzer looks up volume and difficulty of the seed keywords.
type KeywordResearchAnalyzer struct{}

func NewKeywordResearchAnalyzer() *KeywordResearchAnalyzer {
	return &KeywordResearchAnalyzer{}
}

func (a *KeywordResearchAnalyzer) Category() Category {
	return CategoryKeywordResearch
}

func (a *KeywordResearchAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	if ctx.Market == nil {
		return nil, ErrNoProvider
	}
	detail := &KeywordResearchDetail{
		Seeds:    ctx.seeds(),
		Keywords: make([]market.KeywordMetric, 0),
		Related:  make([]string, 0),
	}
	result := newResult(CategoryKeywordResearch, detail)

	if len(detail.Seeds) == 0 {
		result.Score = 0
		result.Confidence = ConfidenceNone
		result.note(NewIssue(CategoryKeywordResearch, IssueNoSeedKeywords, KindWarning, SeverityMedium,
			"No keywords were supplied and none could be derived from the page text"))
		result.recommend("Supply target keywords or add more descriptive text to the page")
		return result.finish(), nil
	}

	report, err := ctx.Market.KeywordMetrics(ctx.runContext(), detail.Seeds)
	if err != nil {
		return nil, fmt.Errorf("keyword metrics: %w", err)
	}
	result.Confidence = confidenceOf(report.Confidence)
	detail.Keywords = append(detail.Keywords, report.Keywords...)
	detail.Related = append(detail.Related, report.Related...)

	if len(detail.Keywords) == 0 {
		result.Score = 0
		return result.finish(), nil
	}

	var sum int
	for _, kw := range detail.Keywords {
		sum += kw.Difficulty
		detail.TotalVolume += kw.SearchVolume
		if kw.Difficulty >= 70 {
			result.note(NewIssue(CategoryKeywordResearch, IssueHardKeyword, KindInfo, SeverityLow,
				fmt.Sprintf("Keyword %q is hard to rank for (difficulty %d)", kw.Keyword, kw.Difficulty)))
		}
	}
	detail.AverageDifficulty = float64(sum) / float64(len(detail.Keywords))
	result.Score = roundScore(100 - detail.AverageDifficulty/2)
	if detail.AverageDifficulty >= 50 {
		result.recommend("Target long-tail variations with lower difficulty")
	}

	return result.finish(), nil
}

// BacklinksAnalyzer scores the backlink profile of the domain.
type BacklinksAnalyzer struct{}

func NewBacklinksAnalyzer() *BacklinksAnalyzer {
	return &BacklinksAnalyzer{}
}

func (a *BacklinksAnalyzer) Category() Category {
	return CategoryBacklinks
}

func (a *BacklinksAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	if ctx.Market == nil {
		return nil, ErrNoProvider
	}
	profile, err := ctx.Market.BacklinkProfile(ctx.runContext(), domainOf(ctx))
	if err != nil {
		return nil, fmt.Errorf("backlink profile: %w", err)
	}
	result := newResult(CategoryBacklinks, &BacklinksDetail{Profile: profile})
	result.Confidence = confidenceOf(profile.Confidence)
	result.Score = profile.DomainAuthority

	if profile.DomainAuthority < Thresholds.LowDomainAuthority {
		result.note(NewIssue(CategoryBacklinks, IssueLowAuthority, KindWarning, SeverityMedium,
			fmt.Sprintf("Domain authority is low (%d)", profile.DomainAuthority)))
		result.recommend("Earn links from relevant, authoritative sites")
	}
	if profile.DoFollowRatio < 0.5 {
		result.note(NewIssue(CategoryBacklinks, IssueLowDoFollow, KindInfo, SeverityLow,
			fmt.Sprintf("Only %.0f%% of backlinks are dofollow", profile.DoFollowRatio*100)))
	}

	return result.finish(), nil
}

// CompetitorsAnalyzer scores how contested the domain's keywords are.
type CompetitorsAnalyzer struct{}

func NewCompetitorsAnalyzer() *CompetitorsAnalyzer {
	return &CompetitorsAnalyzer{}
}

func (a *CompetitorsAnalyzer) Category() Category {
	return CategoryCompetitors
}

func (a *CompetitorsAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	if ctx.Market == nil {
		return nil, ErrNoProvider
	}
	set, err := ctx.Market.CompetitorSet(ctx.runContext(), domainOf(ctx))
	if err != nil {
		return nil, fmt.Errorf("competitor set: %w", err)
	}
	detail := &CompetitorsDetail{Set: set}
	result := newResult(CategoryCompetitors, detail)
	result.Confidence = confidenceOf(set.Confidence)

	if len(set.Competitors) == 0 {
		return result.finish(), nil
	}

	var sum int
	for _, c := range set.Competitors {
		sum += c.KeywordOverlap
		if c.KeywordOverlap > 60 {
			result.note(NewIssue(CategoryCompetitors, IssueStrongCompetitor, KindInfo, SeverityLow,
				fmt.Sprintf("%s shares %d%% of your keywords", c.Domain, c.KeywordOverlap)))
		}
	}
	detail.AverageOverlap = float64(sum) / float64(len(set.Competitors))
	result.Score = roundScore(100 - detail.AverageOverlap)
	if detail.AverageOverlap > 50 {
		result.recommend("Differentiate content from competitors with the highest keyword overlap")
	}

	return result.finish(), nil
}

// RankTrackingAnalyzer scores the current positions of the seed keywords.
type RankTrackingAnalyzer struct{}

func NewRankTrackingAnalyzer() *RankTrackingAnalyzer {
	return &RankTrackingAnalyzer{}
}

func (a *RankTrackingAnalyzer) Category() Category {
	return CategoryRankTracking
}

func (a *RankTrackingAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	if ctx.Market == nil {
		return nil, ErrNoProvider
	}
	seeds := ctx.seeds()
	history, err := ctx.Market.RankHistory(ctx.runContext(), domainOf(ctx), seeds)
	if err != nil {
		return nil, fmt.Errorf("rank history: %w", err)
	}
	detail := &RankTrackingDetail{History: history}
	result := newResult(CategoryRankTracking, detail)
	result.Confidence = confidenceOf(history.Confidence)

	if len(history.Entries) == 0 {
		result.Score = 0
		return result.finish(), nil
	}

	var sum int
	for _, e := range history.Entries {
		sum += positionScore(e.Latest)
		if e.Latest == 0 {
			result.note(NewIssue(CategoryRankTracking, IssueNotRanked, KindInfo, SeverityLow,
				fmt.Sprintf("Not ranked in the top 100 for %q", e.Keyword)))
			continue
		}
		detail.Ranked++
		if e.Change < -5 {
			result.note(NewIssue(CategoryRankTracking, IssueRankDropped, KindWarning, SeverityMedium,
				fmt.Sprintf("%q dropped %d positions to #%d", e.Keyword, -e.Change, e.Latest)))
			result.recommend("Review pages whose rankings dropped for content freshness and competition")
		}
	}
	result.Score = int(math.Round(float64(sum) / float64(len(history.Entries))))

	return result.finish(), nil
}

// positionScore converts a search position into points; 0 is not ranked.
func positionScore(pos int) int {
	switch {
	case pos <= 0:
		return 0
	case pos <= 3:
		return 100
	case pos <= 10:
		return 80
	case pos <= 20:
		return 60
	case pos <= 50:
		return 40
	}
	return 20
}
