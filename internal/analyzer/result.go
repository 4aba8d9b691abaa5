package analyzer

import (
	"encoding/json"
	"fmt"
)

// Kind classifies an issue.
type Kind string

const (
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Severity ranks an issue for the action plan.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Status is a score bucket (4-tier) or a check outcome (3-tier).
type Status string

const (
	StatusExcellent        Status = "excellent"
	StatusGood             Status = "good"
	StatusNeedsImprovement Status = "needs-improvement"
	StatusPoor             Status = "poor"
	StatusWarning          Status = "warning"
	StatusError            Status = "error"
)

// Confidence describes how much a result can be trusted.
type Confidence string

const (
	// ConfidenceHigh is a result computed from the fetched page
	ConfidenceHigh Confidence = "high"
	// ConfidenceLow is a result computed from the fallback document
	ConfidenceLow       Confidence = "low"
	ConfidenceSimulated Confidence = "simulated"
	ConfidenceNone      Confidence = "none"
)

// Issue is a problem found by an analyzer.
type Issue struct {
	Code     string   `json:"code"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

// NewIssue creates an issue.
func NewIssue(category Category, code string, kind Kind, severity Severity, message string) Issue {
	return Issue{
		Code:     code,
		Kind:     kind,
		Severity: severity,
		Category: category,
		Message:  message,
	}
}

// Result is the outcome of one analyzer. Detail holds the category specific
// findings and is one of the *Detail types of this package.
type Result struct {
	Category        Category   `json:"category"`
	Score           int        `json:"score"`
	Status          Status     `json:"status"`
	Confidence      Confidence `json:"confidence"`
	Issues          []Issue    `json:"issues"`
	Recommendations []string   `json:"recommendations"`
	Detail          Detail     `json:"detail,omitempty"`
}

// Detail is implemented only by the detail types of this package.
type Detail interface {
	detail()
}

func (*MetaTagsDetail) detail()        {}
func (*PageSpeedDetail) detail()       {}
func (*KeywordDensityDetail) detail()  {}
func (*MobileDetail) detail()          {}
func (*SitemapRobotsDetail) detail()   {}
func (*TechnicalSEODetail) detail()    {}
func (*SchemaDetail) detail()          {}
func (*AltTextDetail) detail()         {}
func (*CanonicalDetail) detail()       {}
func (*BrokenLinksDetail) detail()     {}
func (*KeywordResearchDetail) detail() {}
func (*BacklinksDetail) detail()       {}
func (*CompetitorsDetail) detail()     {}
func (*RankTrackingDetail) detail()    {}

// newDetail returns an empty detail of the type used by c.
func newDetail(c Category) Detail {
	switch c {
	case CategoryMetaTags:
		return &MetaTagsDetail{}
	case CategoryPageSpeed:
		return &PageSpeedDetail{}
	case CategoryKeywordDensity:
		return &KeywordDensityDetail{}
	case CategoryMobile:
		return &MobileDetail{}
	case CategorySitemapRobots:
		return &SitemapRobotsDetail{}
	case CategoryTechnicalSEO:
		return &TechnicalSEODetail{}
	case CategorySchema:
		return &SchemaDetail{}
	case CategoryAltText:
		return &AltTextDetail{}
	case CategoryCanonical:
		return &CanonicalDetail{}
	case CategoryBrokenLinks:
		return &BrokenLinksDetail{}
	case CategoryKeywordResearch:
		return &KeywordResearchDetail{}
	case CategoryBacklinks:
		return &BacklinksDetail{}
	case CategoryCompetitors:
		return &CompetitorsDetail{}
	case CategoryRankTracking:
		return &RankTrackingDetail{}
	}
	return nil
}

// UnmarshalJSON decodes Detail into the concrete type of the category.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var raw struct {
		plain
		Detail json.RawMessage `json:"detail,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Result(raw.plain)
	r.Detail = nil
	if len(raw.Detail) == 0 || string(raw.Detail) == "null" {
		return nil
	}

	d := newDetail(r.Category)
	if d == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, r.Category)
	}
	if err := json.Unmarshal(raw.Detail, d); err != nil {
		return fmt.Errorf("decode %s detail: %w", r.Category, err)
	}
	r.Detail = d
	return nil
}
