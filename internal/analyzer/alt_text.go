package analyzer

import (
	"fmt"
	"math"
)

// ImageAlt is the alt state of one image.
type ImageAlt struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	HasAlt bool   `json:"has_alt"`
}

// AltTextDetail counts images by alt text state.
type AltTextDetail struct {
	Total   int        `json:"total"`
	WithAlt int        `json:"with_alt"`
	Missing int        `json:"missing"`
	Empty   int        `json:"empty"` // alt="" marks decorative images
	TooLong int        `json:"too_long"`
	Images  []ImageAlt `json:"images"`
}

// AltTextAnalyzer checks that images carry alternative text.
type AltTextAnalyzer struct{}

func NewAltTextAnalyzer() *AltTextAnalyzer {
	return &AltTextAnalyzer{}
}

func (a *AltTextAnalyzer) Category() Category {
	return CategoryAltText
}

func (a *AltTextAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	images := ctx.Document.Images()
	detail := &AltTextDetail{
		Total:  len(images),
		Images: make([]ImageAlt, 0, len(images)),
	}
	result := newResult(CategoryAltText, detail)

	for _, img := range images {
		detail.Images = append(detail.Images, ImageAlt{Src: img.Src, Alt: img.Alt, HasAlt: img.HasAlt})
		switch {
		case !img.HasAlt:
			detail.Missing++
			continue
		case img.Alt == "":
			detail.Empty++
		case len([]rune(img.Alt)) > Thresholds.AltTextMaxLength:
			detail.TooLong++
		}
		detail.WithAlt++
	}

	if detail.Total > 0 {
		result.Score = int(math.Round(float64(detail.WithAlt) / float64(detail.Total) * 100))
	}

	if detail.Missing > 0 {
		result.note(NewIssue(CategoryAltText, IssueMissingAlt, KindWarning, SeverityMedium,
			fmt.Sprintf("%d of %d image(s) are missing alt text", detail.Missing, detail.Total)))
		result.recommend("Add descriptive alt text to every informative image")
	}
	if detail.Empty > 0 {
		result.note(NewIssue(CategoryAltText, IssueEmptyAlt, KindInfo, SeverityLow,
			fmt.Sprintf("%d image(s) have an empty alt attribute; fine only for decorative images", detail.Empty)))
	}
	if detail.TooLong > 0 {
		result.note(NewIssue(CategoryAltText, IssueLongAlt, KindInfo, SeverityLow,
			fmt.Sprintf("%d image(s) have alt text over %d characters", detail.TooLong, Thresholds.AltTextMaxLength)))
		result.recommend("Keep alt text short and specific")
	}

	return result.finish(), nil
}
