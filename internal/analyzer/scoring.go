package analyzer

import "math"

// StatusFor maps a 0..100 score to its 4-tier bucket.
func StatusFor(score int) Status {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 70:
		return StatusGood
	case score >= 50:
		return StatusNeedsImprovement
	default:
		return StatusPoor
	}
}

// CheckStatus is the 3-tier outcome of a single check.
func CheckStatus(hasError, hasWarning bool) Status {
	switch {
	case hasError:
		return StatusError
	case hasWarning:
		return StatusWarning
	default:
		return StatusGood
	}
}

// SeverityRank orders severities for the action plan; lower ranks first.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	}
	return 4
}

// clampScore floors at 0 and caps at 100.
func clampScore(score int) int {
	return max(0, min(100, score))
}

// roundScore rounds a fractional score to the nearest integer.
func roundScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return clampScore(int(math.Round(score)))
}

// newResult starts a result at the full score.
func newResult(c Category, detail Detail) *Result {
	return &Result{
		Category:        c,
		Score:           100,
		Confidence:      ConfidenceHigh,
		Issues:          make([]Issue, 0),
		Recommendations: make([]string, 0),
		Detail:          detail,
	}
}

// penalize subtracts points and records the issue.
func (r *Result) penalize(points int, issue Issue) {
	r.Score -= points
	r.Issues = append(r.Issues, issue)
}

// note records an issue without changing the score.
func (r *Result) note(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

func (r *Result) recommend(text string) {
	for _, existing := range r.Recommendations {
		if existing == text {
			return
		}
	}
	r.Recommendations = append(r.Recommendations, text)
}

// finish clamps the score and derives the status bucket.
func (r *Result) finish() *Result {
	r.Score = clampScore(r.Score)
	r.Status = StatusFor(r.Score)
	return r
}

// FailedResult is the zero-confidence result that replaces an analyzer
// which returned an error or panicked.
func FailedResult(c Category, cause string) *Result {
	return &Result{
		Category:   c,
		Score:      0,
		Status:     StatusPoor,
		Confidence: ConfidenceNone,
		Issues: []Issue{
			NewIssue(c, IssueAnalyzerFailed, KindError, SeverityCritical, "Analysis failed: "+cause),
		},
		Recommendations: make([]string, 0),
		Detail:          newDetail(c),
	}
}
