package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spider-crawler/siteaudit/internal/market"
	"github.com/spider-crawler/siteaudit/internal/parser"
)

// KeywordStat is the frequency of one keyword in the visible text.
type KeywordStat struct {
	Keyword  string  `json:"keyword"`
	Count    int     `json:"count"`
	Density  float64 `json:"density"` // percent of TotalWords
	Status   Status  `json:"status"`
	Supplied bool    `json:"supplied"`
}

// KeywordDensityDetail lists the measured keywords.
type KeywordDensityDetail struct {
	TotalWords int           `json:"total_words"`
	Source     string        `json:"source"` // "supplied" or "auto"
	Keywords   []KeywordStat `json:"keywords"`
}

// KeywordDensityAnalyzer measures how often keywords occur in the page text.
type KeywordDensityAnalyzer struct{}

func NewKeywordDensityAnalyzer() *KeywordDensityAnalyzer {
	return &KeywordDensityAnalyzer{}
}

func (a *KeywordDensityAnalyzer) Category() Category {
	return CategoryKeywordDensity
}

func (a *KeywordDensityAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	words := ctx.Document.Words()
	detail := &KeywordDensityDetail{
		TotalWords: len(words),
		Keywords:   make([]KeywordStat, 0),
	}
	result := newResult(CategoryKeywordDensity, detail)

	supplied := len(ctx.Keywords) > 0
	var phrases [][]string
	if supplied {
		detail.Source = "supplied"
		phrases = keywordPhrases(ctx.Keywords)
	} else {
		detail.Source = "auto"
		for _, wc := range market.TopWords(words, Thresholds.AutoKeywordMinLength, Thresholds.AutoKeywordCount) {
			phrases = append(phrases, []string{wc.Word})
		}
	}

	counts := CountPhrases(words, phrases)
	for i, phrase := range phrases {
		stat := KeywordStat{
			Keyword:  strings.Join(phrase, " "),
			Count:    counts[i],
			Density:  Density(counts[i], len(words)),
			Status:   StatusGood,
			Supplied: supplied,
		}

		switch {
		case stat.Density > Thresholds.KeywordErrorDensity:
			stat.Status = StatusError
			result.penalize(10, NewIssue(CategoryKeywordDensity, IssueKeywordStuffing, KindError, SeverityMedium,
				fmt.Sprintf("Keyword %q has a density of %.2f%% (max %.0f%%)", stat.Keyword, stat.Density, Thresholds.KeywordErrorDensity)))
			result.recommend("Reduce repetition of over-used keywords and use natural variations")
		case stat.Density > Thresholds.KeywordWarnDensity:
			stat.Status = StatusWarning
			result.penalize(5, NewIssue(CategoryKeywordDensity, IssueKeywordHigh, KindWarning, SeverityLow,
				fmt.Sprintf("Keyword %q has a density of %.2f%%", stat.Keyword, stat.Density)))
		}

		if supplied && stat.Count == 0 {
			result.note(NewIssue(CategoryKeywordDensity, IssueKeywordNotFound, KindInfo, SeverityLow,
				fmt.Sprintf("Keyword %q does not appear in the page text", stat.Keyword)))
			result.recommend("Mention each target keyword in the page content")
		}
		detail.Keywords = append(detail.Keywords, stat)
	}

	return result.finish(), nil
}

// keywordPhrases tokenizes supplied keywords the same way as the page text,
// dropping empty and repeated phrases.
func keywordPhrases(keywords []string) [][]string {
	var phrases [][]string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		tokens := parser.Tokenize(kw)
		if len(tokens) == 0 {
			continue
		}
		key := strings.Join(tokens, " ")
		if seen[key] {
			continue
		}
		seen[key] = true
		phrases = append(phrases, tokens)
	}
	return phrases
}

// CountPhrases counts non-overlapping occurrences of each phrase in words.
// Longer phrases claim their tokens first and a token is counted for at most
// one phrase, so the counts never add up to more than len(words). The result
// is indexed like phrases.
func CountPhrases(words []string, phrases [][]string) []int {
	counts := make([]int, len(phrases))

	order := make([]int, len(phrases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(phrases[order[a]]) > len(phrases[order[b]])
	})

	consumed := make([]bool, len(words))
	for _, idx := range order {
		phrase := phrases[idx]
		n := len(phrase)
		if n == 0 {
			continue
		}
		for i := 0; i+n <= len(words); {
			if matchAt(words, consumed, phrase, i) {
				for j := i; j < i+n; j++ {
					consumed[j] = true
				}
				counts[idx]++
				i += n
				continue
			}
			i++
		}
	}
	return counts
}

func matchAt(words []string, consumed []bool, phrase []string, at int) bool {
	for j, token := range phrase {
		if consumed[at+j] || words[at+j] != token {
			return false
		}
	}
	return true
}

// Density is count as a percentage of total. A page without words has
// density 0.
func Density(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
