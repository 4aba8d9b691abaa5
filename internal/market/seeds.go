package market

import (
	"sort"
	"unicode/utf8"
)

// StopWords are common English words ignored when picking keywords.
var StopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any",
		"are", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
		"but", "by", "can", "could", "did", "do", "does", "doing", "down", "during", "each", "few",
		"for", "from", "further", "get", "had", "has", "have", "having", "he", "her", "here", "hers",
		"herself", "him", "himself", "his", "how", "i", "if", "in", "into", "is", "it", "its",
		"itself", "just", "me", "more", "most", "my", "myself", "no", "nor", "not", "now", "of",
		"off", "on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
		"same", "she", "should", "so", "some", "such", "than", "that", "the", "their", "theirs",
		"them", "themselves", "then", "there", "these", "they", "this", "those", "through", "to",
		"too", "under", "until", "up", "very", "was", "we", "were", "what", "when", "where",
		"which", "while", "who", "whom", "why", "will", "with", "would", "you", "your", "yours",
		"yourself", "yourselves", "using", "used", "many", "much", "every", "another", "there's",
		"it's", "don't", "can't", "won't", "you're", "we're", "they're", "cannot",
	} {
		StopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether w (lowercase) is a stop word.
func IsStopWord(w string) bool {
	_, ok := StopWords[w]
	return ok
}

// WordCount is a word and its frequency.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// TopWords returns up to n of the most frequent words that are at least
// minLen runes long and not stop words. Ties keep first-seen order.
func TopWords(words []string, minLen, n int) []WordCount {
	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < minLen || IsStopWord(w) {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	top := make([]WordCount, 0, len(order))
	for _, w := range order {
		top = append(top, WordCount{Word: w, Count: counts[w]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})

	if n >= 0 && len(top) > n {
		top = top[:n]
	}
	return top
}

// SeedKeywords picks the n most frequent long words (five runes or more) of
// the page text as seeds for the provider.
func SeedKeywords(words []string, n int) []string {
	top := TopWords(words, 5, n)
	seeds := make([]string, len(top))
	for i, wc := range top {
		seeds[i] = wc.Word
	}
	return seeds
}
