package market

import (
	"context"
	"fmt"
	"hash"
	"hash/fnv"
	"strings"
	"sync"
)

var hasherPool = sync.Pool{
	New: func() interface{} { return fnv.New64a() },
}

// Simulated derives every number from an FNV-1a hash of its inputs, so the
// same page always yields the same payload. None of it is real data; every
// payload is labelled ConfidenceSimulated.
type Simulated struct{}

// NewSimulated returns the simulated provider.
func NewSimulated() *Simulated {
	return &Simulated{}
}

var _ Provider = (*Simulated)(nil)

func fingerprint(parts ...string) uint64 {
	h := hasherPool.Get().(hash.Hash64)
	defer hasherPool.Put(h)
	h.Reset()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// between maps a fingerprint onto [lo, hi].
func between(h uint64, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + int(h%uint64(hi-lo+1))
}

func pick(lo, hi int, parts ...string) int {
	return between(fingerprint(parts...), lo, hi)
}

// KeywordMetrics implements Provider.
func (s *Simulated) KeywordMetrics(ctx context.Context, seeds []string) (*KeywordReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &KeywordReport{
		Keywords:   make([]KeywordMetric, 0, len(seeds)),
		Confidence: ConfidenceSimulated,
	}

	seen := make(map[string]bool)
	for _, seed := range seeds {
		seed = strings.ToLower(strings.TrimSpace(seed))
		if seed == "" || seen[seed] {
			continue
		}
		seen[seed] = true

		difficulty := pick(5, 95, seed, "difficulty")
		metric := KeywordMetric{
			Keyword:      seed,
			SearchVolume: pick(10, 5000, seed, "volume") * 10,
			Difficulty:   difficulty,
			CPC:          float64(pick(5, 900, seed, "cpc")) / 100,
			Competition:  competitionFor(difficulty),
			Trend:        make([]int, 12),
		}
		for m := range metric.Trend {
			metric.Trend[m] = pick(40, 100, seed, "trend", fmt.Sprint(m))
		}
		report.Keywords = append(report.Keywords, metric)
	}

	if len(report.Keywords) > 0 {
		primary := report.Keywords[0].Keyword
		report.Related = []string{
			"best " + primary,
			primary + " guide",
			primary + " tips",
			"how to choose " + primary,
		}
	}
	return report, nil
}

func competitionFor(difficulty int) string {
	switch {
	case difficulty < 35:
		return "low"
	case difficulty < 65:
		return "medium"
	default:
		return "high"
	}
}

// BacklinkProfile implements Provider.
func (s *Simulated) BacklinkProfile(ctx context.Context, domain string) (*BacklinkProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	domain = strings.ToLower(domain)

	referring := pick(10, 2000, domain, "referring")
	brand := brandOf(domain)
	profile := &BacklinkProfile{
		Domain:           domain,
		DomainAuthority:  pick(5, 95, domain, "authority"),
		ReferringDomains: referring,
		TotalBacklinks:   referring * pick(2, 25, domain, "per-domain"),
		DoFollowRatio:    float64(pick(40, 95, domain, "dofollow")) / 100,
		Confidence:       ConfidenceSimulated,
	}
	for _, anchor := range []string{brand, domain, "click here", "website"} {
		profile.TopAnchors = append(profile.TopAnchors, AnchorCount{
			Text:  anchor,
			Count: pick(1, referring, domain, "anchor", anchor),
		})
	}
	return profile, nil
}

var competitorPrefixes = []string{"top", "best", "my", "get", "the", "go"}
var competitorTLDs = []string{".com", ".net", ".io", ".co", ".org"}

// CompetitorSet implements Provider.
func (s *Simulated) CompetitorSet(ctx context.Context, domain string) (*CompetitorSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	domain = strings.ToLower(domain)
	brand := brandOf(domain)

	set := &CompetitorSet{Domain: domain, Confidence: ConfidenceSimulated}
	n := pick(3, 5, domain, "competitors")
	for i := 0; i < n; i++ {
		idx := fmt.Sprint(i)
		prefix := competitorPrefixes[pick(0, len(competitorPrefixes)-1, domain, "prefix", idx)]
		tld := competitorTLDs[pick(0, len(competitorTLDs)-1, domain, "tld", idx)]
		set.Competitors = append(set.Competitors, Competitor{
			Domain:          prefix + brand + idx + tld,
			KeywordOverlap:  pick(5, 80, domain, "overlap", idx),
			DomainAuthority: pick(5, 95, domain, "competitor-authority", idx),
			SharedKeywords:  pick(3, 400, domain, "shared", idx),
		})
	}
	return set, nil
}

const rankHistoryLength = 6

// RankHistory implements Provider.
func (s *Simulated) RankHistory(ctx context.Context, domain string, keywords []string) (*RankHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	domain = strings.ToLower(domain)

	history := &RankHistory{Domain: domain, Confidence: ConfidenceSimulated}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}

		entry := RankEntry{Keyword: kw, Positions: make([]int, rankHistoryLength)}
		// roughly one keyword in five is not ranked at all
		ranked := pick(0, 4, domain, kw, "ranked") != 0
		pos := pick(1, 100, domain, kw, "start")
		for i := range entry.Positions {
			if !ranked {
				continue
			}
			pos += pick(-8, 8, domain, kw, "drift", fmt.Sprint(i))
			pos = max(1, min(100, pos))
			entry.Positions[i] = pos
		}

		entry.Latest = entry.Positions[len(entry.Positions)-1]
		if first := entry.Positions[0]; first > 0 && entry.Latest > 0 {
			entry.Change = first - entry.Latest
		}
		history.Entries = append(history.Entries, entry)
	}
	return history, nil
}

func brandOf(domain string) string {
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.Index(domain, ":"); idx != -1 {
		domain = domain[:idx]
	}
	if idx := strings.Index(domain, "."); idx > 0 {
		return domain[:idx]
	}
	return domain
}
