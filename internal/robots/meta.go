package robots

import (
	"strconv"
	"strings"
)

// MetaRobots represents parsed meta robots directives.
type MetaRobots struct {
	NoIndex      bool   `json:"noindex"`
	NoFollow     bool   `json:"nofollow"`
	NoArchive    bool   `json:"noarchive"`
	NoSnippet    bool   `json:"nosnippet"`
	NoImageIndex bool   `json:"noimageindex"`
	MaxSnippet   int    `json:"max_snippet"` // -1 = not set
	Raw          string `json:"raw"`
}

// ParseMetaRobots parses a meta robots content string.
func ParseMetaRobots(content string) *MetaRobots {
	meta := &MetaRobots{
		MaxSnippet: -1,
		Raw:        content,
	}

	for _, d := range strings.Split(strings.ToLower(content), ",") {
		d = strings.TrimSpace(d)

		switch {
		case d == "noindex":
			meta.NoIndex = true
		case d == "nofollow":
			meta.NoFollow = true
		case d == "noarchive":
			meta.NoArchive = true
		case d == "nosnippet":
			meta.NoSnippet = true
		case d == "noimageindex":
			meta.NoImageIndex = true
		case d == "none":
			meta.NoIndex = true
			meta.NoFollow = true
		case strings.HasPrefix(d, "max-snippet:"):
			if val, err := strconv.Atoi(strings.TrimPrefix(d, "max-snippet:")); err == nil {
				meta.MaxSnippet = val
			}
		}
	}

	return meta
}

// Merge folds the restrictive directives of other into m.
func (m *MetaRobots) Merge(other *MetaRobots) {
	if other == nil {
		return
	}
	m.NoIndex = m.NoIndex || other.NoIndex
	m.NoFollow = m.NoFollow || other.NoFollow
	m.NoArchive = m.NoArchive || other.NoArchive
	m.NoSnippet = m.NoSnippet || other.NoSnippet
	m.NoImageIndex = m.NoImageIndex || other.NoImageIndex
	if other.MaxSnippet >= 0 && (m.MaxSnippet < 0 || other.MaxSnippet < m.MaxSnippet) {
		m.MaxSnippet = other.MaxSnippet
	}
}

// IsIndexable returns true if the page can be indexed.
func (m *MetaRobots) IsIndexable() bool {
	return !m.NoIndex
}

// IsFollowable returns true if links on the page can be followed.
func (m *MetaRobots) IsFollowable() bool {
	return !m.NoFollow
}

// directiveNames are the X-Robots-Tag rules that carry a ":" value of their
// own, plus the bare rules, so they are never mistaken for an agent name.
var directiveNames = map[string]bool{
	"all":               true,
	"noindex":           true,
	"nofollow":          true,
	"none":              true,
	"noarchive":         true,
	"nosnippet":         true,
	"noimageindex":      true,
	"notranslate":       true,
	"indexifembedded":   true,
	"max-snippet":       true,
	"max-image-preview": true,
	"max-video-preview": true,
	"unavailable_after": true,
}

// ParseXRobotsTag parses X-Robots-Tag header values that apply to all
// crawlers. Values scoped to a named agent ("googlebot: noindex") are skipped.
func ParseXRobotsTag(values []string) *MetaRobots {
	merged := ParseMetaRobots("")
	merged.Raw = strings.Join(values, ", ")

	for _, value := range values {
		value = strings.TrimSpace(value)
		if agentScoped(value) {
			continue
		}
		merged.Merge(ParseMetaRobots(value))
	}

	return merged
}

// agentScoped reports whether the first rule of value is prefixed by a user
// agent name rather than being a directive.
func agentScoped(value string) bool {
	first, _, _ := strings.Cut(value, ",")
	name, _, found := strings.Cut(first, ":")
	if !found {
		return false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	return name != "" && !strings.Contains(name, " ") && !directiveNames[name]
}
