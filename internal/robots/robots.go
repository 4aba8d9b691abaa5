// Package robots handles robots.txt parsing and meta robots directives.
package robots

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RobotsTxt represents a parsed robots.txt file.
type RobotsTxt struct {
	// Rule groups in file order
	Groups []*Group

	// Sitemaps found in robots.txt
	Sitemaps []string

	// Host directive (if present)
	Host string

	// Lines that could not be interpreted
	Warnings []LineWarning
}

// Group is one user-agent rule group. Consecutive User-agent lines share a group.
type Group struct {
	UserAgents []string      `json:"user_agents"`
	Allow      []string      `json:"allow"`
	Disallow   []string      `json:"disallow"`
	CrawlDelay time.Duration `json:"crawl_delay,omitempty"`

	allowPatterns    []*regexp.Regexp
	disallowPatterns []*regexp.Regexp
}

// LineWarning describes a malformed robots.txt line.
type LineWarning struct {
	Line    int    `json:"line"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

func (w LineWarning) String() string {
	return fmt.Sprintf("line %d: %s (%q)", w.Line, w.Message, w.Text)
}

// Parse parses robots.txt content. It never fails; lines it cannot use are
// reported in Warnings.
func Parse(content string) *RobotsTxt {
	robots := &RobotsTxt{
		Groups:   make([]*Group, 0),
		Sitemaps: make([]string, 0),
		Warnings: make([]LineWarning, 0),
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	var current *Group
	// Rules seen since the last User-agent line; a new agent then opens a new group.
	var sawRule bool
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))

		// Remove comments
		if idx := strings.Index(line, "#"); idx != -1 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			robots.warn(lineNo, raw, "missing ':' separator")
			continue
		}

		directive := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])

		switch directive {
		case "user-agent":
			if value == "" {
				robots.warn(lineNo, raw, "empty user-agent")
				continue
			}
			if current == nil || sawRule {
				current = &Group{Allow: make([]string, 0), Disallow: make([]string, 0)}
				robots.Groups = append(robots.Groups, current)
				sawRule = false
			}
			current.UserAgents = append(current.UserAgents, strings.ToLower(value))

		case "disallow", "allow":
			if current == nil {
				robots.warn(lineNo, raw, "rule outside of a user-agent group")
				continue
			}
			sawRule = true
			if value == "" {
				// An empty Disallow allows everything.
				continue
			}
			if directive == "disallow" {
				current.Disallow = append(current.Disallow, value)
				current.disallowPatterns = append(current.disallowPatterns, compilePattern(value))
			} else {
				current.Allow = append(current.Allow, value)
				current.allowPatterns = append(current.allowPatterns, compilePattern(value))
			}

		case "crawl-delay":
			if current == nil {
				robots.warn(lineNo, raw, "rule outside of a user-agent group")
				continue
			}
			sawRule = true
			delay, err := strconv.ParseFloat(value, 64)
			if err != nil || delay < 0 {
				robots.warn(lineNo, raw, "invalid crawl-delay")
				continue
			}
			current.CrawlDelay = time.Duration(delay * float64(time.Second))

		case "sitemap":
			if value != "" {
				robots.Sitemaps = append(robots.Sitemaps, value)
			}

		case "host":
			robots.Host = value

		default:
			robots.warn(lineNo, raw, "unknown directive "+strconv.Quote(directive))
		}
	}

	return robots
}

func (r *RobotsTxt) warn(line int, text, msg string) {
	r.Warnings = append(r.Warnings, LineWarning{Line: line, Text: strings.TrimSpace(text), Message: msg})
}

// GroupFor returns the group that applies to userAgent: the first group
// naming a token contained in the agent, otherwise the "*" group.
func (r *RobotsTxt) GroupFor(userAgent string) *Group {
	userAgent = strings.ToLower(userAgent)

	var wildcard *Group
	for _, g := range r.Groups {
		for _, agent := range g.UserAgents {
			if agent == "*" {
				if wildcard == nil {
					wildcard = g
				}
				continue
			}
			if strings.Contains(userAgent, agent) {
				return g
			}
		}
	}
	return wildcard
}

// BlocksAll reports whether the "*" group disallows the whole site.
func (r *RobotsTxt) BlocksAll() bool {
	g := r.GroupFor("*")
	if g == nil {
		return false
	}
	return !g.allowed("/")
}

// IsAllowed checks if a path is allowed for a given user-agent.
func (r *RobotsTxt) IsAllowed(userAgent, urlPath string) bool {
	g := r.GroupFor(userAgent)
	if g == nil {
		return true
	}
	if urlPath == "" {
		urlPath = "/"
	}
	return g.allowed(urlPath)
}

func (g *Group) allowed(path string) bool {
	allowMatch := findBestMatch(g.Allow, g.allowPatterns, path)
	disallowMatch := findBestMatch(g.Disallow, g.disallowPatterns, path)

	if disallowMatch == "" {
		return true
	}
	if allowMatch == "" {
		return false
	}
	// Longer (more specific) wins; ties go to Allow.
	return len(allowMatch) >= len(disallowMatch)
}

// findBestMatch finds the longest matching pattern.
func findBestMatch(patterns []string, compiled []*regexp.Regexp, path string) string {
	var bestMatch string
	for i, pattern := range patterns {
		if i >= len(compiled) || compiled[i] == nil {
			continue
		}
		if compiled[i].MatchString(path) && len(pattern) > len(bestMatch) {
			bestMatch = pattern
		}
	}
	return bestMatch
}

// compilePattern converts a robots.txt pattern to regex.
func compilePattern(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `.*`)
	if strings.HasSuffix(escaped, `\$`) {
		escaped = escaped[:len(escaped)-2] + "$"
	}

	re, err := regexp.Compile("^" + escaped)
	if err != nil {
		return nil
	}
	return re
}
