package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MobileDetail describes the mobile readiness signals of the page.
type MobileDetail struct {
	Viewport            string `json:"viewport"`
	HasViewport         bool   `json:"has_viewport"`
	DeviceWidth         bool   `json:"device_width"`
	FixedWidth          bool   `json:"fixed_width"`
	ZoomDisabled        bool   `json:"zoom_disabled"`
	InteractiveElements int    `json:"interactive_elements"`
	TouchTargetsOK      bool   `json:"touch_targets_ok"`
	Simplified          bool   `json:"simplified"` // touch targets are counted, not measured
	Plugins             int    `json:"plugins"`
	IsMobileFriendly    bool   `json:"is_mobile_friendly"`
}

var fixedWidthRe = regexp.MustCompile(`(?:^|,)width=\d+`)

// MobileAnalyzer checks mobile-friendliness.
type MobileAnalyzer struct{}

func NewMobileAnalyzer() *MobileAnalyzer {
	return &MobileAnalyzer{}
}

func (a *MobileAnalyzer) Category() Category {
	return CategoryMobile
}

func (a *MobileAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	doc := ctx.Document
	detail := &MobileDetail{Simplified: true}
	result := newResult(CategoryMobile, detail)
	issue := func(code string, kind Kind, severity Severity, msg string) Issue {
		return NewIssue(CategoryMobile, code, kind, severity, msg)
	}

	detail.Viewport, detail.HasViewport = doc.Meta("viewport")
	vp := parseViewport(detail.Viewport)
	detail.DeviceWidth = vp["width"] == "device-width"
	detail.FixedWidth = fixedWidthRe.MatchString(strings.ReplaceAll(strings.ToLower(detail.Viewport), " ", ""))
	detail.ZoomDisabled = zoomDisabled(vp)

	switch {
	case !detail.HasViewport:
		result.penalize(30, issue(IssueMissingViewport, KindError, SeverityHigh, "Page is missing viewport meta tag"))
		result.recommend(`Add <meta name="viewport" content="width=device-width, initial-scale=1">`)
	case !detail.DeviceWidth:
		msg := "Viewport does not set width=device-width"
		if detail.FixedWidth {
			msg = "Viewport has fixed width instead of device-width"
		}
		result.penalize(15, issue(IssueViewportNoDevice, KindWarning, SeverityMedium, msg))
		result.recommend("Use width=device-width so the layout follows the screen size")
	}
	if detail.HasViewport && detail.ZoomDisabled {
		result.penalize(5, issue(IssueZoomDisabled, KindWarning, SeverityMedium,
			"User scaling/zoom is disabled"))
		result.recommend("Allow users to zoom; drop user-scalable=no and maximum-scale=1")
	}

	maxTargets := ctx.MaxTouchTargets
	if maxTargets <= 0 {
		maxTargets = 150
	}
	detail.InteractiveElements = doc.Find("a, button, input, select, textarea").Length()
	detail.TouchTargetsOK = detail.InteractiveElements <= maxTargets
	if !detail.TouchTargetsOK {
		result.penalize(10, issue(IssueCrowdedTapTargets, KindWarning, SeverityLow,
			fmt.Sprintf("%d interactive elements may crowd tap targets (threshold %d, count only)", detail.InteractiveElements, maxTargets)))
		result.recommend("Reduce the number of interactive elements or space them for touch")
	}

	detail.Plugins = doc.Find("object, embed").Length()
	if detail.Plugins > 0 {
		result.penalize(10, issue(IssuePlugins, KindWarning, SeverityMedium,
			fmt.Sprintf("%d plugin element(s) (object/embed) are not supported on most mobile devices", detail.Plugins)))
		result.recommend("Replace object and embed content with HTML5 equivalents")
	}

	viewportOK := detail.HasViewport && detail.DeviceWidth
	detail.IsMobileFriendly = viewportOK && detail.TouchTargetsOK

	return result.finish(), nil
}

// parseViewport splits "width=device-width, initial-scale=1" into lowercase
// key/value pairs.
func parseViewport(content string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return r == ',' || r == ';'
	}) {
		key, value, _ := strings.Cut(part, "=")
		out[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return out
}

func zoomDisabled(vp map[string]string) bool {
	switch vp["user-scalable"] {
	case "no", "0":
		return true
	}
	if v, ok := vp["maximum-scale"]; ok {
		if scale, err := strconv.ParseFloat(v, 64); err == nil && scale <= 1 {
			return true
		}
	}
	return false
}
