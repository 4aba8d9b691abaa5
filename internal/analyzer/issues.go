package analyzer

// Issue codes
const (
	IssueAnalyzerFailed = "analyzer_failed"

	// Meta tags
	IssueMissingTitle        = "missing_title"
	IssueTitleTooShort       = "title_too_short"
	IssueTitleTooLong        = "title_too_long"
	IssueMissingMetaDesc     = "missing_meta_description"
	IssueMetaDescTooShort    = "meta_description_too_short"
	IssueMetaDescTooLong     = "meta_description_too_long"
	IssueMetaKeywords        = "meta_keywords_present"
	IssueMissingViewport     = "missing_viewport"
	IssueViewportNoDevice    = "viewport_not_device_width"
	IssueNoindex             = "noindex"
	IssueMissingCanonical    = "missing_canonical"
	IssueOpenGraphIncomplete = "open_graph_incomplete"
	IssueTwitterIncomplete   = "twitter_card_incomplete"

	// Page speed
	IssueRenderBlockingScripts = "render_blocking_scripts"
	IssueTooManyStylesheets    = "too_many_stylesheets"
	IssueEagerImages           = "images_not_lazy_loaded"
	IssueLargeDocument         = "large_document"
	IssueMissingLang           = "missing_lang"
	IssueUnsafeBlankTarget     = "unsafe_target_blank"
	IssueInsecurePage          = "insecure_page"

	// Headings
	IssueMissingH1  = "missing_h1"
	IssueMultipleH1 = "multiple_h1"

	// Keyword density
	IssueKeywordStuffing = "keyword_stuffing"
	IssueKeywordHigh     = "keyword_density_high"
	IssueKeywordNotFound = "keyword_not_found"

	// Mobile
	IssueZoomDisabled      = "zoom_disabled"
	IssueCrowdedTapTargets = "crowded_tap_targets"
	IssuePlugins           = "plugins_used"

	// Sitemap and robots.txt
	IssueMissingRobots   = "missing_robots_txt"
	IssueMissingSitemap  = "missing_sitemap"
	IssueRobotsMalformed = "robots_txt_malformed_line"
	IssueBlockedRobots   = "blocked_by_robots"
	IssueInvalidSitemap  = "invalid_sitemap"
	IssueEmptySitemap    = "empty_sitemap"
	IssueUnknownSitemap  = "unknown_sitemap_format"

	// Technical SEO
	IssueNofollow         = "nofollow"
	IssueImagesWithoutAlt = "images_without_alt"

	// Schema
	IssueInvalidJSONLD      = "invalid_json_ld"
	IssueNoSchema           = "no_structured_data"
	IssueSchemaMissingField = "schema_missing_field"

	// Alt text
	IssueMissingAlt = "missing_alt"
	IssueEmptyAlt   = "empty_alt"
	IssueLongAlt    = "alt_too_long"

	// Canonical
	IssueMultipleCanonicals = "multiple_canonicals"
	IssueRelativeCanonical  = "relative_canonical"
	IssueCrossHostCanonical = "cross_host_canonical"
	IssueInsecureCanonical  = "insecure_canonical"
	IssueInvalidCanonical   = "invalid_canonical"

	// Links
	IssueBrokenLink   = "broken_link"
	IssueInvalidHref  = "invalid_href"
	IssueLinkTimedOut = "link_timed_out"

	// Market
	IssueNoSeedKeywords   = "no_seed_keywords"
	IssueHardKeyword      = "high_keyword_difficulty"
	IssueLowAuthority     = "low_domain_authority"
	IssueLowDoFollow      = "low_dofollow_ratio"
	IssueStrongCompetitor = "strong_competitor_overlap"
	IssueRankDropped      = "rank_dropped"
	IssueNotRanked        = "not_ranked"
)
