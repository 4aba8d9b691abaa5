package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SchemaScript is one parsed JSON-LD block.
type SchemaScript struct {
	Valid bool     `json:"valid"`
	Types []string `json:"types"`
	Error string   `json:"error,omitempty"`
}

// MissingProperty is a recommended property absent from a schema item.
type MissingProperty struct {
	Type     string `json:"type"`
	Property string `json:"property"`
}

// SchemaDetail lists the structured data found on the page.
type SchemaDetail struct {
	Scripts   []SchemaScript    `json:"scripts"`
	Types     []string          `json:"types"`
	ItemTypes []string          `json:"item_types"`
	Missing   []MissingProperty `json:"missing"`
}

// requiredProperties are checked for well-known schema.org types.
var requiredProperties = map[string][]string{
	"Article":        {"headline", "author", "datePublished"},
	"NewsArticle":    {"headline", "author", "datePublished"},
	"BlogPosting":    {"headline", "author", "datePublished"},
	"Product":        {"name", "offers"},
	"Organization":   {"name"},
	"LocalBusiness":  {"name", "address"},
	"Person":         {"name"},
	"Event":          {"name", "startDate", "location"},
	"Recipe":         {"name", "recipeIngredient"},
	"BreadcrumbList": {"itemListElement"},
	"FAQPage":        {"mainEntity"},
	"WebSite":        {"name", "url"},
}

// SchemaAnalyzer validates JSON-LD and collects microdata types.
type SchemaAnalyzer struct{}

func NewSchemaAnalyzer() *SchemaAnalyzer {
	return &SchemaAnalyzer{}
}

func (a *SchemaAnalyzer) Category() Category {
	return CategorySchema
}

func (a *SchemaAnalyzer) Analyze(ctx *AnalysisContext) (*Result, error) {
	doc := ctx.Document
	detail := &SchemaDetail{
		Scripts:   make([]SchemaScript, 0),
		Types:     make([]string, 0),
		ItemTypes: make([]string, 0),
		Missing:   make([]MissingProperty, 0),
	}
	result := newResult(CategorySchema, detail)

	seenTypes := make(map[string]bool)
	valid := 0
	for i, raw := range doc.JSONLD() {
		script := SchemaScript{Types: make([]string, 0)}

		var data interface{}
		if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err != nil {
			script.Error = err.Error()
			detail.Scripts = append(detail.Scripts, script)
			result.note(NewIssue(CategorySchema, IssueInvalidJSONLD, KindError, SeverityHigh,
				fmt.Sprintf("JSON-LD block %d is not valid JSON: %v", i+1, err)))
			result.recommend("Fix the syntax of invalid JSON-LD blocks")
			continue
		}

		script.Valid = true
		valid++
		for _, item := range schemaItems(data) {
			for _, t := range itemTypes(item) {
				script.Types = append(script.Types, t)
				if !seenTypes[t] {
					seenTypes[t] = true
					detail.Types = append(detail.Types, t)
				}
				for _, prop := range requiredProperties[t] {
					if _, ok := item[prop]; !ok {
						detail.Missing = append(detail.Missing, MissingProperty{Type: t, Property: prop})
						result.note(NewIssue(CategorySchema, IssueSchemaMissingField, KindWarning, SeverityLow,
							fmt.Sprintf("%s is missing recommended property '%s'", t, prop)))
					}
				}
			}
		}
		detail.Scripts = append(detail.Scripts, script)
	}

	seenItem := make(map[string]bool)
	for _, t := range doc.ItemTypes() {
		name := t
		if idx := strings.LastIndex(t, "/"); idx != -1 && idx < len(t)-1 {
			name = t[idx+1:]
		}
		if !seenItem[name] {
			seenItem[name] = true
			detail.ItemTypes = append(detail.ItemTypes, name)
		}
	}

	if valid == 0 && len(detail.ItemTypes) == 0 {
		result.note(NewIssue(CategorySchema, IssueNoSchema, KindWarning, SeverityMedium,
			"No valid structured data found on the page"))
		result.recommend("Describe the page with schema.org JSON-LD")
		result.Score = 30
	} else {
		result.Score = 90
	}

	return result.finish(), nil
}

// schemaItems flattens top-level arrays and @graph containers into the list
// of schema objects.
func schemaItems(data interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch v := data.(type) {
	case map[string]interface{}:
		if _, ok := v["@type"]; ok {
			out = append(out, v)
		}
		if graph, ok := v["@graph"].([]interface{}); ok {
			for _, item := range graph {
				out = append(out, schemaItems(item)...)
			}
		}
	case []interface{}:
		for _, item := range v {
			out = append(out, schemaItems(item)...)
		}
	}
	return out
}

// itemTypes returns the @type of an item, which may be a string or a list.
func itemTypes(item map[string]interface{}) []string {
	var types []string
	switch t := item["@type"].(type) {
	case string:
		types = append(types, t)
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}
	}
	return types
}
