package audits

import (
	"math"
	"strings"
)

// Normalize coerces an untrusted JSON-decoded value into a well-formed
// AnalysisResponse. It is a total function: any input, however malformed,
// yields a complete response. Invalid nested values are dropped or defaulted
// individually; they never fail the whole object.
func Normalize(raw any) AnalysisResponse {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return invalidResponse()
	}

	resp := AnalysisResponse{
		ReadinessScore:         clampScore(numberField(obj, "readinessScore", 0)),
		ExecutiveSummary:       fallbackString(stringField(obj, "executiveSummary"), stringField(obj, "summary"), defaultExecutiveSummary),
		DocumentClassification: normalizeClassification(asMap(obj["documentClassification"])),
		ScoreBreakdown:         normalizeScoreBreakdown(asMap(obj["scoreBreakdown"])),
		CriticalIssues:         normalizeCriticalIssues(asSlice(obj["criticalIssues"])),
		DetailedFeedback:       normalizeDetailedFeedback(asSlice(obj["detailedFeedback"])),
		ActionItems:            normalizeActionItems(asSlice(obj["actionItems"])),
		StrengthsToMaintain:    stringSlice(asSlice(obj["strengthsToMaintain"])),
		LearnLinks:             normalizeLearnLinks(asSlice(obj["learnLinks"])),
	}

	if abstract := asMap(obj["abstractAnalysis"]); abstract != nil {
		resp.AbstractAnalysis = normalizeAbstract(abstract)
	}
	if zeroI := asMap(obj["zeroIPerspective"]); zeroI != nil {
		resp.ZeroIPerspective = normalizeZeroI(zeroI)
	}

	return resp
}

// invalidResponse is the labeled empty shape returned for null or non-object
// input. Downstream renders it as a failed analysis rather than crashing.
func invalidResponse() AnalysisResponse {
	breakdown := make(map[string]CategoryScore, len(ScoreCategories))
	for _, key := range ScoreCategories {
		breakdown[key] = CategoryScore{
			Score:     0,
			MaxWeight: categoryMaxWeights[key],
			Notes:     invalidResponseMessage,
		}
	}
	return AnalysisResponse{
		ReadinessScore:   0,
		ExecutiveSummary: invalidResponseMessage,
		DocumentClassification: DocumentClassification{
			ManuscriptType:     unknownClassification,
			Discipline:         unknownClassification,
			StudyDesign:        unknownClassification,
			ReportingGuideline: noGuideline,
		},
		ScoreBreakdown:      breakdown,
		CriticalIssues:      []CriticalIssue{},
		DetailedFeedback:    []FeedbackItem{},
		ActionItems:         []ActionItem{},
		StrengthsToMaintain: []string{},
		LearnLinks:          []LearnLink{},
	}
}

func normalizeClassification(obj map[string]any) DocumentClassification {
	return DocumentClassification{
		ManuscriptType:     fallbackString(stringField(obj, "manuscriptType"), "", unknownClassification),
		Discipline:         fallbackString(stringField(obj, "discipline"), "", unknownClassification),
		StudyDesign:        fallbackString(stringField(obj, "studyDesign"), "", unknownClassification),
		ReportingGuideline: fallbackString(stringField(obj, "reportingGuideline"), "", noGuideline),
	}
}

func normalizeScoreBreakdown(obj map[string]any) map[string]CategoryScore {
	out := make(map[string]CategoryScore, len(ScoreCategories))
	for _, key := range ScoreCategories {
		var entry map[string]any
		if obj != nil {
			entry = asMap(obj[key])
		}
		if entry == nil {
			out[key] = CategoryScore{
				Score:     0,
				MaxWeight: categoryMaxWeights[key],
				Notes:     notEvaluatedNotes,
			}
			continue
		}
		out[key] = CategoryScore{
			Score:     clampScore(numberField(entry, "score", 0)),
			MaxWeight: intField(entry, "maxWeight", categoryMaxWeights[key]),
			Notes:     fallbackString(stringField(entry, "notes"), "", notEvaluatedNotes),
		}
	}
	return out
}

func normalizeCriticalIssues(items []any) []CriticalIssue {
	out := []CriticalIssue{}
	for _, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		title := stringField(entry, "title")
		if title == "" {
			continue
		}
		out = append(out, CriticalIssue{
			Title:        title,
			Description:  stringField(entry, "description"),
			Severity:     normalizeSeverity(stringField(entry, "severity")),
			UMAReference: stringField(entry, "umaReference"),
		})
	}
	return out
}

func normalizeDetailedFeedback(items []any) []FeedbackItem {
	out := []FeedbackItem{}
	for _, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		finding := stringField(entry, "finding")
		suggestion := stringField(entry, "suggestion")
		if finding == "" && suggestion == "" {
			continue
		}
		out = append(out, FeedbackItem{
			Section:        stringField(entry, "section"),
			Finding:        finding,
			Suggestion:     suggestion,
			WhyItMatters:   stringField(entry, "whyItMatters"),
			Severity:       normalizeSeverity(stringField(entry, "severity")),
			ResourceTopic:  stringField(entry, "resourceTopic"),
			ResourceURL:    stringField(entry, "resourceUrl"),
			ResourceSource: stringField(entry, "resourceSource"),
		})
	}
	return out
}

func normalizeActionItems(items []any) []ActionItem {
	out := []ActionItem{}
	for _, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		task := stringField(entry, "task")
		if task == "" {
			continue
		}
		out = append(out, ActionItem{
			Task:     task,
			Priority: normalizePriority(stringField(entry, "priority")),
			Section:  stringField(entry, "section"),
			// The system owns completion state; raw input never marks
			// an item done.
			Completed: false,
		})
	}
	return out
}

func normalizeAbstract(obj map[string]any) *AbstractAnalysis {
	return &AbstractAnalysis{
		CoversBackground: truthy(obj["coversBackground"]),
		CoversObjective:  truthy(obj["coversObjective"]),
		CoversMethods:    truthy(obj["coversMethods"]),
		CoversResults:    truthy(obj["coversResults"]),
		CoversConclusion: truthy(obj["coversConclusion"]),
		Feedback:         stringField(obj, "feedback"),
	}
}

func normalizeZeroI(obj map[string]any) *ZeroIPerspective {
	return &ZeroIPerspective{
		Compliant:  truthy(obj["compliant"]),
		Violations: stringSlice(asSlice(obj["violations"])),
		Feedback:   stringField(obj, "feedback"),
	}
}

func normalizeLearnLinks(items []any) []LearnLink {
	out := []LearnLink{}
	for _, item := range items {
		entry := asMap(item)
		if entry == nil {
			continue
		}
		title := stringField(entry, "title")
		if title == "" {
			continue
		}
		out = append(out, LearnLink{
			Title:       title,
			Description: stringField(entry, "description"),
			Topic:       stringField(entry, "topic"),
			URL:         stringField(entry, "url"),
			Source:      stringField(entry, "source"),
		})
	}
	return out
}

// normalizeSeverity maps free-form severity text onto the fixed vocabulary.
// The model sometimes emits high/medium/low, sometimes critical/important/minor.
func normalizeSeverity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SeverityCritical, "high":
		return SeverityCritical
	case SeverityImportant, "medium":
		return SeverityImportant
	case SeverityMinor, "low":
		return SeverityMinor
	default:
		return SeverityMinor
	}
}

func normalizePriority(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// clampScore rounds to the nearest integer and clamps into [0,100].
func clampScore(v float64) int {
	score := int(math.Round(v))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func asMap(v any) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return obj
}

func asSlice(v any) []any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	return items
}

// fallbackString returns the first non-empty of primary and alt, or def.
// Callers pass stringField results, so the inputs are already trimmed.
func fallbackString(primary, alt, def string) string {
	if primary != "" {
		return primary
	}
	if alt != "" {
		return alt
	}
	return def
}

// stringField returns the trimmed string at key, or "" when the value is
// missing, non-string, or blank.
func stringField(obj map[string]any, key string) string {
	if obj == nil {
		return ""
	}
	s, ok := obj[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// numberField returns the number at key, or def when missing or non-numeric.
func numberField(obj map[string]any, key string, def float64) float64 {
	if obj == nil {
		return def
	}
	switch n := obj[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func intField(obj map[string]any, key string, def int) int {
	if obj == nil {
		return def
	}
	switch n := obj[key].(type) {
	case float64:
		return int(math.Round(n))
	case int:
		return n
	default:
		return def
	}
}

// stringSlice keeps only non-empty string elements.
func stringSlice(items []any) []string {
	out := []string{}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// truthy mirrors loose boolean coercion: false, nil, 0 and "" are false,
// everything else is true.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}
