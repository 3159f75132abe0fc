package audits

import (
	"fmt"
	"strings"
)

// Caps applied to readinessScore when critical issues are present. Only the
// single highest matching threshold applies, and only when the pre-cap score
// exceeds it.
var scoreCaps = []struct {
	minCritical int
	cap         int
}{
	{5, 55},
	{3, 65},
	{1, 80},
}

const (
	feedbackCountWarnAt   = 10
	actionItemWarnAt      = 8
	quoteFractionWarnAt   = 0.3
	synthesizedTaskPrefix = "Address critical issue: "
)

// EnforceRigor applies consistency rules to a normalized response and returns
// the adjusted response plus advisory warnings. Warnings never alter the data;
// they exist so output quality can be monitored.
func EnforceRigor(resp AnalysisResponse) (AnalysisResponse, []string) {
	criticalCount := 0
	for _, issue := range resp.CriticalIssues {
		if issue.Severity == SeverityCritical {
			criticalCount++
		}
	}

	resp.ReadinessScore = capScore(resp.ReadinessScore, criticalCount)
	resp.ActionItems = ensureCriticalCoverage(resp.ActionItems, resp.CriticalIssues, criticalCount)

	return resp, rigorWarnings(resp)
}

// Validate composes Normalize and EnforceRigor. Total function: never errors.
func Validate(raw any) (AnalysisResponse, []string) {
	return EnforceRigor(Normalize(raw))
}

// capScore prevents a high readiness score from coexisting with severe
// reported problems.
func capScore(score, criticalCount int) int {
	for _, rule := range scoreCaps {
		if criticalCount >= rule.minCritical {
			if score > rule.cap {
				return rule.cap
			}
			return score
		}
	}
	return score
}

// ensureCriticalCoverage synthesizes high-priority action items until every
// critical issue has at least one. Synthesized tasks are deduplicated
// case-insensitively against existing task text.
func ensureCriticalCoverage(items []ActionItem, issues []CriticalIssue, criticalCount int) []ActionItem {
	if criticalCount == 0 {
		return items
	}

	highCount := 0
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Priority == PriorityHigh {
			highCount++
		}
		seen[strings.ToLower(item.Task)] = struct{}{}
	}

	for _, issue := range issues {
		if highCount >= criticalCount {
			break
		}
		if issue.Severity != SeverityCritical {
			continue
		}
		task := synthesizedTaskPrefix + issue.Title
		key := strings.ToLower(task)
		if _, dup := seen[key]; dup {
			continue
		}
		items = append(items, ActionItem{
			Task:      task,
			Priority:  PriorityHigh,
			Completed: false,
		})
		seen[key] = struct{}{}
		highCount++
	}

	return items
}

// rigorWarnings reports quality shortfalls in the response. Advisory only.
func rigorWarnings(resp AnalysisResponse) []string {
	var warnings []string

	if n := len(resp.DetailedFeedback); n < feedbackCountWarnAt {
		warnings = append(warnings, fmt.Sprintf("low detailed feedback count: %d (target 20+)", n))
	}
	if n := len(resp.ActionItems); n < actionItemWarnAt {
		warnings = append(warnings, fmt.Sprintf("low action item count: %d (target 15+)", n))
	}
	if n := len(resp.DetailedFeedback); n > 0 {
		quoted := 0
		for _, item := range resp.DetailedFeedback {
			if strings.ContainsAny(item.Finding, `"'`) || strings.ContainsAny(item.Finding, "“”‘’") {
				quoted++
			}
		}
		if fraction := float64(quoted) / float64(n); fraction < quoteFractionWarnAt {
			warnings = append(warnings, fmt.Sprintf("low quoting rate: %.0f%% of findings quote the text (target 50%%+)", fraction*100))
		}
	}

	return warnings
}
