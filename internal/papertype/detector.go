package papertype

import (
	"fmt"
	"strings"
)

// Category identifiers, in detection priority order. When two categories score
// the same, the one listed first wins.
const (
	QuantitativeExperimental = "quantitative-experimental"
	Observational            = "observational"
	Qualitative              = "qualitative"
	SystematicReview         = "systematic-review"
	MixedMethods             = "mixed-methods"
	CaseReport               = "case-report"

	Generic = "generic"
)

const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	primaryWeight   = 2
	secondaryWeight = 1

	highThreshold   = 8
	mediumThreshold = 4
)

// DetectionResult reports the detected paper type together with the evidence
// that produced it.
type DetectionResult struct {
	DetectedType  string              `json:"detectedType"`
	Label         string              `json:"label"`
	Confidence    string              `json:"confidence"`
	Explanation   string              `json:"explanation"`
	KeywordsFound map[string][]string `json:"keywordsFound"`
	TopMatchCount int                 `json:"topMatchCount"`
}

type category struct {
	id        string
	label     string
	primary   []string
	secondary []string
}

// categories is ordered; earlier entries win score ties.
var categories = []category{
	{
		id:    QuantitativeExperimental,
		label: "Quantitative Experimental Study",
		primary: []string{
			"randomized controlled trial", "randomised controlled trial",
			"placebo", "double-blind", "control group", "intervention group",
			"randomization", "randomisation", "randomly assigned",
		},
		secondary: []string{
			"experimental", "treatment arm", "allocation", "blinded",
			"primary outcome", "intention-to-treat",
		},
	},
	{
		id:    Observational,
		label: "Observational Study",
		primary: []string{
			"cohort study", "case-control", "cross-sectional",
			"prospective cohort", "retrospective cohort",
			"odds ratio", "hazard ratio",
		},
		secondary: []string{
			"observational", "incidence", "prevalence", "follow-up",
			"exposure", "confounders",
		},
	},
	{
		id:    Qualitative,
		label: "Qualitative Study",
		primary: []string{
			"qualitative study", "semi-structured interview",
			"thematic analysis", "grounded theory", "focus group",
			"phenomenological",
		},
		secondary: []string{
			"interviews", "themes", "saturation", "coding framework",
			"lived experience", "purposive sampling",
		},
	},
	{
		id:    SystematicReview,
		label: "Systematic Review / Meta-Analysis",
		primary: []string{
			"systematic review", "meta-analysis", "prisma",
			"search strategy", "study selection", "risk of bias",
		},
		secondary: []string{
			"databases searched", "inclusion criteria", "exclusion criteria",
			"pooled", "heterogeneity", "forest plot",
		},
	},
	{
		id:    MixedMethods,
		label: "Mixed Methods Study",
		primary: []string{
			"mixed methods", "mixed-methods", "convergent design",
			"explanatory sequential", "exploratory sequential",
		},
		secondary: []string{
			"quantitative and qualitative", "triangulation",
			"integration of findings",
		},
	},
	{
		id:    CaseReport,
		label: "Case Report",
		primary: []string{
			"case report", "case presentation", "we report a case",
			"case series",
		},
		secondary: []string{
			"patient presented", "rare presentation", "clinical course",
			"written informed consent",
		},
	},
}

// Detect classifies manuscript text by weighted keyword matching. Primary
// keywords count double. Matching is case-insensitive substring search, so
// short keywords are deliberately avoided in the lexicons.
func Detect(text string) DetectionResult {
	lower := strings.ToLower(text)

	keywordsFound := make(map[string][]string)
	best := -1
	bestScore := 0
	bestMatches := 0

	for i, cat := range categories {
		score := 0
		var matched []string
		for _, kw := range cat.primary {
			if strings.Contains(lower, kw) {
				score += primaryWeight
				matched = append(matched, kw)
			}
		}
		for _, kw := range cat.secondary {
			if strings.Contains(lower, kw) {
				score += secondaryWeight
				matched = append(matched, kw)
			}
		}
		if len(matched) > 0 {
			keywordsFound[cat.id] = matched
		}
		if score > bestScore {
			best = i
			bestScore = score
			bestMatches = len(matched)
		}
	}

	if best < 0 || bestScore == 0 {
		return DetectionResult{
			DetectedType:  Generic,
			Label:         "General Manuscript",
			Confidence:    ConfidenceLow,
			Explanation:   "No study-design keywords matched; treating as a general manuscript.",
			KeywordsFound: keywordsFound,
		}
	}

	winner := categories[best]
	confidence := ConfidenceLow
	switch {
	case bestScore >= highThreshold:
		confidence = ConfidenceHigh
	case bestScore >= mediumThreshold:
		confidence = ConfidenceMedium
	}

	return DetectionResult{
		DetectedType:  winner.id,
		Label:         winner.label,
		Confidence:    confidence,
		Explanation:   explanation(winner.label, bestMatches, confidence),
		KeywordsFound: keywordsFound,
		TopMatchCount: bestMatches,
	}
}

// Label returns the human-readable label for a category id, or the id itself
// when unknown.
func Label(id string) string {
	for _, cat := range categories {
		if cat.id == id {
			return cat.label
		}
	}
	if id == Generic {
		return "General Manuscript"
	}
	return id
}

// Known reports whether id names one of the detectable categories.
func Known(id string) bool {
	if id == Generic {
		return true
	}
	for _, cat := range categories {
		if cat.id == id {
			return true
		}
	}
	return false
}

func explanation(label string, matches int, confidence string) string {
	base := fmt.Sprintf("Detected as %s based on %d matching keywords.", label, matches)
	switch confidence {
	case ConfidenceHigh:
		return base + " Strong keyword evidence."
	case ConfidenceMedium:
		return base + " Moderate keyword evidence; please confirm the detected type."
	default:
		return base + " Weak keyword evidence; consider selecting the paper type manually."
	}
}
