package papertype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectHighConfidenceRCT(t *testing.T) {
	text := `Methods: we conducted a randomized controlled trial in which the
intervention group received the drug and the control group received placebo.
The study was double-blind.`

	res := Detect(text)

	assert.Equal(t, QuantitativeExperimental, res.DetectedType)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	require.Contains(t, res.KeywordsFound, QuantitativeExperimental)
	assert.Contains(t, res.KeywordsFound[QuantitativeExperimental], "randomized controlled trial")
	assert.Contains(t, res.Explanation, "matching keywords")
}

func TestDetectMediumConfidenceObservational(t *testing.T) {
	text := "We analysed a cohort study and report the odds ratio for the outcome."

	res := Detect(text)

	assert.Equal(t, Observational, res.DetectedType)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestDetectLowConfidenceSingleKeyword(t *testing.T) {
	text := "This experimental approach has not been tried before."

	res := Detect(text)

	assert.Equal(t, QuantitativeExperimental, res.DetectedType)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Equal(t, 1, res.TopMatchCount)
}

func TestDetectExplanationMatchesConfidence(t *testing.T) {
	high := Detect(`Methods: we conducted a randomized controlled trial in which the
intervention group received the drug and the control group received placebo.`)
	assert.Equal(t, ConfidenceHigh, high.Confidence)
	assert.Contains(t, high.Explanation, "Strong keyword evidence.")

	medium := Detect("We analysed a cohort study and report the odds ratio for the outcome.")
	assert.Equal(t, ConfidenceMedium, medium.Confidence)
	assert.Contains(t, medium.Explanation, "please confirm the detected type")

	low := Detect("This experimental approach has not been tried before.")
	assert.Equal(t, ConfidenceLow, low.Confidence)
	assert.Contains(t, low.Explanation, "consider selecting the paper type manually")
}

func TestDetectNoMatchesFallsBackToGeneric(t *testing.T) {
	res := Detect("The quick brown fox jumps over a lazy dog.")

	assert.Equal(t, Generic, res.DetectedType)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Empty(t, res.KeywordsFound)
}

func TestDetectEmptyText(t *testing.T) {
	res := Detect("")

	assert.Equal(t, Generic, res.DetectedType)
	assert.Equal(t, ConfidenceLow, res.Confidence)
}

func TestDetectTieGoesToEarlierCategory(t *testing.T) {
	// Qualitative and case-report both score 2; qualitative is listed first.
	text := "A focus group was held. This case report describes one participant."

	res := Detect(text)

	assert.Equal(t, Qualitative, res.DetectedType)
	assert.Contains(t, res.KeywordsFound, Qualitative)
	assert.Contains(t, res.KeywordsFound, CaseReport)
}

func TestDetectIsCaseInsensitive(t *testing.T) {
	res := Detect("SYSTEMATIC REVIEW following PRISMA with a documented SEARCH STRATEGY and RISK OF BIAS assessment.")

	assert.Equal(t, SystematicReview, res.DetectedType)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestKeywordsFoundListsEveryMatchingCategory(t *testing.T) {
	text := "This systematic review pooled results from each randomized controlled trial."

	res := Detect(text)

	assert.Contains(t, res.KeywordsFound, SystematicReview)
	assert.Contains(t, res.KeywordsFound, QuantitativeExperimental)
}

func TestLabelAndKnown(t *testing.T) {
	assert.Equal(t, "Case Report", Label(CaseReport))
	assert.Equal(t, "General Manuscript", Label(Generic))
	assert.Equal(t, "made-up", Label("made-up"))

	assert.True(t, Known(MixedMethods))
	assert.True(t, Known(Generic))
	assert.False(t, Known("made-up"))
}
