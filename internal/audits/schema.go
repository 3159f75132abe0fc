package audits

// AnalysisResponse is the validated shape of an LLM audit reply. Every field
// is guaranteed well-formed after Normalize; nothing here is trusted raw
// model output.
type AnalysisResponse struct {
	ReadinessScore         int                      `json:"readinessScore"`
	ExecutiveSummary       string                   `json:"executiveSummary"`
	DocumentClassification DocumentClassification   `json:"documentClassification"`
	ScoreBreakdown         map[string]CategoryScore `json:"scoreBreakdown"`
	CriticalIssues         []CriticalIssue          `json:"criticalIssues"`
	DetailedFeedback       []FeedbackItem           `json:"detailedFeedback"`
	ActionItems            []ActionItem             `json:"actionItems"`
	AbstractAnalysis       *AbstractAnalysis        `json:"abstractAnalysis,omitempty"`
	ZeroIPerspective       *ZeroIPerspective        `json:"zeroIPerspective,omitempty"`
	StrengthsToMaintain    []string                 `json:"strengthsToMaintain"`
	LearnLinks             []LearnLink              `json:"learnLinks"`
}

// DocumentClassification describes what kind of manuscript the model believes
// it audited.
type DocumentClassification struct {
	ManuscriptType     string `json:"manuscriptType"`
	Discipline         string `json:"discipline"`
	StudyDesign        string `json:"studyDesign"`
	ReportingGuideline string `json:"reportingGuideline"`
}

// CategoryScore is one entry of the fixed nine-category score breakdown.
type CategoryScore struct {
	Score     int    `json:"score"`
	MaxWeight int    `json:"maxWeight"`
	Notes     string `json:"notes"`
}

// CriticalIssue is a blocking problem the model found.
type CriticalIssue struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Severity     string `json:"severity"`
	UMAReference string `json:"umaReference"`
}

// FeedbackItem is one detailed, section-scoped observation.
type FeedbackItem struct {
	Section        string `json:"section"`
	Finding        string `json:"finding"`
	Suggestion     string `json:"suggestion"`
	WhyItMatters   string `json:"whyItMatters"`
	Severity       string `json:"severity"`
	ResourceTopic  string `json:"resourceTopic"`
	ResourceURL    string `json:"resourceUrl,omitempty"`
	ResourceSource string `json:"resourceSource,omitempty"`
}

// ActionItem is one concrete task for the author.
type ActionItem struct {
	Task      string `json:"task"`
	Priority  string `json:"priority"`
	Section   string `json:"section,omitempty"`
	Completed bool   `json:"completed"`
}

// AbstractAnalysis checks the abstract against the five expected rhetorical
// moves.
type AbstractAnalysis struct {
	CoversBackground bool   `json:"coversBackground"`
	CoversObjective  bool   `json:"coversObjective"`
	CoversMethods    bool   `json:"coversMethods"`
	CoversResults    bool   `json:"coversResults"`
	CoversConclusion bool   `json:"coversConclusion"`
	Feedback         string `json:"feedback"`
}

// ZeroIPerspective checks for first-person-singular usage.
type ZeroIPerspective struct {
	Compliant  bool     `json:"compliant"`
	Violations []string `json:"violations"`
	Feedback   string   `json:"feedback"`
}

// LearnLink points the author at related guidance.
type LearnLink struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	URL         string `json:"url"`
	Source      string `json:"source,omitempty"`
}

// Severity vocabulary for criticalIssues and detailedFeedback.
const (
	SeverityCritical  = "critical"
	SeverityImportant = "important"
	SeverityMinor     = "minor"
)

// Priority vocabulary for actionItems.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ScoreCategories is the fixed, ordered set of scoreBreakdown keys. Normalize
// always emits exactly these nine.
var ScoreCategories = []string{
	"titleAndKeywords",
	"abstract",
	"introduction",
	"methods",
	"results",
	"discussion",
	"ethicsAndTransparency",
	"writingQuality",
	"zeroIPerspective",
}

// categoryMaxWeights is the default weighting of each category when the model
// does not supply one. Weights sum to 100.
var categoryMaxWeights = map[string]int{
	"titleAndKeywords":      5,
	"abstract":              10,
	"introduction":          10,
	"methods":               20,
	"results":               15,
	"discussion":            15,
	"ethicsAndTransparency": 10,
	"writingQuality":        10,
	"zeroIPerspective":      5,
}

const (
	invalidResponseMessage  = "AI returned invalid response format"
	defaultExecutiveSummary = "No executive summary provided."
	notEvaluatedNotes       = "Not evaluated"
	unknownClassification   = "Unknown"
	noGuideline             = "N/A"
)
