package llm

import _ "embed"

var (
	//go:embed prompts/audit_v1.txt
	auditPromptV1 string

	//go:embed prompts/module_quantitative_experimental.txt
	moduleQuantitativeExperimental string
	//go:embed prompts/module_observational.txt
	moduleObservational string
	//go:embed prompts/module_qualitative.txt
	moduleQualitative string
	//go:embed prompts/module_systematic_review.txt
	moduleSystematicReview string
	//go:embed prompts/module_mixed_methods.txt
	moduleMixedMethods string
	//go:embed prompts/module_case_report.txt
	moduleCaseReport string
	//go:embed prompts/module_generic.txt
	moduleGeneric string
)

// PromptTemplate returns the audit prompt template and whether the version was recognized.
func PromptTemplate(version string) (string, bool) {
	switch version {
	case "v1":
		return auditPromptV1, true
	default:
		return auditPromptV1, false
	}
}

// PaperTypeModule returns the rigor guidance block spliced into the prompt
// for a detected study type. Unknown types fall back to the generic module.
func PaperTypeModule(paperType string) string {
	switch paperType {
	case "quantitative-experimental":
		return moduleQuantitativeExperimental
	case "observational":
		return moduleObservational
	case "qualitative":
		return moduleQualitative
	case "systematic-review":
		return moduleSystematicReview
	case "mixed-methods":
		return moduleMixedMethods
	case "case-report":
		return moduleCaseReport
	default:
		return moduleGeneric
	}
}
