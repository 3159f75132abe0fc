package openai

import (
	"fmt"
	"log"
	"strings"

	"manuscript-backend/internal/llm"
)

// Message represents an OpenAI chat message.
type Message struct {
	Role    string
	Content string
}

const (
	systemPromptAudit   = "You are a manuscript audit engine. Respond with JSON only. No markdown. Never omit keys. Output must match the schema exactly."
	systemPromptFixJSON = "You are a JSON repair tool. Return only valid JSON that matches the schema exactly."
)

// BuildAuditPrompt creates the chat messages for a manuscript audit request.
func BuildAuditPrompt(input llm.AuditInput, model string) []Message {
	developer := resolvePromptTemplate(input, model)
	return []Message{
		{Role: "system", Content: systemPromptAudit},
		{Role: "developer", Content: developer},
		{Role: "user", Content: buildUserPrompt(input.ManuscriptText)},
	}
}

func buildFixPrompt(input llm.AuditInput, model string, raw []byte) []Message {
	developer := resolvePromptTemplate(input, model)
	return []Message{
		{Role: "system", Content: systemPromptFixJSON},
		{Role: "developer", Content: developer},
		{Role: "user", Content: fixUserPrompt(raw)},
	}
}

func resolvePromptTemplate(input llm.AuditInput, model string) string {
	version := promptVersionSuffix(input.PromptVersion)
	template, ok := llm.PromptTemplate(version)
	if !ok {
		log.Printf("unknown prompt version %q, defaulting to v1", version)
		version = "v1"
		template, _ = llm.PromptTemplate(version)
	}

	helpTypes := "General Review"
	if len(input.HelpTypes) > 0 {
		helpTypes = strings.Join(input.HelpTypes, ", ")
	}
	paperType := strings.TrimSpace(input.PaperType)
	if paperType == "" {
		paperType = "generic"
	}

	replacer := strings.NewReplacer(
		"{{PROMPT_VERSION}}", version,
		"{{MODEL}}", model,
		"{{PAPER_TYPE}}", paperType,
		"{{HELP_TYPES}}", helpTypes,
		"{{PAPER_TYPE_MODULE}}", strings.TrimSpace(llm.PaperTypeModule(paperType)),
	)
	return replacer.Replace(template)
}

// promptVersionSuffix accepts both bare versions ("v1") and the combined
// "model:version" form carried in AUDIT_VERSION.
func promptVersionSuffix(raw string) string {
	version := strings.TrimSpace(raw)
	if idx := strings.LastIndex(version, ":"); idx >= 0 {
		version = version[idx+1:]
	}
	return version
}

func buildUserPrompt(manuscriptText string) string {
	return fmt.Sprintf("Manuscript Text:\n%s", manuscriptText)
}

func fixUserPrompt(raw []byte) string {
	return fmt.Sprintf("Fix this JSON to match the schema exactly. Output JSON only:\n%s", string(raw))
}

func prependSystemMessage(messages []Message, content string) []Message {
	if strings.TrimSpace(content) == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: "system", Content: content})
	out = append(out, messages...)
	return out
}
