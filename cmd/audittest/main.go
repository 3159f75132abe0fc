package main

// Run an audit prompt against a local manuscript without the API server:
//   go run ./cmd/audittest -manuscript paper.pdf
//   go run ./cmd/audittest -manuscript paper.docx -detect-only

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"manuscript-backend/internal/audits"
	"manuscript-backend/internal/extract"
	"manuscript-backend/internal/llm"
	openai "manuscript-backend/internal/llm/openai"
	"manuscript-backend/internal/papertype"
	"manuscript-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	manuscriptPath := flag.String("manuscript", "", "Path to manuscript file (pdf or docx)")
	promptVersion := flag.String("prompt-version", "v1", "Prompt version")
	helpTypes := flag.String("help-types", "", "Comma-separated help types")
	detectOnly := flag.Bool("detect-only", false, "Run paper type detection only, no LLM call")
	outPath := flag.String("out", "", "Path to write raw JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*manuscriptPath) == "" {
		exitErr("manuscript path is required")
	}

	mimeType, err := mimeFromExt(*manuscriptPath)
	if err != nil {
		exitErr(err.Error())
	}

	data, err := os.ReadFile(*manuscriptPath)
	if err != nil {
		exitErr(fmt.Sprintf("read manuscript: %v", err))
	}
	fileName := filepath.Base(*manuscriptPath)

	text, err := extract.ExtractTextFromBytes(context.Background(), data, mimeType, fileName)
	if err != nil {
		exitErr(fmt.Sprintf("extract manuscript text: %v", err))
	}

	detection := papertype.Detect(text)
	if *detectOnly {
		printJSON(detection, *outPath)
		return
	}

	client, err := buildClient(*provider, *model)
	if err != nil {
		exitErr(err.Error())
	}

	input := llm.AuditInput{
		ManuscriptText: text,
		PaperType:      detection.DetectedType,
		HelpTypes:      splitHelpTypes(*helpTypes),
		PromptVersion:  *promptVersion,
	}

	raw, err := client.AuditManuscript(context.Background(), input)
	if err != nil {
		exitErr(fmt.Sprintf("llm audit: %v", err))
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = nil
	}
	resp, warnings := audits.Validate(decoded)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "rigor warning: %s\n", w)
	}

	printJSON(resp, *outPath)
}

func buildClient(provider, model string) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "openai":
		return openai.NewClient(os.Getenv("OPENAI_API_KEY"), model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func splitHelpTypes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mimeFromExt(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf", nil
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document", nil
	default:
		return "", fmt.Errorf("unsupported manuscript file type: %s", filepath.Ext(path))
	}
}

func printJSON(value any, outPath string) {
	raw, err := json.Marshal(value)
	if err != nil {
		exitErr(fmt.Sprintf("encode json: %v", err))
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty := buf.Bytes()

	if outPath != "" {
		if err := os.WriteFile(outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
