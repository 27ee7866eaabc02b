package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// DirectGenerator abstracts direct (non-grounded) text generation for
// elaboration. Satisfied by gemini.Client.
type DirectGenerator interface {
	GenerateDirect(ctx context.Context, prompt string) (string, error)
}

// Elaborated is one risk finding with model-written advice attached.
// Severity fields are server-assigned and never changed by the model.
type Elaborated struct {
	ID              string   `json:"id"`
	SeverityLevel   string   `json:"severity_level"`
	SeverityScore   int      `json:"severity_score"`
	ShortRisk       string   `json:"short_risk,omitempty"`
	Label           string   `json:"label,omitempty"`
	Snippet         string   `json:"snippet,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Report is the outcome of extraction plus elaboration. Exactly one of
// Risks or RawOutput is set; Note explains any degradation.
type Report struct {
	Risks     []Elaborated `json:"risks,omitempty"`
	RawOutput string       `json:"raw_llm_output,omitempty"`
	Findings  []Span       `json:"server_risks,omitempty"`
	Note      string       `json:"note,omitempty"`
}

// Elaborator asks a model to explain and suggest remediations for
// deterministic findings. Every failure path still returns the findings:
// partial success is preferred over total failure.
type Elaborator struct {
	gen    DirectGenerator
	prompt string
	logger *slog.Logger
}

// NewElaborator creates an Elaborator. prompt is the instruction template
// prepended to the serialized findings.
func NewElaborator(gen DirectGenerator, prompt string) *Elaborator {
	return &Elaborator{gen: gen, prompt: prompt, logger: slog.Default()}
}

// Elaborate sends the findings to the model and parses its JSON reply.
//   - parseable JSON array -> Report.Risks
//   - unparseable output   -> Report.RawOutput + Report.Findings
//   - generation failure   -> deterministic Report.Risks with stock advice
//     and a Note describing the failure
func (e *Elaborator) Elaborate(ctx context.Context, findings []Span) Report {
	if len(findings) == 0 {
		return Report{Risks: []Elaborated{}}
	}

	payload, err := json.Marshal(findings)
	if err != nil {
		// Span marshals from plain fields; this indicates a programming bug.
		return e.fallbackReport(findings, fmt.Sprintf("serializing findings: %v", err))
	}

	out, err := e.gen.GenerateDirect(ctx, e.prompt+"\n\nServerRisks: "+string(payload))
	if err != nil {
		e.logger.Warn("risk elaboration failed, returning deterministic findings", "error", err)
		return e.fallbackReport(findings, fmt.Sprintf("LLM attempt failed: %v", err))
	}

	var parsed []Elaborated
	if err := json.Unmarshal([]byte(cleanJSONBlock(out)), &parsed); err != nil {
		return Report{RawOutput: out, Findings: findings}
	}
	return Report{Risks: parsed}
}

func (e *Elaborator) fallbackReport(findings []Span, note string) Report {
	risks := make([]Elaborated, len(findings))
	for i, s := range findings {
		risks[i] = Elaborated{
			ID:            s.ID,
			SeverityLevel: s.Severity,
			SeverityScore: s.Score,
			ShortRisk:     s.Label,
			Snippet:       s.Snippet,
			Explanation:   "Detected snippet with keywords; review the clause near the provided snippet.",
			Recommendations: []string{
				"Narrow the clause",
				"Add caps/time limits",
				"Add explicit data-protection language",
			},
		}
	}
	return Report{Risks: risks, Note: note}
}

// cleanJSONBlock strips markdown code fences the model sometimes wraps
// around JSON output.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
