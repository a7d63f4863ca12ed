// Package nlp holds the language-model adapters: intent classification,
// action extraction, and narration. Each adapter takes any text generator,
// so tests run against canned responders instead of a live model.
package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SarathiAI/sarathi-engine/engine/action"
	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/router"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
	"github.com/SarathiAI/sarathi-engine/pkg/llm"
)

// Generator is the text generation capability the adapters need.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const classifyPrompt = `You are an intent classifier for a gig-driver assistant.
Classify the driver's message into exactly one of these labels:

action    - the driver wants to record something: log a trip, report a vehicle issue, create or update a savings goal
earnings  - questions about where to drive, demand zones, or how much they are earning
vehicle   - questions about vehicle health, service, insurance, or documents
financial - questions about savings, investments, or monthly surplus
general   - greetings or anything that fits none of the above

Respond with only the label, nothing else.

Message: %s`

// Classifier labels queries with one of the engine's intents.
type Classifier struct {
	gen Generator
}

// NewClassifier creates a classifier over gen.
func NewClassifier(gen Generator) *Classifier {
	return &Classifier{gen: gen}
}

// Classify returns the raw model label. The router owns normalisation and
// the fallback to general.
func (c *Classifier) Classify(ctx context.Context, query string) fn.Result[string] {
	out, err := c.gen.Generate(ctx, fmt.Sprintf(classifyPrompt, query))
	if err != nil {
		return fn.Errf[string]("nlp: %w: %w", domain.ErrClassificationFailed, err)
	}
	return fn.Ok(out)
}

const extractPrompt = `You are an action extractor for a gig-driver assistant.
Read the driver's message and respond with a single JSON object, no prose, no markdown.

The object has an "action" field, one of:
  "log_trip", "vehicle_check", "create_goal", "update_goal", "query"

Use "query" when the message is not a clear request to record something.

For log_trip also set "trip":
  {"start_location": "", "end_location": "", "earnings": 0, "fuel_cost": 0, "toll_cost": 0, "other_expenses": 0, "distance_km": 0, "platform": ""}
For vehicle_check also set "issue":
  {"description": "", "severity": "low|medium|high"}
For create_goal also set "goal":
  {"goal_name": "", "target_amount": 0, "monthly_contribution": 0, "target_date": "YYYY-MM-DD or empty"}
For update_goal also set "progress":
  {"goal_id": 0, "amount": 0, "note": ""}

Omit fields the message does not mention. Amounts are in rupees.

Message: %s`

// Extractor turns free text into a structured action request.
type Extractor struct {
	gen Generator
}

// NewExtractor creates an extractor over gen.
func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract parses the model's JSON. A response that is not valid JSON comes
// back as a query no-op rather than an error; only transport failures err.
func (e *Extractor) Extract(ctx context.Context, query string) fn.Result[action.Request] {
	out, err := e.gen.Generate(ctx, fmt.Sprintf(extractPrompt, query))
	if err != nil {
		return fn.Errf[action.Request]("nlp: %w: %w", domain.ErrExtractionFailed, err)
	}
	var req action.Request
	if err := json.Unmarshal([]byte(llm.StripFences(out)), &req); err != nil {
		return fn.Ok(action.Request{Type: action.TypeQuery})
	}
	if req.Type == "" {
		req.Type = action.TypeQuery
	}
	return fn.Ok(req)
}

// Narrator rewrites structured advisor output as a conversational reply.
type Narrator struct {
	gen Generator
}

// NewNarrator creates a narrator over gen.
func NewNarrator(gen Generator) *Narrator {
	return &Narrator{gen: gen}
}

// Narrate produces the reply text. The router falls back to the structured
// summary when this fails, so errors are returned as-is.
func (n *Narrator) Narrate(ctx context.Context, in router.Narration) fn.Result[string] {
	var b strings.Builder
	b.WriteString("You are Sarathi, a friendly assistant for gig-economy drivers in India.\n")
	b.WriteString("Rewrite the facts below as a short, warm reply to the driver. ")
	b.WriteString("Keep every number exactly as given. Do not invent facts.\n")
	if in.Language != "" && !strings.EqualFold(in.Language, "en") {
		fmt.Fprintf(&b, "Reply in the driver's preferred language: %s.\n", in.Language)
	}
	fmt.Fprintf(&b, "\nDriver asked: %s\n", in.Query)
	fmt.Fprintf(&b, "Topic: %s\n", in.Intent)
	fmt.Fprintf(&b, "Summary: %s\n", in.Summary)
	for _, rec := range in.Recommendations {
		fmt.Fprintf(&b, "Recommendation: %s. %s\n", rec.Title, rec.Description)
	}
	for _, ins := range in.Insights {
		fmt.Fprintf(&b, "Insight: %s\n", ins)
	}
	out, err := n.gen.Generate(ctx, b.String())
	if err != nil {
		return fn.Errf[string]("nlp: narrate: %w", err)
	}
	return fn.Ok(out)
}
