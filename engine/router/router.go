// Package router is the orchestration core. Each request walks a small state
// machine: classify the query, dispatch to the advisor for its intent, then
// narrate the structured outcome. The router is the outermost error boundary;
// callers always receive a well-formed response.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SarathiAI/sarathi-engine/engine/action"
	"github.com/SarathiAI/sarathi-engine/engine/domain"
	"github.com/SarathiAI/sarathi-engine/engine/earnings"
	"github.com/SarathiAI/sarathi-engine/engine/finance"
	"github.com/SarathiAI/sarathi-engine/engine/vehicle"
	"github.com/SarathiAI/sarathi-engine/pkg/fn"
	"github.com/SarathiAI/sarathi-engine/pkg/metrics"
)

// State of a request as it moves through the machine. StateError absorbs:
// once entered, a request can only produce the fallback response.
type State string

const (
	StateNew        State = "new"
	StateClassified State = "classified"
	StateDispatched State = "dispatched"
	StateCompleted  State = "completed"
	StateError      State = "error"
)

const fallbackResponse = "I encountered an error while processing your request"

// Classifier labels a free-text query with an intent.
type Classifier interface {
	Classify(ctx context.Context, query string) fn.Result[string]
}

// Narrator rewrites a structured outcome as a conversational reply. On
// failure the router falls back to the outcome's own summary text.
type Narrator interface {
	Narrate(ctx context.Context, n Narration) fn.Result[string]
}

// Narration is the input handed to the narrator.
type Narration struct {
	Query           string                      `json:"query"`
	Intent          domain.Intent               `json:"intent"`
	Summary         string                      `json:"summary"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	Insights        []string                    `json:"insights"`
	Language        string                      `json:"language,omitempty"`
}

// Request is one user query with its profile.
type Request struct {
	UserID  int64              `json:"user_id"`
	Query   string             `json:"query"`
	Profile domain.UserProfile `json:"profile"`
}

// Response is the complete bundle handed back to the client.
type Response struct {
	RequestID       string                      `json:"request_id"`
	Intent          domain.Intent               `json:"intent"`
	ResponseText    string                      `json:"response_text"`
	Recommendations []domain.RecommendationItem `json:"recommendations"`
	ActionItems     []string                    `json:"action_items"`
	Analysis        any                         `json:"analysis,omitempty"`
}

// outcome is the intent-agnostic shape every advisor run is folded into
// before narration.
type outcome struct {
	summary         string
	recommendations []domain.RecommendationItem
	insights        []string
	actionItems     []string // set only when an advisor overrides the default
	analysis        any
}

// Router wires the classifier, advisors, and narrator together.
type Router struct {
	classifier Classifier
	narrator   Narrator
	dispatcher *action.Dispatcher
	earnings   *earnings.Advisor
	vehicle    *vehicle.Advisor
	financial  fn.Stage[finance.Request, finance.Advice]
	logger     *slog.Logger
	registry   *metrics.Registry
}

// Opts collects the router's collaborators. Narrator and Registry may be nil.
type Opts struct {
	Classifier Classifier
	Narrator   Narrator
	Dispatcher *action.Dispatcher
	Earnings   *earnings.Advisor
	Vehicle    *vehicle.Advisor
	Planner    *finance.SurplusPlanner
	Investor   *finance.InvestmentEngine
	Logger     *slog.Logger
	Registry   *metrics.Registry
}

// New creates a router. The financial path is the planner chained into the
// investment engine; a surplus analysis is never returned unaccompanied.
func New(o Opts) *Router {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		classifier: o.Classifier,
		narrator:   o.Narrator,
		dispatcher: o.Dispatcher,
		earnings:   o.Earnings,
		vehicle:    o.Vehicle,
		financial: fn.Then(
			fn.TracedStage("finance.plan", o.Planner.Plan),
			fn.TracedStage("finance.suggest", o.Investor.Suggest),
		),
		logger:   logger,
		registry: o.Registry,
	}
}

// Handle runs one request end to end. It never returns an error: any internal
// failure collapses to the fallback response.
func (r *Router) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	id := uuid.NewString()
	state := StateNew
	log := r.logger.With("request_id", id, "user_id", req.UserID)

	intent := r.classify(ctx, req.Query)
	state = StateClassified
	log.Info("query classified", "intent", intent, "state", state)

	out := r.dispatch(ctx, intent, req)
	if out.IsErr() {
		_, err := out.Unwrap()
		state = StateError
		log.Error("dispatch failed", "intent", intent, "state", state, "error", err)
		r.count("sarathi_requests_total", string(intent), "error")
		return Response{
			RequestID:       id,
			Intent:          intent,
			ResponseText:    fallbackResponse,
			Recommendations: []domain.RecommendationItem{},
			ActionItems:     []string{},
		}
	}
	state = StateDispatched

	o, _ := out.Unwrap()
	text := r.narrate(ctx, req, intent, o)

	actionItems := o.actionItems
	if actionItems == nil {
		actionItems = fn.Map(fn.Take(o.recommendations, 3), func(rec domain.RecommendationItem) string {
			return rec.Title
		})
	}
	if o.recommendations == nil {
		o.recommendations = []domain.RecommendationItem{}
	}
	if actionItems == nil {
		actionItems = []string{}
	}

	state = StateCompleted
	log.Info("request completed", "intent", intent, "state", state, "duration", time.Since(start))
	r.count("sarathi_requests_total", string(intent), "ok")
	if r.registry != nil {
		r.registry.Histogram("sarathi_request_seconds", "End to end request latency", nil).Since(start)
	}

	return Response{
		RequestID:       id,
		Intent:          intent,
		ResponseText:    text,
		Recommendations: o.recommendations,
		ActionItems:     actionItems,
		Analysis:        o.analysis,
	}
}

// classify trims and lowercases the classifier label and forces anything
// outside the known set, including classifier failure, to general.
func (r *Router) classify(ctx context.Context, query string) domain.Intent {
	if r.classifier == nil {
		return domain.IntentGeneral
	}
	res := r.classifier.Classify(ctx, query)
	if res.IsErr() {
		_, err := res.Unwrap()
		r.logger.Warn("classification failed, treating as general", "error", err)
		return domain.IntentGeneral
	}
	label, _ := res.Unwrap()
	intent := domain.Intent(strings.ToLower(strings.TrimSpace(label)))
	if !domain.ValidIntents[intent] {
		r.logger.Warn("unknown intent label, treating as general", "label", label)
		return domain.IntentGeneral
	}
	return intent
}

// dispatch routes the request to the advisor for its intent. The table is
// total over the intent set.
func (r *Router) dispatch(ctx context.Context, intent domain.Intent, req Request) fn.Result[outcome] {
	switch intent {
	case domain.IntentAction:
		return fn.MapResult(r.dispatcher.Dispatch(ctx, req.UserID, req.Query), func(o action.Outcome) outcome {
			return outcome{
				summary:         o.ResponseText,
				recommendations: o.Recommendations,
				actionItems:     o.ActionItems,
			}
		})
	case domain.IntentEarnings:
		return fn.MapResult(r.earnings.Advise(ctx, earnings.Request{UserID: req.UserID, City: req.Profile.City}), func(a earnings.Advice) outcome {
			summary := a.Headline
			if summary == "" {
				summary = "Here's what your recent trips say about your earnings."
			}
			return outcome{
				summary:         summary,
				recommendations: a.Recommendations,
				analysis:        a,
			}
		})
	case domain.IntentVehicle:
		return fn.MapResult(r.vehicle.Assess(ctx, vehicle.Request{UserID: req.UserID}), func(rep vehicle.Report) outcome {
			return outcome{
				summary:         rep.Summary,
				recommendations: rep.Recommendations,
				analysis:        rep,
			}
		})
	case domain.IntentFinancial:
		return fn.MapResult(r.financial(ctx, finance.Request{UserID: req.UserID, Profile: req.Profile}), func(adv finance.Advice) outcome {
			return outcome{
				summary:         adv.Summary,
				recommendations: adv.Recommendations,
				insights:        adv.Insights,
				actionItems:     adv.ActionItems,
				analysis:        adv,
			}
		})
	default:
		return fn.Ok(outcome{
			summary: "I'm Sarathi, your driving assistant. Ask me about earnings, your vehicle, savings, or tell me to log a trip.",
		})
	}
}

// narrate asks the narrator for conversational text, falling back to the
// structured summary when it is unavailable.
func (r *Router) narrate(ctx context.Context, req Request, intent domain.Intent, o outcome) string {
	if r.narrator == nil {
		return o.summary
	}
	res := r.narrator.Narrate(ctx, Narration{
		Query:           req.Query,
		Intent:          intent,
		Summary:         o.summary,
		Recommendations: o.recommendations,
		Insights:        o.insights,
		Language:        req.Profile.PreferredLanguage,
	})
	if res.IsErr() {
		_, err := res.Unwrap()
		r.logger.Warn("narration failed, using structured summary", "error", err)
		return o.summary
	}
	text, _ := res.Unwrap()
	if strings.TrimSpace(text) == "" {
		return o.summary
	}
	return text
}

func (r *Router) count(name string, intent, status string) {
	if r.registry == nil {
		return
	}
	r.registry.Counter(metrics.WithLabels(name, "intent", intent, "status", status),
		"Requests handled by intent and status").Inc()
}
