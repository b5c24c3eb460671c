package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"floatchat-be/internal/dto"
	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/events"
	"floatchat-be/pkg/ocean"
	"floatchat-be/pkg/ocean/analysis"
	"floatchat-be/pkg/ocean/columns"
	"floatchat-be/pkg/ocean/fetch"
	"floatchat-be/pkg/ocean/region"
	"floatchat-be/pkg/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	msgInvalidJSON  = `Invalid JSON. Send {"query": "..."}`
	msgMissingQuery = "Missing 'query' in payload."
)

// Notifier delivers frames to the client. Notify must not block on a slow
// reader.
type Notifier interface {
	Notify(msg dto.StreamMessage)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg dto.StreamMessage)

func (f NotifierFunc) Notify(msg dto.StreamMessage) { f(msg) }

// Collaborators of the chat turn, narrowed to what the turn calls.
type (
	ContextSearcher interface {
		Search(ctx context.Context, query string) ([]ocean.SimilarRecord, error)
	}
	QueryResolver interface {
		Resolve(ctx context.Context, query string, similar []ocean.SimilarRecord, history []string) (*region.Resolution, error)
	}
	SelectionFetcher interface {
		Fetch(ctx context.Context, sel ocean.Selection) (*fetch.Outcome, error)
	}
	NarrativeGenerator interface {
		GenerateOrFallback(ctx context.Context, in analysis.Input) (string, bool)
	}
)

type IChatService interface {
	// HandleMessage processes one inbound frame for the session. It always
	// ends the turn with exactly one terminal frame, or a bare {error} frame
	// when the input itself is malformed.
	HandleMessage(ctx context.Context, session *store.Session, raw []byte, notifier Notifier)
}

type chatService struct {
	searcher ContextSearcher
	resolver QueryResolver
	fetcher  SelectionFetcher
	narrator NarrativeGenerator
	writer   ContextWriter
	events   ITurnEventPublisher
	logger   logger.ILogger
	validate *validator.Validate
	now      func() time.Time
	newID    func() string
	tracer   trace.Tracer
}

func NewChatService(
	searcher ContextSearcher,
	resolver QueryResolver,
	fetcher SelectionFetcher,
	narrator NarrativeGenerator,
	writer ContextWriter,
	turnEvents ITurnEventPublisher,
	log logger.ILogger,
) IChatService {
	if turnEvents == nil {
		turnEvents = NewTurnEventPublisher(nil, log)
	}
	return &chatService{
		searcher: searcher,
		resolver: resolver,
		fetcher:  fetcher,
		narrator: narrator,
		writer:   writer,
		events:   turnEvents,
		logger:   log,
		validate: validator.New(),
		now:      time.Now,
		newID:    uuid.NewString,
		tracer:   otel.Tracer("floatchat-be/chat"),
	}
}

// turnReport collects what the finished turn publishes on the event bus.
type turnReport struct {
	mode     ocean.Mode
	expanded bool
	rows     int
}

func (s *chatService) HandleMessage(ctx context.Context, session *store.Session, raw []byte, notifier Notifier) {
	var req dto.QueryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		notifier.Notify(dto.StreamMessage{Error: msgInvalidJSON})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validate.Struct(req); err != nil {
		notifier.Notify(dto.StreamMessage{Error: msgMissingQuery})
		return
	}

	// History grows before any work so a failed turn still informs later ones.
	session.AppendQuery(req.Query)

	started := s.now()
	ctx, span := s.tracer.Start(ctx, "chat.turn", trace.WithAttributes(
		attribute.String("session.id", session.ID),
		attribute.Int("session.turns", session.Turns()),
	))
	defer span.End()

	s.logger.Info("CHAT", "Turn received", map[string]interface{}{
		"session_id": session.ID,
		"query":      req.Query,
	})

	terminal, report := s.safeRunTurn(ctx, session, req.Query, notifier)
	notifier.Notify(terminal)

	span.SetAttributes(attribute.String("chat.terminal_stage", terminal.Stage))
	if terminal.Stage == dto.StageError {
		span.SetStatus(codes.Error, terminal.Message)
	}

	s.events.PublishTurn(ctx, events.TurnOutcome{
		SessionID:      session.ID,
		Query:          req.Query,
		Stage:          terminal.Stage,
		Mode:           string(report.mode),
		ExpandedSearch: report.expanded,
		Rows:           report.rows,
		Duration:       s.now().Sub(started),
	})
}

func (s *chatService) safeRunTurn(ctx context.Context, session *store.Session, query string, n Notifier) (terminal dto.StreamMessage, report turnReport) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("CHAT", "Turn panicked", map[string]interface{}{
				"session_id": session.ID,
				"panic":      fmt.Sprint(r),
			})
			terminal = dto.StreamMessage{
				Stage:     dto.StageError,
				Message:   fmt.Sprintf("Error during fetch/processing: %v", r),
				Traceback: string(debug.Stack()),
			}
		}
	}()
	return s.runTurn(ctx, session, query, n)
}

func (s *chatService) runTurn(ctx context.Context, session *store.Session, query string, n Notifier) (dto.StreamMessage, turnReport) {
	var report turnReport

	n.Notify(dto.StreamMessage{
		Stage:   dto.StageAnalyzing,
		Message: "🔎 Analyzing your query",
		Thinking: []string{
			"Looking for similar questions answered before",
			"Reading the recent conversation",
			"Asking the model to pick a region, variables and dates",
		},
	})

	similar := s.searchSimilar(ctx, query)

	resolveCtx, span := s.tracer.Start(ctx, "chat.resolve")
	resolution, err := s.resolver.Resolve(resolveCtx, query, similar, session.History())
	endSpan(span, err)
	if err != nil {
		return s.resolveFailure(session, err), report
	}

	if !resolution.HasSelection() {
		return dto.StreamMessage{Stage: dto.StageNoFunctionCall, Message: resolution.PlainText}, report
	}
	sel := *resolution.Selection
	report.mode = sel.Mode

	n.Notify(dto.StreamMessage{
		Stage:    dto.StageSQLGeneration,
		Message:  "🛠 Generating a data query for your request",
		Thinking: describeSelection(sel),
	})

	n.Notify(dto.StreamMessage{
		Stage:   dto.StageDBFetch,
		Message: "📡 Fetching Argo float data",
		Thinking: []string{
			"Requesting profiles between 0 and 2000 dbar",
			"Widening the search area once if nothing comes back",
		},
	})

	fetchCtx, span := s.tracer.Start(ctx, "chat.fetch", trace.WithAttributes(attribute.String("fetch.mode", string(sel.Mode))))
	outcome, err := s.fetcher.Fetch(fetchCtx, sel)
	endSpan(span, err)
	if err != nil {
		return s.fetchFailure(session, outcome, err), report
	}
	if outcome.Notice != nil {
		return dto.StreamMessage{Stage: dto.StageError, Message: outcome.Notice.Message}, report
	}

	meta := outcome.Meta
	report.expanded = meta.ExpandedSearch

	n.Notify(dto.StreamMessage{
		Stage:    dto.StageProcessing,
		Message:  "⚙️ Processing data",
		Thinking: describeProcessing(meta),
	})

	res := outcome.Result
	columns.ProjectResult(res, meta.SelectedVariables)
	rows := analysis.Rows(res)
	report.rows = len(rows)

	analyzeCtx, span := s.tracer.Start(ctx, "chat.analyze")
	narrative, fallback := s.narrator.GenerateOrFallback(analyzeCtx, analysis.Input{
		Query:   query,
		Result:  res,
		Meta:    meta,
		Similar: similar,
	})
	span.SetAttributes(attribute.Bool("analysis.fallback", fallback))
	span.End()

	s.writeContext(ctx, query, narrative, meta)

	payload := res.Payload()
	payload["analysis"] = narrative
	payload["graph_analysis"] = analysis.AnalyzeGraph(rows, meta)

	n.Notify(dto.StreamMessage{Stage: dto.StageCompleted, Message: "✅ Data ready"})

	return dto.StreamMessage{Stage: dto.StageResult, Result: payload, QueryMeta: &meta}, report
}

// searchSimilar treats the store as optional: a failed lookup only means the
// prompt has no prior context.
func (s *chatService) searchSimilar(ctx context.Context, query string) []ocean.SimilarRecord {
	if s.searcher == nil {
		return nil
	}
	similar, err := s.searcher.Search(ctx, query)
	if err != nil {
		s.logger.Warn("CHAT", "Similarity search failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return similar
}

func (s *chatService) resolveFailure(session *store.Session, err error) dto.StreamMessage {
	s.logger.Error("CHAT", "Query resolution failed", map[string]interface{}{
		"session_id": session.ID,
		"error":      err.Error(),
	})
	if errors.Is(err, region.ErrSelection) {
		return dto.StreamMessage{Stage: dto.StageError, Message: fmt.Sprintf("The model returned an unusable selection: %v", err)}
	}
	return dto.StreamMessage{Stage: dto.StageError, Message: fmt.Sprintf("Model call failed: %v", err)}
}

// fetchFailure downgrades transient failures to a friendly result and
// reports everything else as an error with its cause chain.
func (s *chatService) fetchFailure(session *store.Session, outcome *fetch.Outcome, err error) dto.StreamMessage {
	if soft, ok := fetch.SoftFailureFor(err); ok {
		s.logger.Warn("CHAT", "Fetch failed softly", map[string]interface{}{
			"session_id": session.ID,
			"reason":     string(soft.Kind),
			"error":      err.Error(),
		})
		msg := dto.StreamMessage{Stage: dto.StageResult, Result: soft.Payload()}
		if outcome != nil {
			meta := outcome.Meta
			msg.QueryMeta = &meta
		}
		return msg
	}

	s.logger.Error("CHAT", "Fetch failed", map[string]interface{}{
		"session_id": session.ID,
		"error":      err.Error(),
	})
	return dto.StreamMessage{
		Stage:     dto.StageError,
		Message:   fmt.Sprintf("Error during fetch/processing: %v", err),
		Traceback: errorChain(err),
	}
}

func (s *chatService) writeContext(ctx context.Context, query, narrative string, meta ocean.QueryMeta) {
	if s.writer == nil {
		return
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		s.logger.Error("CHAT", "Failed to encode query meta", map[string]interface{}{"error": err.Error()})
		return
	}
	rec := ocean.ContextRecord{
		ID:       s.newID(),
		Document: narrative,
		Metadata: ocean.ContextMetadata{
			Query:     query,
			Timestamp: s.now().UTC().Format(time.RFC3339),
			QueryMeta: string(metaJSON),
		},
	}
	if err := s.writer.WriteContext(ctx, rec); err != nil {
		s.logger.Error("CHAT", "Failed to write context", map[string]interface{}{
			"error": err.Error(),
			"id":    rec.ID,
		})
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// errorChain renders each wrapped layer of err on its own line.
func errorChain(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		err = errors.Unwrap(err)
	}
	return b.String()
}

func describeSelection(sel ocean.Selection) []string {
	var steps []string
	switch sel.Mode {
	case ocean.ModeBox:
		if sel.Box != nil {
			steps = append(steps, "Region: "+sel.Box.String())
		}
	case ocean.ModePoints:
		steps = append(steps, fmt.Sprintf("Locations: %d point(s), each with a ±0.1° window", len(sel.Points)))
	default:
		steps = append(steps, fmt.Sprintf("Mode: %s", sel.Mode))
	}

	if len(sel.Variables) > 0 {
		names := make([]string, len(sel.Variables))
		for i, v := range sel.Variables {
			names[i] = string(v)
		}
		steps = append(steps, "Variables: "+strings.Join(names, ", "))
	} else {
		steps = append(steps, "Variables: all available")
	}

	if sel.DateMin == "" || sel.DateMax == "" {
		steps = append(steps, "Dates: not stated, using the default range")
	} else {
		steps = append(steps, fmt.Sprintf("Dates: %s to %s", sel.DateMin, sel.DateMax))
	}
	return steps
}

func describeProcessing(meta ocean.QueryMeta) []string {
	steps := []string{fmt.Sprintf("Period %s to %s", meta.DateStart, meta.DateEnd)}
	if meta.ExpandedSearch {
		steps = append(steps, "No data in the original area, showing results from a wider search")
	}
	steps = append(steps,
		"Sampling up to 50 distinct location and time readings",
		"Writing an analysis of the sampled data",
	)
	return steps
}
