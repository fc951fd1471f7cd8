// Package pipeline runs one inbound message through validation, retrieval,
// generation, lead extraction and dispatch, and always produces a reply.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/argenfuego/eva/internal/chat"
	"github.com/argenfuego/eva/internal/guardrails"
	"github.com/argenfuego/eva/internal/lead"
	"github.com/argenfuego/eva/internal/logger"
	"github.com/argenfuego/eva/internal/session"
)

// WelcomeReply greets a user on the first message of a session.
const WelcomeReply = "Hola, soy Eva, la asistente virtual de Argenfuego 🔥 ¿En qué puedo ayudarte?"

type State string

const (
	StateInit             State = "INIT"
	StateInputValidation  State = "INPUT_VALIDATION"
	StateRejected         State = "REJECTED"
	StateContextRetrieval State = "CONTEXT_RETRIEVAL"
	StateGeneration       State = "GENERATION"
	StateOutputValidation State = "OUTPUT_VALIDATION"
	StateFallback         State = "FALLBACK"
	StateAccepted         State = "ACCEPTED"
	StateLeadExtraction   State = "LEAD_EXTRACTION"
	StateDispatchCheck    State = "DISPATCH_CHECK"
	StateDispatched       State = "DISPATCHED"
	StateDone             State = "DONE"
)

// Result is the outcome of one processed turn. Reply is never empty.
type Result struct {
	Reply          string `json:"reply"`
	LeadDispatched bool   `json:"lead_dispatched"`
	State          State  `json:"state"`
	TurnID         string `json:"turn_id"`
}

type InputValidator interface {
	Validate(ctx context.Context, text string) guardrails.Result
}

type OutputFilter interface {
	Filter(ctx context.Context, reply string) (string, guardrails.Result)
}

type ContextSearcher interface {
	Search(ctx context.Context, query string, topK int) string
}

type ReplyGenerator interface {
	Generate(ctx context.Context, snippets string, firstInteraction bool, utterance string) string
}

type Dispatcher interface {
	TryDispatch(ctx context.Context, rec lead.Record, sessionKey string) (string, bool)
}

// Deps groups the collaborators of an Orchestrator.
type Deps struct {
	Input     InputValidator
	Output    OutputFilter
	Retriever ContextSearcher
	Generator ReplyGenerator
	Dispatch  Dispatcher
	Sessions  session.Store
	Locks     *session.KeyedMutex
	TopK      int
}

// Orchestrator owns the per-turn state machine.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
}

func NewOrchestrator(log *slog.Logger, deps Deps) (*Orchestrator, error) {
	if log == nil {
		log = slog.Default()
	}
	switch {
	case deps.Input == nil:
		return nil, errors.New("input validator is required")
	case deps.Output == nil:
		return nil, errors.New("output filter is required")
	case deps.Retriever == nil:
		return nil, errors.New("context retriever is required")
	case deps.Generator == nil:
		return nil, errors.New("reply generator is required")
	case deps.Dispatch == nil:
		return nil, errors.New("dispatcher is required")
	case deps.Sessions == nil:
		return nil, errors.New("session store is required")
	}
	if deps.Locks == nil {
		deps.Locks = session.NewKeyedMutex()
	}
	if deps.TopK <= 0 {
		deps.TopK = 3
	}
	return &Orchestrator{deps: deps, logger: log.With(slog.String("service", "pipeline"))}, nil
}

// Process handles one message from userID. Turns of the same user are
// serialized; different users run in parallel.
func (o *Orchestrator) Process(ctx context.Context, userID, text string) (res Result) {
	start := time.Now()
	turnID := uuid.NewString()
	log := o.logger.With(slog.String(logger.UserIDKey, userID), slog.String("turn_id", turnID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("turn panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			res = Result{Reply: chat.TechnicalProblemsReply, State: StateFallback, TurnID: turnID}
		}
		if strings.TrimSpace(res.Reply) == "" {
			res.Reply = chat.TechnicalProblemsReply
		}
		log.Info("turn processed",
			slog.String("state", string(res.State)),
			slog.Bool("lead_dispatched", res.LeadDispatched),
			slog.Duration("took", time.Since(start)))
	}()

	unlock := o.deps.Locks.Lock(userID)
	defer unlock()

	return o.run(ctx, log, turnID, userID, strings.TrimSpace(text))
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, turnID, userID, text string) Result {
	state := StateInit
	advance := func(next State) {
		log.Debug("state transition", slog.String("from", string(state)), slog.String("to", string(next)))
		state = next
	}
	finish := func(terminal State, reply string, dispatched bool) Result {
		advance(terminal)
		return Result{Reply: reply, LeadDispatched: dispatched, State: terminal, TurnID: turnID}
	}

	advance(StateInputValidation)
	if text == "" {
		return finish(StateRejected, guardrails.OutOfScopeReply, false)
	}
	if verdict := o.deps.Input.Validate(ctx, text); !verdict.Valid {
		log.Info("input rejected", slog.String("reason", string(verdict.Reason)))
		return finish(StateRejected, verdict.RejectionText, false)
	}

	// A failed read counts as "not first" so an outage does not welcome every turn.
	first, err := o.deps.Sessions.IsFirstInteraction(ctx, userID)
	if err != nil {
		log.Error("first interaction check failed", slog.Any("error", err))
	}

	var reply string
	if first {
		reply = WelcomeReply
	} else {
		advance(StateContextRetrieval)
		snippets := o.deps.Retriever.Search(ctx, text, o.deps.TopK)

		advance(StateGeneration)
		candidate := o.deps.Generator.Generate(ctx, snippets, first, text)

		advance(StateOutputValidation)
		filtered, verdict := o.deps.Output.Filter(ctx, candidate)
		if !verdict.Valid {
			return finish(StateFallback, filtered, false)
		}
		advance(StateAccepted)
		reply = filtered
	}

	advance(StateLeadExtraction)
	sess := o.loadSession(ctx, log, userID)
	rec := decodeLead(log, sess)
	rec = lead.Update(text, rec)
	if err := o.saveLead(ctx, userID, rec); err != nil {
		log.Error("save session failed", slog.Any("error", err))
	}

	advance(StateDispatchCheck)
	if confirmation, ok := o.deps.Dispatch.TryDispatch(ctx, rec, userID); ok {
		return finish(StateDispatched, confirmation, true)
	}
	return finish(StateDone, reply, false)
}

func (o *Orchestrator) loadSession(ctx context.Context, log *slog.Logger, userID string) session.Session {
	sess, err := o.deps.Sessions.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			log.Error("load session failed", slog.Any("error", err))
		}
		return session.Session{UserID: userID}
	}
	return sess
}

func decodeLead(log *slog.Logger, sess session.Session) lead.Record {
	var rec lead.Record
	if len(sess.State) > 0 {
		if err := json.Unmarshal(sess.State, &rec); err != nil {
			log.Warn("discarding unreadable lead checkpoint", slog.Any("error", err))
			rec = lead.Record{}
		}
	}
	rec.Dispatched = sess.Dispatched
	return rec
}

func (o *Orchestrator) saveLead(ctx context.Context, userID string, rec lead.Record) error {
	stored := rec
	stored.Dispatched = false
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}
	return o.deps.Sessions.Save(ctx, session.Session{
		UserID:               userID,
		FirstInteractionSeen: true,
		State:                raw,
	})
}
