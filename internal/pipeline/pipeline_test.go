package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argenfuego/eva/internal/chat"
	"github.com/argenfuego/eva/internal/dispatch"
	"github.com/argenfuego/eva/internal/guardrails"
	"github.com/argenfuego/eva/internal/lead"
	"github.com/argenfuego/eva/internal/session"
)

type countingProvider struct {
	calls atomic.Int32
	reply string
	err   error
}

func (p *countingProvider) Chat(context.Context, chat.Request) (chat.Result, error) {
	p.calls.Add(1)
	if p.err != nil {
		return chat.Result{}, p.err
	}
	return chat.Result{Message: chat.Message{Role: chat.RoleAssistant, Content: p.reply}}, nil
}

type staticRetriever struct {
	text  string
	panic bool
}

func (r staticRetriever) Search(context.Context, string, int) string {
	if r.panic {
		panic("index corrupted")
	}
	return r.text
}

type countingNotifier struct {
	calls atomic.Int32
	last  lead.Record
	mu    sync.Mutex
}

func (n *countingNotifier) Notify(_ context.Context, rec lead.Record, _ string) error {
	n.calls.Add(1)
	n.mu.Lock()
	n.last = rec
	n.mu.Unlock()
	return nil
}

type fixedModerator struct{ flagged bool }

func (m fixedModerator) Moderate(context.Context, string) (guardrails.Moderation, error) {
	return guardrails.Moderation{Flagged: m.flagged}, nil
}

type harness struct {
	orch     *Orchestrator
	provider *countingProvider
	notifier *countingNotifier
	store    *session.MemoryStore
}

type harnessOpts struct {
	store         session.Store
	retriever     ContextSearcher
	outputFlagged bool
}

func newHarness(t *testing.T, reply string, opts harnessOpts) *harness {
	t.Helper()
	mem := session.NewMemoryStore(session.DefaultTTL)
	var store session.Store = mem
	if opts.store != nil {
		store = opts.store
	}
	retriever := opts.retriever
	if retriever == nil {
		retriever = staticRetriever{text: "Extintores ABC de 5kg"}
	}

	provider := &countingProvider{reply: reply}
	notifier := &countingNotifier{}
	cfg := guardrails.Config{EnableInputModeration: true, EnableTopicValidation: true, EnableOutputModeration: true}

	orch, err := NewOrchestrator(nil, Deps{
		Input:     guardrails.NewInputGuard(nil, guardrails.NewKeywordModerator(), guardrails.NewKeywordClassifier(), cfg),
		Output:    guardrails.NewOutputGuard(nil, fixedModerator{flagged: opts.outputFlagged}, cfg),
		Retriever: retriever,
		Generator: chat.NewGenerator(nil, provider, chat.GeneratorConfig{Model: "gpt-3.5-turbo", MaxTokens: 150, Temperature: 0.3}),
		Dispatch:  dispatch.NewDecider(nil, store, notifier, time.Second),
		Sessions:  store,
		TopK:      3,
	})
	require.NoError(t, err)
	return &harness{orch: orch, provider: provider, notifier: notifier, store: mem}
}

func TestProcess_HolaGetsWelcomeOnce(t *testing.T) {
	h := newHarness(t, "¿En qué te ayudo?", harnessOpts{})
	ctx := context.Background()

	res := h.orch.Process(ctx, "whatsapp:+5491100000001", "Hola")
	assert.Equal(t, WelcomeReply, res.Reply)
	assert.Equal(t, StateDone, res.State)
	assert.NotEmpty(t, res.TurnID)
	assert.Zero(t, h.provider.calls.Load())

	res = h.orch.Process(ctx, "whatsapp:+5491100000001", "Hola")
	assert.Equal(t, "¿En qué te ayudo?", res.Reply)
	assert.Equal(t, int32(1), h.provider.calls.Load())
}

func TestProcess_OffTopicRejectedWithoutCompletion(t *testing.T) {
	h := newHarness(t, "irrelevant", harnessOpts{})

	res := h.orch.Process(context.Background(), "u1", "¿quién ganó el partido de fútbol ayer?")
	assert.Equal(t, guardrails.OutOfScopeReply, res.Reply)
	assert.Equal(t, StateRejected, res.State)
	assert.False(t, res.LeadDispatched)
	assert.Zero(t, h.provider.calls.Load())

	_, err := h.store.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, session.ErrNotFound, "rejected turns must not open a session")
}

func TestProcess_ProfanityRejected(t *testing.T) {
	h := newHarness(t, "irrelevant", harnessOpts{})
	res := h.orch.Process(context.Background(), "u1", "sos un pelotudo, precio del matafuego")
	assert.Equal(t, guardrails.InappropriateReply, res.Reply)
	assert.Equal(t, StateRejected, res.State)
}

func TestProcess_FullLeadDispatchesOnce(t *testing.T) {
	h := newHarness(t, "Perfecto, te paso info 🔥", harnessOpts{})
	ctx := context.Background()
	msg := "quiero cotizar matafuegos, soy Juan, juan@x.com"

	res := h.orch.Process(ctx, "whatsapp:+5491100000002", msg)
	require.Equal(t, StateDispatched, res.State)
	assert.True(t, res.LeadDispatched)
	assert.Equal(t, dispatch.ConfirmationReply("Juan"), res.Reply)
	assert.Equal(t, "Juan", h.notifier.last.Name)
	assert.Equal(t, "juan@x.com", h.notifier.last.Email)

	for range 3 {
		res = h.orch.Process(ctx, "whatsapp:+5491100000002", msg)
		assert.False(t, res.LeadDispatched)
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, "Perfecto, te paso info 🔥", res.Reply)
	}
	assert.Equal(t, int32(1), h.notifier.calls.Load())
}

func TestProcess_LeadAccumulatesAcrossTurns(t *testing.T) {
	h := newHarness(t, "Claro, ¿me decís tu nombre?", harnessOpts{})
	ctx := context.Background()

	_ = h.orch.Process(ctx, "u2", "Hola")
	res := h.orch.Process(ctx, "u2", "necesito extintores para mi oficina")
	assert.Equal(t, StateDone, res.State)
	assert.Zero(t, h.notifier.calls.Load())

	res = h.orch.Process(ctx, "u2", "me llamo Carla, servicio para la oficina")
	assert.Equal(t, StateDispatched, res.State)
	assert.Equal(t, "Carla", h.notifier.last.Name)
	assert.Equal(t, "necesito extintores para mi oficina", h.notifier.last.Intent)
}

func TestProcess_OutputFlaggedFallsBack(t *testing.T) {
	h := newHarness(t, "respuesta inapropiada", harnessOpts{outputFlagged: true})
	ctx := context.Background()
	_ = h.orch.Process(ctx, "u3", "Hola")

	res := h.orch.Process(ctx, "u3", "quiero cotizar matafuegos, soy Juan, juan@x.com")
	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, guardrails.OutputFallbackReply, res.Reply)
	assert.Zero(t, h.notifier.calls.Load())
}

func TestProcess_GenerationFailureStillReplies(t *testing.T) {
	h := newHarness(t, "", harnessOpts{})
	h.provider.err = errors.New("provider timeout")
	ctx := context.Background()
	_ = h.orch.Process(ctx, "u4", "Hola")

	res := h.orch.Process(ctx, "u4", "precio de la recarga de extintores")
	assert.Equal(t, chat.TechnicalProblemsReply, res.Reply)
	assert.Equal(t, StateDone, res.State)
}

func TestProcess_PanicIsRecovered(t *testing.T) {
	h := newHarness(t, "ok", harnessOpts{retriever: staticRetriever{panic: true}})
	ctx := context.Background()
	_ = h.orch.Process(ctx, "u5", "Hola")

	res := h.orch.Process(ctx, "u5", "precio de matafuegos")
	assert.Equal(t, chat.TechnicalProblemsReply, res.Reply)
	assert.Equal(t, StateFallback, res.State)

	// The keyed lock must have been released.
	done := make(chan Result, 1)
	go func() { done <- h.orch.Process(ctx, "u5", "Hola") }()
	select {
	case r := <-done:
		assert.NotEmpty(t, r.Reply)
	case <-time.After(time.Second):
		t.Fatal("user lock leaked after panic")
	}
}

type brokenStore struct {
	*session.MemoryStore
}

func (brokenStore) IsFirstInteraction(context.Context, string) (bool, error) {
	return false, errors.New("db unavailable")
}

func (brokenStore) Get(context.Context, string) (session.Session, error) {
	return session.Session{}, errors.New("db unavailable")
}

func (brokenStore) Save(context.Context, session.Session) error {
	return errors.New("db unavailable")
}

func TestProcess_StoreFailureTreatedAsNotFirst(t *testing.T) {
	h := newHarness(t, "Tenemos extintores ABC", harnessOpts{store: brokenStore{session.NewMemoryStore(0)}})

	res := h.orch.Process(context.Background(), "u6", "Hola")
	assert.Equal(t, "Tenemos extintores ABC", res.Reply)
	assert.Equal(t, StateDone, res.State)
}

func TestProcess_EmptyMessage(t *testing.T) {
	h := newHarness(t, "x", harnessOpts{})
	res := h.orch.Process(context.Background(), "u7", "   ")
	assert.Equal(t, StateRejected, res.State)
	assert.NotEmpty(t, res.Reply)
}

func TestProcess_ConcurrentSameUserWelcomesOnce(t *testing.T) {
	h := newHarness(t, "respuesta", harnessOpts{})
	var welcomes atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.orch.Process(context.Background(), "same", "Hola").Reply == WelcomeReply {
				welcomes.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), welcomes.Load())
}

func TestNewOrchestrator_RequiresDeps(t *testing.T) {
	_, err := NewOrchestrator(nil, Deps{})
	assert.Error(t, err)
}
