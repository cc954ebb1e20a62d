package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/guardchat/orchestrator/domain"
	"github.com/guardchat/orchestrator/guardrails"
	"github.com/guardchat/orchestrator/llm"
	"github.com/guardchat/orchestrator/policy"
	"github.com/guardchat/orchestrator/store"
	"github.com/guardchat/orchestrator/telemetry"
	"github.com/guardchat/orchestrator/tests/helpers"
)

// fakeGuard returns canned outcomes per direction and records calls.
type fakeGuard struct {
	outcomes map[domain.Direction]domain.GuardrailsOutcome
	calls    []domain.Direction
}

func (f *fakeGuard) Classify(ctx context.Context, content string, direction domain.Direction) domain.GuardrailsOutcome {
	f.calls = append(f.calls, direction)
	return f.outcomes[direction]
}

var _ guardrails.Classifier = (*fakeGuard)(nil)

// fakeInvoker returns a canned reply and records the history it was given.
type fakeInvoker struct {
	reply   string
	err     error
	calls   int
	history []domain.ChatMessage
}

func (f *fakeInvoker) Invoke(ctx context.Context, modelID string, history []domain.ChatMessage) (string, error) {
	f.calls++
	f.history = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

var _ llm.Invoker = (*fakeInvoker)(nil)

// failingStore wraps a real store and fails selected operations.
type failingStore struct {
	store.Store
	failAppend  bool
	failHistory bool
}

func (f *failingStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if f.failAppend {
		return errors.New("disk on fire")
	}
	return f.Store.AppendMessage(ctx, msg)
}

func (f *failingStore) History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	if f.failHistory {
		return nil, errors.New("disk on fire")
	}
	return f.Store.History(ctx, sessionID)
}

func allClear() map[domain.Direction]domain.GuardrailsOutcome {
	return map[domain.Direction]domain.GuardrailsOutcome{
		domain.DirectionInput:  {},
		domain.DirectionOutput: {},
	}
}

func newTestService(t *testing.T, st store.Store, guard guardrails.Classifier, invoker llm.Invoker) *Service {
	t.Helper()
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return New(st, guard, invoker, engine, telemetry.NewNoopTracer(), zap.NewNop())
}

func TestProcessTurnHappyPath(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	guard := &fakeGuard{outcomes: allClear()}
	invoker := &fakeInvoker{reply: "Hi there"}
	svc := newTestService(t, st, guard, invoker)

	resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		Message: "Hello",
		ModelID: "model-A",
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	if resp.Message.Role != domain.RoleAssistant || resp.Message.Content != "Hi there" {
		t.Fatalf("unexpected message: %+v", resp.Message)
	}
	if resp.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	if resp.GuardrailsScores == nil || *resp.GuardrailsScores != (domain.GuardrailsScores{}) {
		t.Fatalf("expected zero scores, got %+v", resp.GuardrailsScores)
	}
	if len(guard.calls) != 2 || guard.calls[0] != domain.DirectionInput || guard.calls[1] != domain.DirectionOutput {
		t.Fatalf("unexpected screening calls: %v", guard.calls)
	}

	history, err := st.History(context.Background(), resp.SessionID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user and assistant persisted, got %d", len(history))
	}
	if history[0].Role != domain.RoleUser || history[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles: %+v", history)
	}
}

func TestProcessTurnGeneratesUniqueSessionIDs(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, &fakeInvoker{reply: "ok"})

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{Message: "Hello", ModelID: "m"})
		if err != nil {
			t.Fatalf("ProcessTurn failed: %v", err)
		}
		if resp.SessionID == "" || seen[resp.SessionID] {
			t.Fatalf("session id not unique: %q", resp.SessionID)
		}
		seen[resp.SessionID] = true
	}
}

func TestProcessTurnEchoesSuppliedSessionID(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, &fakeInvoker{reply: "ok"})

	resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "caller-session",
		Message:   "Hello",
		ModelID:   "m",
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if resp.SessionID != "caller-session" {
		t.Fatalf("session id = %q, want caller-session", resp.SessionID)
	}
}

func TestProcessTurnRejectsFilteredInput(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	guard := &fakeGuard{outcomes: map[domain.Direction]domain.GuardrailsOutcome{
		domain.DirectionInput: {ContentFilterResults: domain.ContentFilterResults{
			Hateful: domain.ContentFilterResult{Filtered: true, Score: 1.0},
		}},
	}}
	invoker := &fakeInvoker{reply: "should never happen"}
	svc := newTestService(t, st, guard, invoker)

	resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "slurs",
		ModelID:   "m",
	})
	if resp != nil {
		t.Fatalf("expected no response, got %+v", resp)
	}

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.SessionID != "s1" {
		t.Fatalf("rejected session id = %q, want s1", rejected.SessionID)
	}
	if rejected.Scores.Hateful != 1.0 {
		t.Fatalf("rejected scores = %+v, want hateful 1.0", rejected.Scores)
	}

	// The model is never invoked and nothing is persisted.
	if invoker.calls != 0 {
		t.Fatalf("model invoked %d times for rejected input", invoker.calls)
	}
	history, _ := st.History(context.Background(), "s1")
	if len(history) != 0 {
		t.Fatalf("rejected turn persisted messages: %+v", history)
	}
}

func TestProcessTurnSubstitutesFilteredOutput(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	guard := &fakeGuard{outcomes: map[domain.Direction]domain.GuardrailsOutcome{
		domain.DirectionInput: {},
		domain.DirectionOutput: {ContentFilterResults: domain.ContentFilterResults{
			Harmful: domain.ContentFilterResult{Filtered: true, Score: 0.7},
		}},
	}}
	invoker := &fakeInvoker{reply: "dangerous instructions"}
	svc := newTestService(t, st, guard, invoker)

	resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "Hello",
		ModelID:   "m",
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	// The user still gets a response; the content is the refusal, never the
	// raw model output, and the output scores are surfaced.
	if resp.Message.Content != RefusalMessage {
		t.Fatalf("content = %q, want refusal", resp.Message.Content)
	}
	if resp.GuardrailsScores.Harmful != 0.7 {
		t.Fatalf("scores = %+v, want harmful 0.7", resp.GuardrailsScores)
	}

	history, _ := st.History(context.Background(), "s1")
	if len(history) != 2 || history[1].Content != RefusalMessage {
		t.Fatalf("stored assistant message should be the refusal: %+v", history)
	}
}

func TestProcessTurnDeduplicatesSuppliedHistory(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	invoker := &fakeInvoker{reply: "ok"}
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, invoker)

	_, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "Hello",
		ModelID:   "m",
		History: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "earlier question"},
			{Role: domain.RoleAssistant, Content: "earlier answer"},
			{Role: domain.RoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	count := 0
	for _, m := range invoker.history {
		if m.Role == domain.RoleUser && m.Content == "Hello" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one current user message in history, got %d", count)
	}
}

func TestProcessTurnAppendsMessageMissingFromHistory(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	invoker := &fakeInvoker{reply: "ok"}
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, invoker)

	_, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "Hello",
		ModelID:   "m",
		History: []domain.ChatMessage{
			{Role: domain.RoleUser, Content: "earlier question"},
		},
	})
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	last := invoker.history[len(invoker.history)-1]
	if last.Role != domain.RoleUser || last.Content != "Hello" {
		t.Fatalf("current message not appended: %+v", invoker.history)
	}
}

func TestProcessTurnFatalOnModelError(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	invoker := &fakeInvoker{err: errors.New("timeout")}
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, invoker)

	_, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "Hello",
		ModelID:   "m",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		t.Fatalf("model error must not look like a policy rejection")
	}

	// The user message is persisted, but no assistant message.
	history, _ := st.History(context.Background(), "s1")
	if len(history) != 1 || history[0].Role != domain.RoleUser {
		t.Fatalf("unexpected history after model failure: %+v", history)
	}
}

func TestProcessTurnFatalOnWriteFailure(t *testing.T) {
	st := &failingStore{Store: helpers.NewTestSQLiteStore(t), failAppend: true}
	invoker := &fakeInvoker{reply: "ok"}
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, invoker)

	_, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "Hello",
		ModelID:   "m",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if invoker.calls != 0 {
		t.Fatalf("model invoked after failed user persistence")
	}
}

func TestProcessTurnDegradesOnReadFailure(t *testing.T) {
	st := &failingStore{Store: helpers.NewTestSQLiteStore(t), failHistory: true}
	invoker := &fakeInvoker{reply: "ok"}
	svc := newTestService(t, st, &fakeGuard{outcomes: allClear()}, invoker)

	resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		SessionID: "s1",
		Message:   "Hello",
		ModelID:   "m",
	})
	if err != nil {
		t.Fatalf("read failure must not abort the turn: %v", err)
	}
	if resp.Message.Content != "ok" {
		t.Fatalf("unexpected reply: %+v", resp.Message)
	}
	// Degraded history still carries the current message.
	if len(invoker.history) != 1 || invoker.history[0].Content != "Hello" {
		t.Fatalf("unexpected assembled history: %+v", invoker.history)
	}
}

func TestProcessTurnFailsOpenOnClassifierError(t *testing.T) {
	st := helpers.NewTestSQLiteStore(t)
	guard := &fakeGuard{outcomes: map[domain.Direction]domain.GuardrailsOutcome{
		domain.DirectionInput:  {Error: "content classifier unreachable; screening skipped"},
		domain.DirectionOutput: {Error: "content classifier unreachable; screening skipped"},
	}}
	invoker := &fakeInvoker{reply: "Hi there"}
	svc := newTestService(t, st, guard, invoker)

	resp, err := svc.ProcessTurn(context.Background(), &domain.ChatRequest{
		Message: "Hello",
		ModelID: "m",
	})
	if err != nil {
		t.Fatalf("degraded classifier must not block the turn: %v", err)
	}
	if resp.Message.Content != "Hi there" {
		t.Fatalf("unexpected reply: %+v", resp.Message)
	}
}
