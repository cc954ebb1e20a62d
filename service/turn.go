package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guardchat/orchestrator/domain"
	"github.com/guardchat/orchestrator/policy"
	"github.com/guardchat/orchestrator/telemetry"
)

// RefusalMessage replaces assistant output that fails screening. Output
// screening only ever substitutes content; once the model has been invoked
// the turn always completes.
const RefusalMessage = "I can't share that response. Let's talk about something else."

// RejectedError is returned when input screening blocks a turn. Nothing is
// persisted and the model is never invoked.
type RejectedError struct {
	SessionID string
	Scores    domain.GuardrailsScores
}

func (e *RejectedError) Error() string {
	return "message blocked by content policy"
}

// ProcessTurn runs one user turn through the full pipeline: input screening,
// user persistence, history assembly, model invocation, output screening and
// assistant persistence.
func (s *Service) ProcessTurn(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	// Session ids are always minted server-side; a caller-supplied id is kept
	// for continuity only.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := s.tracer.Start(ctx, "chat.turn")
	defer span.End()
	span.SetAttributes(
		telemetry.AttrSessionID.String(sessionID),
		telemetry.AttrModelID.String(req.ModelID),
	)

	userMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Content:   req.Message,
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
	}

	inputOutcome := s.guard.Classify(ctx, req.Message, domain.DirectionInput)
	if inputOutcome.Error != "" {
		s.logger.Warn("input screening degraded",
			zap.String("session_id", sessionID),
			zap.String("error", inputOutcome.Error))
	}
	decision, err := s.policy.Evaluate(ctx, domain.DirectionInput, inputOutcome.ContentFilterResults)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to evaluate moderation policy: %w", err)
	}
	if decision == policy.DecisionBlock {
		span.SetAttributes(telemetry.AttrFiltered.Bool(true))
		return nil, &RejectedError{SessionID: sessionID, Scores: inputOutcome.ContentFilterResults.Scores()}
	}

	// Losing the user's own message breaks auditability, so a write failure
	// ends the turn.
	if err := s.appendMessage(ctx, &userMsg); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	history := s.assembleHistory(ctx, req, userMsg)

	reply, err := s.invoker.Invoke(ctx, req.ModelID, history)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	outputOutcome := s.guard.Classify(ctx, reply, domain.DirectionOutput)
	if outputOutcome.Error != "" {
		s.logger.Warn("output screening degraded",
			zap.String("session_id", sessionID),
			zap.String("error", outputOutcome.Error))
	}
	content := reply
	decision, err = s.policy.Evaluate(ctx, domain.DirectionOutput, outputOutcome.ContentFilterResults)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to evaluate moderation policy: %w", err)
	}
	if decision == policy.DecisionBlock {
		span.SetAttributes(telemetry.AttrFiltered.Bool(true))
		content = RefusalMessage
	}

	assistantMsg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		SessionID: sessionID,
	}
	if err := s.appendMessage(ctx, &assistantMsg); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	scores := outputOutcome.ContentFilterResults.Scores()
	return &domain.ChatResponse{
		Message:          assistantMsg,
		SessionID:        sessionID,
		GuardrailsScores: &scores,
	}, nil
}

// assembleHistory uses the caller-supplied history when present, otherwise
// reads the stored session, degrading to an empty history when the read
// fails. The current user message is appended unless the history already
// carries it; matching is exact on role and content.
func (s *Service) assembleHistory(ctx context.Context, req *domain.ChatRequest, userMsg domain.ChatMessage) []domain.ChatMessage {
	var history []domain.ChatMessage
	if len(req.History) > 0 {
		history = req.History
	} else {
		readCtx, span := s.tracer.Start(ctx, "store.history")
		stored, err := s.store.History(readCtx, userMsg.SessionID)
		if err != nil {
			telemetry.RecordError(span, err)
			s.logger.Warn("history read failed, continuing without history",
				zap.String("session_id", userMsg.SessionID),
				zap.Error(err))
		} else {
			history = stored
		}
		span.End()
	}

	for _, m := range history {
		if m.Role == domain.RoleUser && m.Content == userMsg.Content {
			return history
		}
	}
	return append(history, userMsg)
}

func (s *Service) appendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "store.append")
	defer span.End()
	span.SetAttributes(telemetry.AttrRole.String(string(msg.Role)))

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}
