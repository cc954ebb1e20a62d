// Package service implements the turn orchestration pipeline.
package service

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/guardchat/orchestrator/guardrails"
	"github.com/guardchat/orchestrator/llm"
	"github.com/guardchat/orchestrator/policy"
	"github.com/guardchat/orchestrator/store"
)

// Service sequences one chat turn through screening, persistence, model
// invocation and response assembly.
type Service struct {
	store   store.Store
	guard   guardrails.Classifier
	invoker llm.Invoker
	policy  *policy.Engine
	tracer  trace.Tracer
	logger  *zap.Logger
}

// New creates a new service.
func New(store store.Store, guard guardrails.Classifier, invoker llm.Invoker, policyEngine *policy.Engine, tracer trace.Tracer, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		guard:   guard,
		invoker: invoker,
		policy:  policyEngine,
		tracer:  tracer,
		logger:  logger,
	}
}
