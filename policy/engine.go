// Package policy decides what happens to a screened message.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/guardchat/orchestrator/domain"
)

// Decisions the policy can return.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Engine evaluates the moderation policy over normalized guardrail results.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.moderation.decision"),
		rego.Module("moderation.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the decision for one screened message. An empty or
// unexpected result defaults to allow so a broken policy cannot take the
// service down.
func (e *Engine) Evaluate(ctx context.Context, direction domain.Direction, results domain.ContentFilterResults) (string, error) {
	input := map[string]interface{}{
		"direction": string(direction),
		"categories": map[string]interface{}{
			"harmful": categoryInput(results.Harmful),
			"hateful": categoryInput(results.Hateful),
			"sexual":  categoryInput(results.Sexual),
			"toxic":   categoryInput(results.Toxic),
		},
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := rs[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

func categoryInput(r domain.ContentFilterResult) map[string]interface{} {
	return map[string]interface{}{
		"filtered": r.Filtered,
		"score":    r.Score,
	}
}

// DefaultPolicy blocks a message when any canonical category carries a
// blocking verdict, for both screening directions.
const DefaultPolicy = `
package moderation

default decision = "allow"

decision = "block" {
	input.categories[_].filtered
}
`
