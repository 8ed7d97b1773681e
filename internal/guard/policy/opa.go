// Package policy evaluates an optional Rego content policy after the
// heuristic guard has passed. Policies can gate on the requested persona,
// tone, content size, or time of day without a rebuild.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/draftly-app/draftly/internal/config"
	"github.com/draftly-app/draftly/internal/types"
	"github.com/open-policy-agent/opa/rego"
)

// Input is the document sent to OPA for evaluation.
type Input struct {
	Request Request `json:"request"`
	Time    Time    `json:"time"`
}

type Request struct {
	Persona      string `json:"persona"`
	Tone         string `json:"tone"`
	Length       string `json:"length"`
	EmojiLevel   string `json:"emoji_level"`
	ContentChars int    `json:"content_chars"`
}

type Time struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// Evaluator compiles and runs the content policy. Call Load before use.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
}

func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load reads every .rego file in the bundle path and compiles the result.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	entries, err := os.ReadDir(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("read policy dir: %w", err)
	}
	modules := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".rego" {
			continue
		}
		src, err := os.ReadFile(filepath.Join(cfg.BundlePath, entry.Name()))
		if err != nil {
			return fmt.Errorf("read policy %s: %w", entry.Name(), err)
		}
		modules[entry.Name()] = string(src)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", cfg.BundlePath)
		return nil
	}
	return e.LoadFromModules(modules)
}

// LoadFromModules compiles policies from provided module sources (useful for testing).
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	opts := []func(*rego.Rego){
		rego.Query("[data.draftly.policy.allow, data.draftly.policy.reason]"),
	}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy against the given input. Returns allow, reason.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		// Enabled but nothing loaded — fail closed
		return false, "no policies loaded", nil
	}

	cfg := e.cfg()
	timeout := cfg.EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}

	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %v", err), err
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}

	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)

	return allowed, reason, nil
}

// Check evaluates the policy for a generation request with sanitized content.
// A disabled evaluator always allows. Evaluation errors fail closed.
func (e *Evaluator) Check(ctx context.Context, req *types.GenerateRequest, content string) (bool, string) {
	if !e.Enabled() {
		return true, ""
	}

	now := time.Now().UTC()
	input := Input{
		Request: Request{
			Persona:      req.Persona,
			Tone:         req.Tone,
			Length:       req.Length,
			EmojiLevel:   req.EmojiLevel,
			ContentChars: utf8.RuneCountInString(content),
		},
		Time: Time{
			Hour: now.Hour(),
			Day:  now.Weekday().String(),
		},
	}

	allowed, reason, err := e.Evaluate(ctx, input)
	if err != nil {
		slog.Error("policy evaluation failed", "error", err)
		return false, "policy evaluation failed"
	}
	if !allowed {
		return false, reason
	}
	return true, ""
}
