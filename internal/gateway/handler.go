// Package gateway orchestrates the generation pipeline: validation, input
// guard, optional content policy, prompt build, upstream call, and the
// mapping of every failure onto the stable caller-facing error set.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/draftly-app/draftly/internal/guard"
	"github.com/draftly-app/draftly/internal/guard/policy"
	"github.com/draftly-app/draftly/internal/httputil"
	"github.com/draftly-app/draftly/internal/prompt"
	"github.com/draftly-app/draftly/internal/telemetry"
	"github.com/draftly-app/draftly/internal/types"
	"github.com/draftly-app/draftly/internal/upstream"
)

// Generator abstracts the upstream client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Handler holds dependencies for the generation HTTP handlers.
type Handler struct {
	sanitizer *guard.Sanitizer
	policy    *policy.Evaluator
	builder   *prompt.Builder
	generator Generator
	metrics   *telemetry.Metrics
}

func NewHandler(sanitizer *guard.Sanitizer, pol *policy.Evaluator, builder *prompt.Builder, generator Generator, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		sanitizer: sanitizer,
		policy:    pol,
		builder:   builder,
		generator: generator,
		metrics:   metrics,
	}
}

// Generate handles POST /generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, receivedAt, http.StatusBadRequest, httputil.MsgDefault)
		return
	}
	defer r.Body.Close()

	slog.Info("received generate request",
		"request_id", reqID,
		"persona", req.Persona,
		"tone", req.Tone,
	)

	if strings.TrimSpace(req.Content) == "" {
		h.fail(w, receivedAt, http.StatusBadRequest, httputil.MsgMissingContent)
		return
	}

	content, err := h.sanitizer.Sanitize(req.Content)
	if err != nil {
		var tooLong *guard.TooLongError
		switch {
		case errors.As(err, &tooLong):
			slog.Warn("content too long", "request_id", reqID, "length", tooLong.Length)
			if h.metrics != nil {
				h.metrics.RecordGuardBlock("too_long")
			}
			h.fail(w, receivedAt, http.StatusBadRequest,
				fmt.Sprintf("Content is too long. Maximum %d characters allowed.", tooLong.Max))
		case errors.Is(err, guard.ErrInjectionDetected):
			slog.Warn("input rejected by guard", "request_id", reqID, "error", err)
			if h.metrics != nil {
				h.metrics.RecordGuardBlock("injection")
			}
			h.fail(w, receivedAt, http.StatusBadRequest, httputil.MsgSanitizeFailed)
		default:
			slog.Error("sanitize failed", "request_id", reqID, "error", err)
			h.fail(w, receivedAt, http.StatusInternalServerError, httputil.MsgDefault)
		}
		return
	}

	if h.policy != nil {
		if allowed, reason := h.policy.Check(r.Context(), &req, content); !allowed {
			slog.Warn("request blocked by policy", "request_id", reqID, "reason", reason)
			if h.metrics != nil {
				h.metrics.RecordGuardBlock("policy")
			}
			h.fail(w, receivedAt, http.StatusBadRequest, httputil.MsgSanitizeFailed)
			return
		}
	}

	built := h.builder.Build(content,
		prompt.ParsePersona(req.Persona),
		prompt.ParseTone(req.Tone),
		prompt.ParseLength(req.Length),
		prompt.ParseEmojiLevel(req.EmojiLevel),
	)

	output, err := h.generator.Generate(r.Context(), built)
	if err != nil {
		h.failUpstream(w, reqID, receivedAt, err)
		return
	}

	slog.Info("request completed",
		"request_id", reqID,
		"persona", req.Persona,
		"tone", req.Tone,
		"content_chars", len(content),
		"output_chars", len(output),
		"duration_ms", time.Since(receivedAt).Milliseconds(),
		"status_code", http.StatusOK,
	)

	h.record(http.StatusOK, receivedAt)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.GenerateResponse{Output: output})
}

// failUpstream maps upstream failures onto caller-facing errors. Raw
// upstream detail stays in the logs.
func (h *Handler) failUpstream(w http.ResponseWriter, reqID string, receivedAt time.Time, err error) {
	var ue *upstream.Error
	switch {
	case errors.Is(err, upstream.ErrTimeout):
		slog.Error("upstream timed out", "request_id", reqID, "error", err)
		h.fail(w, receivedAt, http.StatusInternalServerError, httputil.MsgTimeout)
	case errors.As(err, &ue):
		slog.Error("upstream request failed", "request_id", reqID, "status", ue.Status, "error", err)
		h.fail(w, receivedAt, http.StatusInternalServerError, httputil.MsgUpstreamError)
	default:
		slog.Error("generation failed", "request_id", reqID, "error", err)
		h.fail(w, receivedAt, http.StatusInternalServerError, httputil.MsgDefault)
	}
}

func (h *Handler) fail(w http.ResponseWriter, receivedAt time.Time, status int, message string) {
	h.record(status, receivedAt)
	httputil.WriteError(w, status, message)
}

func (h *Handler) record(status int, receivedAt time.Time) {
	if h.metrics != nil {
		h.metrics.RecordRequest(strconv.Itoa(status), float64(time.Since(receivedAt).Milliseconds()))
	}
}

// Health handles GET /health. It never consults the upstream.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
