package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/idea-scout/internal/retry"
	"github.com/jonathan/idea-scout/internal/schemas"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

// Reasoner is what analysis stages depend on.
type Reasoner interface {
	// Generate returns free text.
	Generate(ctx context.Context, prompt, system string) (string, error)
	// GenerateStructured decodes a schema-valid JSON payload into out.
	GenerateStructured(ctx context.Context, prompt, system, schema string, out any) error
}

// StructuredOutputError is returned when a response cannot be turned into the requested record.
type StructuredOutputError struct {
	Schema string
	Raw    string
	Cause  error
}

func (e *StructuredOutputError) Error() string {
	return fmt.Sprintf("structured output for %s: %v", e.Schema, e.Cause)
}

func (e *StructuredOutputError) Unwrap() error {
	return e.Cause
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Limiter *RateLimiter
	Policy  retry.Policy
	// Timeout bounds each individual provider call. Zero means no per-call bound.
	Timeout time.Duration
	Tier    ModelTier
	Logger  logrus.FieldLogger
}

// Service wraps a Client with the shared rate limiter, retry policy and per-call timeout.
type Service struct {
	client  Client
	limiter *RateLimiter
	policy  retry.Policy
	timeout time.Duration
	tier    ModelTier
	logger  logrus.FieldLogger
}

var _ Reasoner = (*Service)(nil)

// NewService creates a Service. The limiter is shared by every copy returned from WithTier.
func NewService(client Client, opts ServiceOptions) *Service {
	tier := opts.Tier
	if tier == "" {
		tier = TierStandard
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	policy := opts.Policy
	if policy.Logger == nil {
		policy.Logger = logger
	}
	if policy.Retryable == nil {
		policy.Retryable = isTransient
	}
	return &Service{
		client:  client,
		limiter: opts.Limiter,
		policy:  policy,
		timeout: opts.Timeout,
		tier:    tier,
		logger:  logger.WithField("component", "llm"),
	}
}

// WithTier returns a copy that calls the given model tier.
func (s *Service) WithTier(tier ModelTier) *Service {
	c := *s
	c.tier = tier
	return &c
}

// Tier returns the model tier this service calls.
func (s *Service) Tier() ModelTier {
	return s.tier
}

// Generate returns free text from the configured tier.
func (s *Service) Generate(ctx context.Context, prompt, system string) (string, error) {
	var text string
	err := s.policy.Do(ctx, "generate", func(ctx context.Context) error {
		out, err := s.call(ctx, func(ctx context.Context) (string, error) {
			return s.client.GenerateContent(ctx, prompt, system, s.tier)
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ErrEmptyResponse
		}
		text = out
		return nil
	})
	return text, err
}

// GenerateStructured asks for JSON, extracts the object from any surrounding text,
// validates it against the named embedded schema and decodes it into out.
// Malformed or invalid payloads are retried like transport errors.
func (s *Service) GenerateStructured(ctx context.Context, prompt, system, schema string, out any) error {
	schemaText, err := fs.ReadFile(schemafiles.Files, schemas.FileName(schema))
	if err != nil {
		return fmt.Errorf("%w: %s", schemas.ErrUnknownSchema, schema)
	}
	system = structuredSystem(system, string(schemaText))

	return s.policy.Do(ctx, "generate_structured:"+schema, func(ctx context.Context) error {
		raw, err := s.call(ctx, func(ctx context.Context) (string, error) {
			return s.client.GenerateJSON(ctx, prompt, system, s.tier)
		})
		if err != nil {
			return err
		}

		payload, err := ExtractJSONObject(raw)
		if err != nil {
			return &StructuredOutputError{Schema: schema, Raw: raw, Cause: err}
		}
		if err := schemas.ValidateNamed(schema, payload); err != nil {
			return &StructuredOutputError{Schema: schema, Raw: raw, Cause: err}
		}
		if err := json.Unmarshal([]byte(payload), out); err != nil {
			return &StructuredOutputError{Schema: schema, Raw: raw, Cause: err}
		}
		return nil
	})
}

func (s *Service) call(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := fn(callCtx)
	s.logger.WithFields(logrus.Fields{
		"tier":        s.tier,
		"model":       s.client.GetModel(s.tier),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("reasoning call finished")
	return out, err
}

// isTransient retries everything except cancellation of the caller's context.
func isTransient(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, schemas.ErrUnknownSchema)
}

func structuredSystem(system, schemaText string) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString(system)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Return ONLY a JSON object that validates against this JSON Schema. ")
	sb.WriteString("No markdown, no explanation, no code blocks.\n")
	sb.WriteString(schemaText)
	return sb.String()
}
