package llm

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/idea-scout/internal/retry"
	schemafiles "github.com/jonathan/idea-scout/schemas"
)

// MockLLMClient implements Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt, system string, tier ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt, system string, tier ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt, system string, tier ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, system, tier)
	}
	return "mock text", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt, system string, tier ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, system, tier)
	}
	return `{}`, nil
}

func (m *MockLLMClient) GetModel(_ ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts}
}

func TestService_Generate_RetriesTransientFailures(t *testing.T) {
	var calls int32
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, prompt, system string, tier ModelTier) (string, error) {
			n := atomic.AddInt32(&calls, 1)
			assert.Equal(t, "prompt", prompt)
			assert.Equal(t, "system", system)
			assert.Equal(t, TierAdvanced, tier)
			if n < 3 {
				return "", errors.New("429 too many requests")
			}
			return "the answer", nil
		},
	}

	svc := NewService(client, ServiceOptions{Policy: fastPolicy(5), Logger: quietLogger()}).WithTier(TierAdvanced)
	text, err := svc.Generate(context.Background(), "prompt", "system")

	require.NoError(t, err)
	assert.Equal(t, "the answer", text)
	assert.Equal(t, int32(3), calls)
}

func TestService_Generate_EmptyResponseIsRetriedThenFails(t *testing.T) {
	var calls int32
	client := &MockLLMClient{
		GenerateContentFunc: func(context.Context, string, string, ModelTier) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "   ", nil
		},
	}

	svc := NewService(client, ServiceOptions{Policy: fastPolicy(2), Logger: quietLogger()})
	_, err := svc.Generate(context.Background(), "p", "s")

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, int32(2), calls)
}

func TestService_Generate_AppliesPerCallTimeout(t *testing.T) {
	client := &MockLLMClient{
		GenerateContentFunc: func(ctx context.Context, _, _ string, _ ModelTier) (string, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return "ok", nil
		},
	}

	svc := NewService(client, ServiceOptions{Policy: fastPolicy(1), Timeout: time.Minute, Logger: quietLogger()})
	_, err := svc.Generate(context.Background(), "p", "s")
	require.NoError(t, err)
}

func TestService_GenerateStructured_ExtractsAndValidates(t *testing.T) {
	var systemSeen string
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _, system string, _ ModelTier) (string, error) {
			systemSeen = system
			return "Sure!\n```json\n{\"is_valid\": false, \"rejection_reason\": \"a question\"}\n```", nil
		},
	}

	var out struct {
		IsValid         bool   `json:"is_valid"`
		RejectionReason string `json:"rejection_reason"`
	}
	svc := NewService(client, ServiceOptions{Policy: fastPolicy(1), Logger: quietLogger()})
	require.NoError(t, svc.GenerateStructured(context.Background(), "p", "be strict", schemafiles.Validation, &out))

	assert.False(t, out.IsValid)
	assert.Equal(t, "a question", out.RejectionReason)
	assert.True(t, strings.HasPrefix(systemSeen, "be strict"))
	assert.Contains(t, systemSeen, `"rejection_reason"`)
}

func TestService_GenerateStructured_RetriesSchemaViolations(t *testing.T) {
	responses := []string{
		`not json at all`,
		`{"competitors": []}`,
		`{"competitors": [{"name": "Acme"}], "market_saturation": "high", "differentiation_opportunities": [], "barriers_to_entry": [], "summary": "crowded"}`,
	}
	var calls int32
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, string, ModelTier) (string, error) {
			n := atomic.AddInt32(&calls, 1)
			return responses[n-1], nil
		},
	}

	var out struct {
		MarketSaturation string `json:"market_saturation"`
	}
	svc := NewService(client, ServiceOptions{Policy: fastPolicy(5), Logger: quietLogger()})
	require.NoError(t, svc.GenerateStructured(context.Background(), "p", "", schemafiles.CompetitorAnalysis, &out))

	assert.Equal(t, "high", out.MarketSaturation)
	assert.Equal(t, int32(3), calls)
}

func TestService_GenerateStructured_ExhaustedReturnsStructuredOutputError(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, string, ModelTier) (string, error) {
			return `{"market_maturity": "booming"}`, nil
		},
	}

	var out map[string]any
	svc := NewService(client, ServiceOptions{Policy: fastPolicy(2), Logger: quietLogger()})
	err := svc.GenerateStructured(context.Background(), "p", "", schemafiles.MarketResearch, &out)

	require.Error(t, err)
	var structErr *StructuredOutputError
	require.ErrorAs(t, err, &structErr)
	assert.Equal(t, schemafiles.MarketResearch, structErr.Schema)
	assert.Contains(t, structErr.Raw, "booming")
}

func TestService_GenerateStructured_UnknownSchemaFailsFast(t *testing.T) {
	var calls int32
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, string, ModelTier) (string, error) {
			atomic.AddInt32(&calls, 1)
			return `{}`, nil
		},
	}

	var out map[string]any
	err := NewService(client, ServiceOptions{Policy: fastPolicy(3), Logger: quietLogger()}).
		GenerateStructured(context.Background(), "p", "", "does_not_exist", &out)
	require.Error(t, err)
	assert.Equal(t, int32(0), calls)
}

func TestService_UsesSharedLimiter(t *testing.T) {
	limiter, clock := newTestLimiter(60)
	client := &MockLLMClient{}

	base := NewService(client, ServiceOptions{Policy: fastPolicy(1), Limiter: limiter, Logger: quietLogger()})
	lite := base.WithTier(TierLite)

	_, err := base.Generate(context.Background(), "a", "")
	require.NoError(t, err)
	_, err = lite.Generate(context.Background(), "b", "")
	require.NoError(t, err)

	assert.Equal(t, TierLite, lite.Tier())
	assert.Equal(t, TierStandard, base.Tier())
	assert.Equal(t, []time.Duration{time.Second}, clock.waits)
}

func TestService_CancelledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	client := &MockLLMClient{
		GenerateContentFunc: func(context.Context, string, string, ModelTier) (string, error) {
			atomic.AddInt32(&calls, 1)
			cancel()
			return "", context.Canceled
		},
	}

	_, err := NewService(client, ServiceOptions{Policy: fastPolicy(5), Logger: quietLogger()}).Generate(ctx, "p", "")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls)
}
