package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"resource exhausted", status.Error(codes.ResourceExhausted, "quota"), KindRateLimited},
		{"permission denied", status.Error(codes.PermissionDenied, "bad key"), KindAuth},
		{"unavailable", status.Error(codes.Unavailable, "down"), KindUnavailable},
		{"plain error", errors.New("boom 429 lookalike"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyGeminiError(tt.err)
			if got := KindOf(err); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected cause to be preserved")
			}
		})
	}
}

func TestClassifyBedrockError(t *testing.T) {
	throttled := &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	err := classifyBedrockError(fmt.Errorf("operation error: %w", throttled))
	if !IsRateLimited(err) {
		t.Fatalf("expected throttling to be rate limited, got %v", err)
	}

	denied := &smithy.GenericAPIError{Code: "AccessDeniedException"}
	if got := KindOf(classifyBedrockError(denied)); got != KindAuth {
		t.Fatalf("expected auth kind, got %s", got)
	}
}

func TestContextErrorsAreNotClassified(t *testing.T) {
	if err := classifyGeminiError(context.Canceled); err != context.Canceled {
		t.Fatalf("expected context error unchanged, got %v", err)
	}
	if err := classifyBedrockError(context.DeadlineExceeded); err != context.DeadlineExceeded {
		t.Fatalf("expected context error unchanged, got %v", err)
	}
}

func TestIsRateLimitedIgnoresMessages(t *testing.T) {
	if IsRateLimited(errors.New("HTTP 429 resource_exhausted")) {
		t.Fatalf("unstructured errors must not be treated as rate limits")
	}
	if !IsRateLimited(fmt.Errorf("wrapped: %w", &ProviderError{Provider: "gemini", Kind: KindRateLimited, StatusCode: 429})) {
		t.Fatalf("expected wrapped provider error to be detected")
	}
}
