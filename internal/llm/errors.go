package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/smithy-go"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrMissingAPIKey is returned when no provider credential is available for
// the calling user.
var ErrMissingAPIKey = errors.New("llm: no model api key configured")

// ErrorKind classifies provider failures so callers never inspect messages.
type ErrorKind string

const (
	KindRateLimited    ErrorKind = "rate_limited"
	KindAuth           ErrorKind = "auth"
	KindUnavailable    ErrorKind = "unavailable"
	KindInvalidRequest ErrorKind = "invalid_request"
	KindUnknown        ErrorKind = "unknown"
)

// ProviderError is a structured failure from a model provider.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm: %s %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm: %s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err carries a provider rate limit signal.
func IsRateLimited(err error) bool {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind == KindRateLimited
	}
	return false
}

// KindOf returns the provider error kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

func kindFromHTTP(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusBadRequest || code == http.StatusNotFound || code == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case code >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

func kindFromGRPC(code codes.Code) ErrorKind {
	switch code {
	case codes.ResourceExhausted:
		return KindRateLimited
	case codes.Unauthenticated, codes.PermissionDenied:
		return KindAuth
	case codes.InvalidArgument, codes.NotFound, codes.FailedPrecondition:
		return KindInvalidRequest
	case codes.Unavailable, codes.Internal, codes.DeadlineExceeded:
		return KindUnavailable
	default:
		return KindUnknown
	}
}

// classifyGeminiError maps google api errors (REST or gRPC transport) to a
// ProviderError. Context errors are returned unchanged.
func classifyGeminiError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	perr := &ProviderError{Provider: "gemini", Kind: KindUnknown, Err: err}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if code := apiErr.HTTPCode(); code > 0 {
			perr.StatusCode = code
			perr.Kind = kindFromHTTP(code)
			return perr
		}
		if st := apiErr.GRPCStatus(); st != nil {
			perr.Kind = kindFromGRPC(st.Code())
			return perr
		}
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		perr.Kind = kindFromGRPC(st.Code())
	}
	return perr
}

// classifyBedrockError maps smithy API errors from the Converse API.
func classifyBedrockError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	perr := &ProviderError{Provider: "bedrock", Kind: KindUnknown, Err: err}

	var withStatus interface{ HTTPStatusCode() int }
	if errors.As(err, &withStatus) {
		perr.StatusCode = withStatus.HTTPStatusCode()
		perr.Kind = kindFromHTTP(perr.StatusCode)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException", "TooManyRequestsException":
			perr.Kind = KindRateLimited
		case "AccessDeniedException", "UnrecognizedClientException":
			perr.Kind = KindAuth
		case "ValidationException", "ResourceNotFoundException":
			perr.Kind = KindInvalidRequest
		case "ServiceUnavailableException", "ModelNotReadyException", "InternalServerException", "ModelTimeoutException":
			perr.Kind = KindUnavailable
		}
	}
	return perr
}

// ParseError reports model output that is not valid JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("llm: model output is not valid json: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports JSON that parsed but does not match the requested schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "llm: model output failed schema validation: " + strings.Join(e.Problems, "; ")
}
