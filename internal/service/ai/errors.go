package ai

import (
	"context"
	"errors"
	"fmt"
	"net"

	goopenai "github.com/meguminnnnnnnnn/go-openai"
	arkmodel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"google.golang.org/genai"
)

// ErrGeneratorUnavailable 表示没有可用的生成后端。
var ErrGeneratorUnavailable = errors.New("generator unavailable")

// UpstreamError is a non-success response from the remote service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps network failures and timeouts.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Kind names the failure category for logs and metrics.
func Kind(err error) string {
	var upstream *UpstreamError
	var transport *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &upstream):
		return "upstream"
	case errors.As(err, &transport):
		return "transport"
	case errors.Is(err, ErrGeneratorUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}

// classifyError maps SDK errors onto the two failure categories. API errors
// keep the status code and message the remote service sent.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var upstream *UpstreamError
	var transport *TransportError
	if errors.As(err, &upstream) || errors.As(err, &transport) {
		return err
	}

	if status, body, ok := apiErrorDetails(err); ok {
		return &UpstreamError{StatusCode: status, Body: body}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransportError{Err: err}
	}
	return &UpstreamError{StatusCode: 502, Body: err.Error()}
}

// apiErrorDetails extracts the HTTP status and message from the error types
// of the OpenAI-compatible, Ark and Gemini SDKs.
func apiErrorDetails(err error) (int, string, bool) {
	var oaiAPI *goopenai.APIError
	if errors.As(err, &oaiAPI) && oaiAPI.HTTPStatusCode != 0 {
		return oaiAPI.HTTPStatusCode, oaiAPI.Message, true
	}
	var oaiReq *goopenai.RequestError
	if errors.As(err, &oaiReq) && oaiReq.HTTPStatusCode != 0 {
		return oaiReq.HTTPStatusCode, requestErrorBody(oaiReq.Err), true
	}

	var arkAPI *arkmodel.APIError
	if errors.As(err, &arkAPI) && arkAPI.HTTPStatusCode != 0 {
		return arkAPI.HTTPStatusCode, arkAPI.Message, true
	}
	var arkReq *arkmodel.RequestError
	if errors.As(err, &arkReq) && arkReq.HTTPStatusCode != 0 {
		return arkReq.HTTPStatusCode, requestErrorBody(arkReq.Err), true
	}

	var gemini genai.APIError
	if errors.As(err, &gemini) && gemini.Code != 0 {
		return gemini.Code, gemini.Message, true
	}
	var geminiPtr *genai.APIError
	if errors.As(err, &geminiPtr) && geminiPtr.Code != 0 {
		return geminiPtr.Code, geminiPtr.Message, true
	}
	return 0, "", false
}

func requestErrorBody(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
