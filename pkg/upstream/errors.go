package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirouk/responses-proxy/pkg/api"
)

// maxErrorBodyBytes bounds how much of a non-2xx response body is read
// before the connection is abandoned.
const maxErrorBodyBytes = 10 * 1024

const truncatedSuffix = "... (truncated)"

// MapHTTPError converts a non-2xx backend HTTP response into an APIError.
// The caller is responsible for closing resp.Body.
func MapHTTPError(resp *http.Response) *api.APIError {
	body := ExtractErrorMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return api.NewInvalidRequestError("", body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return api.NewServerError("backend authentication failed").WithCode("backend_error")
	case http.StatusNotFound:
		return api.NewNotFoundError(body).WithCode("model_not_found")
	case http.StatusTooManyRequests:
		return api.NewTooManyRequestsError(body)
	default:
		if resp.StatusCode >= 500 {
			return api.NewServerError(fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, body)).WithCode("backend_error")
		}
		return api.NewServerError(fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, body)).WithCode("backend_error")
	}
}

// MapNetworkError converts a transport-level failure (connection refused,
// timeout, DNS failure) into an APIError.
func MapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("failed to reach backend: %s", err.Error())).WithCode("backend_error")
}

// ExtractErrorMessage reads up to maxErrorBodyBytes of body, truncating with
// a trailing marker if more remains, and returns either the parsed
// ChatErrorResponse message or the raw body text.
func ExtractErrorMessage(body io.Reader) string {
	limited := io.LimitReader(body, maxErrorBodyBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return "failed to read error body"
	}

	truncated := false
	if len(data) > maxErrorBodyBytes {
		data = data[:maxErrorBodyBytes]
		truncated = true
	}

	var errResp ChatErrorResponse
	if jsonErr := json.Unmarshal(data, &errResp); jsonErr == nil && errResp.Error.Message != "" {
		msg := errResp.Error.Message
		if truncated {
			msg += truncatedSuffix
		}
		return msg
	}

	text := string(data)
	if truncated {
		text += truncatedSuffix
	}
	return text
}
