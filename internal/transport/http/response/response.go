// Package response writes the JSON envelope every endpoint answers with and
// turns handler errors into it.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-bff-auth/internal/pkg/apperr"
	"github.com/go-bff-auth/internal/transport/http/upload"
)

const genericMessage = "Something went wrong"

// Envelope is the body of every response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Stack      string `json:"stack,omitempty"`
}

var production atomic.Bool

// SetProduction hides stacks and internal error text when v is true.
func SetProduction(v bool) { production.Store(v) }

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success writes a success envelope. A nil data is sent as an empty object.
func Success(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	JSON(w, status, Envelope{StatusCode: status, Success: status < 400, Message: message, Data: data})
}

// Error normalizes err into an error envelope. Temp uploads of the request are
// removed, 5xx errors are logged at error level and reported to Sentry, the
// rest at warn level.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	upload.Cleanup(ctx)

	status := http.StatusInternalServerError
	message := err.Error()
	if ae, ok := apperr.As(err); ok {
		status = ae.StatusCode()
		message = ae.Message
	} else if production.Load() {
		message = genericMessage
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		status, message = http.StatusRequestEntityTooLarge, "Request body too large"
	}

	attrs := []any{
		"status", status,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimiddleware.GetReqID(ctx),
		"err", err,
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", attrs...)
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		}
	} else {
		slog.WarnContext(ctx, "request rejected", attrs...)
	}

	env := Envelope{StatusCode: status, Message: message}
	if !production.Load() {
		env.Stack = apperr.StackOf(err)
	}
	JSON(w, status, env)
}
