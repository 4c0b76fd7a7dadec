package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/etltoolbox/internal/core"
	"github.com/JonMunkholm/etltoolbox/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errBadRequest marks malformed requests (REQ001).
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// respondError logs err with the request context and writes the mapped
// user message with a status derived from its code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		err = fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
	}

	msg := core.MapError(err)
	status := statusFor(msg.Code)
	if errors.Is(err, errBadRequest) {
		msg = core.UserMessage{Message: strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "), Code: "REQ001"}
		status = http.StatusBadRequest
	}

	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code string) int {
	switch {
	case code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case strings.HasPrefix(code, "FILE"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "LBL"):
		return http.StatusUnprocessableEntity
	case code == "PRF001":
		return http.StatusNotFound
	case code == "RUN001":
		return http.StatusServiceUnavailable
	case code == "RUN002":
		return http.StatusBadRequest
	case code == "RUN003":
		return http.StatusGatewayTimeout
	case code == "DB005":
		return http.StatusConflict
	case strings.HasPrefix(code, "DB"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.URL.Query().Get("output") == "json"
}
