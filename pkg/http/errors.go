package http

import (
	"encoding/json"
	"net/http"
)

// InternalErrorMessage is the only body a client sees for an unexpected failure.
const InternalErrorMessage = "Something went wrong. Please try again later."

// WriteError writes a plain-text error page with the given status code.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(message))
}

func WriteForbidden(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "Forbidden")
}

func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func WriteTooManyRequests(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, "Too Many Requests")
}

// WriteInternalError never includes error details; callers log them.
func WriteInternalError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, InternalErrorMessage)
}

// WriteJSON encodes v with the given status. Used by the health probe.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
