package httputil

import (
	"encoding/json"
	"net/http"
)

// Friendly messages echoed to callers. Internal error detail is logged
// server-side and never returned, with two exceptions: the content-length
// report and the upstream-unavailable message.
const (
	MsgDefault        = "Something went wrong. Please try again."
	MsgMissingContent = "Please enter some content to generate."
	MsgSanitizeFailed = "Your input contains unsupported patterns. Please rephrase."
	MsgRateLimited    = "You're generating too quickly. Please wait a moment."
	MsgUpstreamError  = "AI service is unavailable. Please try again in a moment."
	MsgTimeout        = "Request timed out. Please try again."
)

// APIError is the error body for every failure response.
type APIError struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{Error: message})
}

func WriteBadRequestError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteRateLimitError(w http.ResponseWriter) {
	WriteError(w, http.StatusTooManyRequests, MsgRateLimited)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message)
}
