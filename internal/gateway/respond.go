package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the uniform JSON response shape.
type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// pagination describes a windowed list response.
type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (s *Server) respond(w http.ResponseWriter, status int, data any, page *pagination) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		Success:    status < http.StatusBadRequest,
		Data:       data,
		Pagination: page,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
