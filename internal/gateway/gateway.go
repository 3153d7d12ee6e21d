// Package gateway exposes the HTTP surface: the REST JSON API and the
// server-rendered index page.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/basket/go-study/internal/config"
	"github.com/basket/go-study/internal/engine"
	"github.com/basket/go-study/internal/persistence"
	"github.com/basket/go-study/internal/planner"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

type Config struct {
	Store     *persistence.Store
	Assistant engine.Assistant
	Planner   *planner.Service
	Logger    *slog.Logger

	// AgentName is shown on the rendered index page.
	AgentName string

	CORS config.CORSConfig

	// ConfigFingerprint is the hash of the active config exposed in healthz.
	ConfigFingerprint string

	// MaxBodyBytes caps request body size. Zero uses the default.
	MaxBodyBytes int64

	Tracer trace.Tracer
}

type Server struct {
	cfg Config
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = nooptrace.NewTracerProvider().Tracer("gostudy")
	}
	return &Server{cfg: cfg}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/tasks", s.handleTasks)
	mux.HandleFunc("/api/tasks/", s.handleTaskByID)
	mux.HandleFunc("/api/generate-plan", s.handleGeneratePlan)
	mux.HandleFunc("/api/stats", s.handleStats)

	var handler http.Handler = mux
	handler = RequestSizeLimitMiddleware(s.cfg.MaxBodyBytes)(handler)
	handler = NewCORSMiddleware(s.cfg.CORS)(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	dbOK := s.cfg.Store.Ping(r.Context()) == nil
	payload := map[string]any{
		"healthy":            dbOK,
		"db_ok":              dbOK,
		"config_fingerprint": s.cfg.ConfigFingerprint,
	}
	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, payload)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	// A missing or malformed body is treated like a missing message.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		payload.Message = ""
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "No message provided")
		return
	}

	ctx, span := s.cfg.Tracer.Start(r.Context(), "gateway.chat")
	defer span.End()

	// The user turn is persisted before the assistant call; a degraded
	// assistant reply still gets paired below.
	if err := s.cfg.Store.SaveChat(ctx, "user", message); err != nil {
		s.cfg.Logger.Error("save user chat message failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	reply := s.cfg.Assistant.GenerateResponse(ctx, message)

	if err := s.cfg.Store.SaveChat(ctx, "agent", reply); err != nil {
		s.cfg.Logger.Error("save agent chat message failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save response")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks, err := s.cfg.Store.ListTasks(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if tasks == nil {
			tasks = []persistence.Task{}
		}
		writeJSON(w, http.StatusOK, tasks)

	case http.MethodPost:
		var payload struct {
			Subject     string `json:"subject"`
			Description string `json:"description"`
			Deadline    string `json:"deadline"`
			Category    string `json:"category"`
			Priority    string `json:"priority"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(payload.Subject) == "" {
			writeError(w, http.StatusBadRequest, "Subject is required")
			return
		}
		err := s.cfg.Store.AddTask(r.Context(), persistence.NewTask{
			Subject:     payload.Subject,
			Description: payload.Description,
			Deadline:    payload.Deadline,
			Category:    payload.Category,
			Priority:    payload.Priority,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task added successfully"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleTaskByID routes /api/tasks/{id}, /api/tasks/{id}/complete,
// /api/tasks/{id}/uncomplete, and /api/tasks/{id}/suggest-subtasks.
func (s *Server) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodPut:
			s.updateTask(w, r, id)
		case http.MethodDelete:
			if err := s.cfg.Store.DeleteTask(r.Context(), id); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	case "complete":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.cfg.Store.MarkComplete(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task marked complete"})

	case "uncomplete":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := s.cfg.Store.MarkIncomplete(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Task marked incomplete"})

	case "suggest-subtasks":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		ctx, span := s.cfg.Tracer.Start(r.Context(), "gateway.suggest_subtasks")
		defer span.End()
		subtasks, err := s.cfg.Planner.SuggestSubtasks(ctx, id)
		if errors.Is(err, persistence.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to generate subtasks")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"subtasks": subtasks})

	default:
		writeError(w, http.StatusNotFound, "unknown task action")
	}
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request, id int64) {
	var payload struct {
		Subject     *string `json:"subject"`
		Description *string `json:"description"`
		Deadline    *string `json:"deadline"`
		Category    *string `json:"category"`
		Priority    *string `json:"priority"`
		Completed   *bool   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := s.cfg.Store.UpdateTask(r.Context(), id, persistence.TaskUpdate{
		Subject:     payload.Subject,
		Description: payload.Description,
		Deadline:    payload.Deadline,
		Category:    payload.Category,
		Priority:    payload.Priority,
		Completed:   payload.Completed,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated"})
}

func (s *Server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx, span := s.cfg.Tracer.Start(r.Context(), "gateway.generate_plan")
	defer span.End()

	plan, err := s.cfg.Planner.GeneratePlan(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"plan": plan})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.cfg.Store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
