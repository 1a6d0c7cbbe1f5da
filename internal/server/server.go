// Package server публикует операции сессии интервью по HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"mock-interview/internal/config"
	"mock-interview/internal/interview"
	"mock-interview/internal/metrics"
	"mock-interview/internal/quota"
	"mock-interview/internal/resume"
	"mock-interview/internal/session"
)

// UserHeader - заголовок с идентификатором пользователя
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Sessions - операции контроллера, доступные по HTTP
type Sessions interface {
	Start(ctx context.Context, in session.StartInput) (*session.StartResult, error)
	Next(ctx context.Context, userID, sessionID string, currentIndex int) (*session.NextResult, error)
	Evaluate(ctx context.Context, in session.EvaluateInput) (*interview.Evaluation, error)
	Summarize(ctx context.Context, userID, sessionID string) (*interview.Session, error)
	Get(ctx context.Context, userID, sessionID string) (*interview.Session, error)
	QuotaStatus(ctx context.Context, userID string) (quota.Status, error)
}

// Server представляет HTTP сервер интервью
type Server struct {
	sessions  Sessions
	metrics   *metrics.Metrics
	config    config.ServerConfig
	server    *http.Server
	startTime time.Time
}

// New создает новый сервер
func New(sessions Sessions, m *metrics.Metrics, cfg config.ServerConfig) *Server {
	return &Server{
		sessions:  sessions,
		metrics:   m,
		config:    cfg,
		startTime: time.Now(),
	}
}

// Handler возвращает маршруты API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/interview/start", s.handleStart)
	mux.HandleFunc("POST /api/interview/next", s.handleNext)
	mux.HandleFunc("POST /api/interview/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /api/interview/summary", s.handleSummary)
	mux.HandleFunc("POST /api/interview/summary", s.handleSummary)
	mux.HandleFunc("GET /api/interview/session", s.handleSession)
	mux.HandleFunc("GET /api/interview/quota", s.handleQuota)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	return mux
}

// Start запускает сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("🌐 Starting interview API on http://localhost:%d", s.config.Port)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает сервер, дожидаясь активных запросов
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type startRequest struct {
	Settings        interview.Settings `json:"settings"`
	ResumeData      json.RawMessage    `json:"resumeData,omitempty"`
	DiagnosisResult json.RawMessage    `json:"diagnosisResult,omitempty"`
	ResumeFile      *resume.File       `json:"resumeFile,omitempty"`
}

type nextRequest struct {
	SessionID            string `json:"sessionId"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
}

type evaluateRequest struct {
	SessionID      string `json:"sessionId"`
	QuestionIndex  int    `json:"questionIndex"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	AnswerDuration int    `json:"answerDuration"`
}

type summaryRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req startRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.sessions.Start(r.Context(), session.StartInput{
		UserID:        userID,
		Settings:      req.Settings,
		ResumeText:    rawText(req.ResumeData),
		ResumeFile:    req.ResumeFile,
		DiagnosisText: rawText(req.DiagnosisResult),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req nextRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.sessions.Next(r.Context(), userID, req.SessionID, req.CurrentQuestionIndex)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req evaluateRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.sessions.Evaluate(r.Context(), session.EvaluateInput{
		UserID:          userID,
		SessionID:       req.SessionID,
		QuestionIndex:   req.QuestionIndex,
		Question:        req.Question,
		Answer:          req.Answer,
		DurationSeconds: req.AnswerDuration,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if r.Method == http.MethodPost && sessionID == "" {
		var req summaryRequest
		if !decode(w, r, &req) {
			return
		}
		sessionID = req.SessionID
	}

	res, err := s.sessions.Summarize(r.Context(), userID, sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := s.sessions.Get(r.Context(), userID, r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := s.sessions.QuotaStatus(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStatus - health check с метриками
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
		"metrics": s.metrics.GetSnapshot(),
	})
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(UserHeader))
	if userID == "" {
		writeErrorBody(w, http.StatusUnauthorized, "unauthorized", UserHeader+" header is required")
		return "", false
	}
	return userID, true
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "bad_request", "invalid JSON request: "+err.Error())
		return false
	}
	return true
}

// rawText превращает строку JSON в текст, а объект оставляет как есть
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
