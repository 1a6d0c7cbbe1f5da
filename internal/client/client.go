// Package client вызывает HTTP API интервью.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mock-interview/internal/interview"
	"mock-interview/internal/quota"
	"mock-interview/internal/resume"
	"mock-interview/internal/session"
)

const userHeader = "X-User-ID"

// StartRequest - параметры новой сессии
type StartRequest struct {
	Settings        interview.Settings `json:"settings"`
	ResumeData      string             `json:"resumeData,omitempty"`
	DiagnosisResult json.RawMessage    `json:"diagnosisResult,omitempty"`
	ResumeFile      *resume.File       `json:"resumeFile,omitempty"`
}

// Client - HTTP клиент API сессий
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// New создает клиент для сервера baseURL от имени userID
func New(baseURL, userID string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userID:     userID,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithHTTPClient подменяет http.Client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Start создает сессию
func (c *Client) Start(ctx context.Context, req StartRequest) (*session.StartResult, error) {
	var out session.StartResult
	if err := c.do(ctx, http.MethodPost, "/api/interview/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Next запрашивает следующий вопрос
func (c *Client) Next(ctx context.Context, sessionID string, currentIndex int) (*session.NextResult, error) {
	body := map[string]any{"sessionId": sessionID, "currentQuestionIndex": currentIndex}
	var out session.NextResult
	if err := c.do(ctx, http.MethodPost, "/api/interview/next", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate отправляет ответ на оценку
func (c *Client) Evaluate(ctx context.Context, in session.EvaluateInput) (*interview.Evaluation, error) {
	body := map[string]any{
		"sessionId":      in.SessionID,
		"questionIndex":  in.QuestionIndex,
		"question":       in.Question,
		"answer":         in.Answer,
		"answerDuration": in.DurationSeconds,
	}
	var out interview.Evaluation
	if err := c.do(ctx, http.MethodPost, "/api/interview/evaluate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summarize завершает сессию и возвращает итог
func (c *Client) Summarize(ctx context.Context, sessionID string) (*interview.Session, error) {
	var out interview.Session
	body := map[string]string{"sessionId": sessionID}
	if err := c.do(ctx, http.MethodPost, "/api/interview/summary", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session возвращает текущее состояние сессии
func (c *Client) Session(ctx context.Context, sessionID string) (*interview.Session, error) {
	var out interview.Session
	path := "/api/interview/session?sessionId=" + url.QueryEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quota возвращает остаток месячной квоты
func (c *Client) Quota(ctx context.Context) (*quota.Status, error) {
	var out quota.Status
	if err := c.do(ctx, http.MethodGet, "/api/interview/quota", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// do выполняет запрос. Ошибки API превращаются обратно в ошибки interview.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(userHeader, c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil || eb.Error.Code == "" {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return interview.FromCode(eb.Error.Code, eb.Error.Message)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
