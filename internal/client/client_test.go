package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mock-interview/internal/interview"
	"mock-interview/internal/session"
)

func TestClientRoundTrip(t *testing.T) {
	var gotUser string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = r.Header.Get(userHeader)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/interview/next":
			w.Write([]byte(`{"questionIndex":1,"question":"次","transition":"では"}`))
		case "/api/interview/session":
			w.Write([]byte(`{"sessionId":"` + r.URL.Query().Get("sessionId") + `","currentIndex":3}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "u1")
	res, err := c.Next(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if res.QuestionIndex != 1 || res.Transition != "では" {
		t.Fatalf("unexpected %+v", res)
	}
	if gotUser != "u1" || gotBody["sessionId"] != "s1" || gotBody["currentQuestionIndex"] != float64(0) {
		t.Fatalf("request: user=%s body=%v", gotUser, gotBody)
	}

	sess, err := c.Session(context.Background(), "a b")
	if err != nil || sess.ID != "a b" || sess.CurrentIndex != 3 {
		t.Fatalf("session: %+v %v", sess, err)
	}
}

func TestClientMapsErrorCodes(t *testing.T) {
	tests := []struct {
		status int
		code   string
		want   error
	}{
		{http.StatusConflict, "invalid_state", interview.ErrInvalidState},
		{http.StatusNotFound, "not_found", interview.ErrNotFound},
		{http.StatusTooManyRequests, "quota_exceeded", interview.ErrQuotaExceeded},
		{http.StatusBadGateway, "upstream_failure", interview.ErrUpstream},
		{http.StatusBadRequest, "empty_answer", interview.ErrEmptyAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"code":"` + tt.code + `","message":"details"}}`))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "u1").Evaluate(context.Background(), session.EvaluateInput{SessionID: "s1", Answer: "a"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "u1").Summarize(context.Background(), "s1")
	if err == nil || errors.Is(err, interview.ErrNotFound) {
		t.Fatalf("want plain error, got %v", err)
	}
}
