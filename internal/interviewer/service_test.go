package interviewer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mock-interview/internal/api"
	"mock-interview/internal/interview"
	"mock-interview/internal/metrics"
)

type scriptedClient struct {
	replies []string
	err     error
	calls   [][]api.Message
}

func (c *scriptedClient) Complete(ctx context.Context, messages []api.Message) (string, error) {
	c.calls = append(c.calls, messages)
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	out := c.replies[0]
	c.replies = c.replies[1:]
	return out, nil
}

func testSession() *interview.Session {
	return &interview.Session{
		ID: "s1",
		Settings: interview.Settings{
			Industry:      "IT・通信",
			Position:      "エンジニア",
			InterviewType: interview.TypeFirst,
			QuestionCount: 5,
		},
		ResumeContext: "Go developer, 5 years",
	}
}

func TestOpeningUsesResumeContext(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"openingMessage":" こんにちは ","question":"自己紹介をお願いします"}`}}
	m := metrics.NewMetrics()
	svc := New(client, nil, m)

	out, err := svc.Opening(context.Background(), testSession())
	if err != nil {
		t.Fatalf("opening: %v", err)
	}
	if out.OpeningMessage != "こんにちは" || out.Question == "" {
		t.Fatalf("unexpected opening: %+v", out)
	}
	if !strings.Contains(client.calls[0][0].Content, "Go developer") {
		t.Fatalf("system prompt must include resume context")
	}
	if snap := m.GetSnapshot(); snap.APICallsTotal != 1 || snap.APICallsSuccessful != 1 {
		t.Fatalf("metrics not recorded: %+v", snap)
	}
}

func TestEvaluateClampsScores(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"score":140,"categoryScores":{"logic":-5,"content":80,"unknown":50},"goodPoints":["具体的"," "],"improvementPoints":[],"shortFeedback":"良い"}`}}
	svc := New(client, nil, nil)

	ev, err := svc.Evaluate(context.Background(), testSession(), "q", "a", 30)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if ev.Score != 100 {
		t.Fatalf("score not clamped: %d", ev.Score)
	}
	if ev.CategoryScores["logic"] != 0 || ev.CategoryScores["content"] != 80 {
		t.Fatalf("category scores: %+v", ev.CategoryScores)
	}
	if _, ok := ev.CategoryScores["unknown"]; ok {
		t.Fatalf("unknown category must be dropped")
	}
	if len(ev.GoodPoints) != 1 {
		t.Fatalf("blank good points must be dropped: %v", ev.GoodPoints)
	}
}

func TestEvaluateWithoutScoreIsUpstreamFailure(t *testing.T) {
	client := &scriptedClient{replies: []string{`{"shortFeedback":"ok"}`}}
	svc := New(client, nil, nil)

	_, err := svc.Evaluate(context.Background(), testSession(), "q", "a", 30)
	if !errors.Is(err, interview.ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
}

func TestNextQuestionPropagatesClientError(t *testing.T) {
	m := metrics.NewMetrics()
	svc := New(&scriptedClient{err: errors.New("timeout")}, nil, m)

	_, err := svc.NextQuestion(context.Background(), testSession(), 1)
	if !errors.Is(err, interview.ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	if snap := m.GetSnapshot(); snap.APICallsTotal != 1 || snap.APICallsSuccessful != 0 {
		t.Fatalf("failed call must be counted: %+v", snap)
	}
}

func TestPersonaByInterviewType(t *testing.T) {
	svc := New(&scriptedClient{}, nil, nil)
	if p := svc.Persona(interview.TypeFinal); p.Name == "" || p.Role == "" {
		t.Fatalf("empty persona: %+v", p)
	}
}
