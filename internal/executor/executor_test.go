package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mock-interview/internal/client"
	"mock-interview/internal/interview"
	"mock-interview/internal/quota"
	"mock-interview/internal/session"
)

type fakeBackend struct {
	mu            sync.Mutex
	count         int
	index         int
	remaining     int
	startCalls    int
	nextCalls     int
	evalCalls     int
	summaryCalls  int
	lastEval      session.EvaluateInput
	evalErr       error
	nextErr       error
	evalGate      chan struct{}
	serverSession *interview.Session
}

func newFakeBackend(count int) *fakeBackend {
	return &fakeBackend{count: count, remaining: 1}
}

func (f *fakeBackend) Quota(ctx context.Context) (*quota.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &quota.Status{Remaining: f.remaining, Limit: 1, Period: "2026-03"}, nil
}

func (f *fakeBackend) Start(ctx context.Context, req client.StartRequest) (*session.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return &session.StartResult{
		SessionID:      "s1",
		OpeningMessage: "よろしくお願いします。",
		FirstQuestion:  interview.Question{ID: 1, Question: "質問1"},
		QuestionCount:  f.count,
	}, nil
}

func (f *fakeBackend) Next(ctx context.Context, id string, idx int) (*session.NextResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCalls++
	if f.nextErr != nil {
		err := f.nextErr
		f.nextErr = nil
		return nil, err
	}
	if idx != f.index {
		return nil, interview.ErrInvalidState
	}
	if idx+1 >= f.count {
		f.index = f.count
		return &session.NextResult{IsComplete: true}, nil
	}
	f.index++
	return &session.NextResult{QuestionIndex: f.index, Question: fmt.Sprintf("質問%d", f.index+1), Transition: "ありがとうございます。"}, nil
}

func (f *fakeBackend) Evaluate(ctx context.Context, in session.EvaluateInput) (*interview.Evaluation, error) {
	f.mu.Lock()
	gate := f.evalGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.evalCalls++
	f.lastEval = in
	if f.evalErr != nil {
		err := f.evalErr
		f.evalErr = nil
		return nil, err
	}
	return &interview.Evaluation{Score: 80, ShortFeedback: "良い回答です"}, nil
}

func (f *fakeBackend) Summarize(ctx context.Context, id string) (*interview.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	return &interview.Session{ID: id, Summary: &interview.Summary{TotalScore: 80, Grade: "A"}}, nil
}

func (f *fakeBackend) Session(ctx context.Context, id string) (*interview.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.serverSession != nil {
		return f.serverSession, nil
	}
	return nil, interview.ErrNotFound
}

func (f *fakeBackend) calls() (start, next, eval, summary int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls, f.nextCalls, f.evalCalls, f.summaryCalls
}

// blockingSpeech говорит до Cancel и слушает до Stop
type blockingSpeech struct {
	speaking   chan string
	cancel     chan struct{}
	stop       chan struct{}
	transcript string
	once       sync.Once
}

func newBlockingSpeech() *blockingSpeech {
	return &blockingSpeech{
		speaking: make(chan string, 10),
		cancel:   make(chan struct{}),
		stop:     make(chan struct{}, 1),
	}
}

func (s *blockingSpeech) IsSupported() bool { return true }

func (s *blockingSpeech) Speak(ctx context.Context, text string) error {
	s.speaking <- text
	select {
	case <-s.cancel:
		return errors.New("cancelled")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *blockingSpeech) Listen(ctx context.Context) (string, error) {
	select {
	case <-s.stop:
		return s.transcript, nil
	case <-s.cancel:
		return "", errors.New("cancelled")
	}
}

func (s *blockingSpeech) Stop() { s.stop <- struct{}{} }

func (s *blockingSpeech) Cancel() { s.once.Do(func() { close(s.cancel) }) }

// instantSpeech сразу заканчивает реплики и возвращает заданный текст
type instantSpeech struct {
	spoken     []string
	transcript string
	stopped    chan struct{}
}

func (s *instantSpeech) IsSupported() bool { return true }
func (s *instantSpeech) Speak(ctx context.Context, text string) error {
	s.spoken = append(s.spoken, text)
	return nil
}
func (s *instantSpeech) Listen(ctx context.Context) (string, error) {
	<-s.stopped
	return s.transcript, nil
}
func (s *instantSpeech) Stop()   { s.stopped <- struct{}{} }
func (s *instantSpeech) Cancel() {}

func startReq() client.StartRequest {
	return client.StartRequest{Settings: interview.Settings{Industry: "IT・通信", Position: "エンジニア", InterviewType: interview.TypeFirst, QuestionCount: 2}}
}

func answer(t *testing.T, e *Executor, text string) {
	t.Helper()
	if err := e.StartAnswering(context.Background()); err != nil {
		t.Fatalf("start answering: %v", err)
	}
	if err := e.SubmitAnswer(context.Background(), text); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

func TestTextModeFullInterview(t *testing.T) {
	b := newFakeBackend(2)
	e := New(b, nil)
	ctx := context.Background()

	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if e.State() != StateReadyToAnswer {
		t.Fatalf("want ready-to-answer, got %s", e.State())
	}

	answer(t, e, "チームで改善に取り組みました。")
	v := e.View()
	if v.State != StateFeedback || v.Feedback == nil || v.Feedback.Evaluation.Score != 80 {
		t.Fatalf("feedback view: %+v", v)
	}

	if err := e.NextQuestion(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	v = e.View()
	if v.State != StateReadyToAnswer || v.QuestionIndex != 1 || v.Question != "質問2" || v.Feedback != nil {
		t.Fatalf("second question view: %+v", v)
	}

	answer(t, e, "粘り強さです。")
	if err := e.NextQuestion(ctx); err != nil {
		t.Fatalf("final next: %v", err)
	}

	v = e.View()
	if v.State != StateComplete || v.Result == nil || v.Result.Summary.Grade != "A" {
		t.Fatalf("complete view: %+v", v)
	}
	if _, _, eval, summary := b.calls(); eval != 2 || summary != 1 {
		t.Fatalf("calls: eval=%d summary=%d", eval, summary)
	}
}

func TestEmptyAnswerStaysLocal(t *testing.T) {
	b := newFakeBackend(2)
	e := New(b, nil)
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := e.StartAnswering(ctx); err != nil {
		t.Fatalf("start answering: %v", err)
	}

	err := e.SubmitAnswer(ctx, "   ")
	if !errors.Is(err, interview.ErrEmptyAnswer) {
		t.Fatalf("want ErrEmptyAnswer, got %v", err)
	}
	if _, _, eval, _ := b.calls(); eval != 0 {
		t.Fatal("empty answer must not reach the network")
	}
	if e.State() != StateListening {
		t.Fatalf("want listening, got %s", e.State())
	}
}

func TestEvaluateFailureStillReachesFeedback(t *testing.T) {
	b := newFakeBackend(2)
	b.evalErr = interview.Upstream("evaluate", errors.New("timeout"))
	e := New(b, nil)
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := e.StartAnswering(ctx); err != nil {
		t.Fatalf("start answering: %v", err)
	}

	err := e.SubmitAnswer(ctx, "回答")
	if !errors.Is(err, interview.ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
	v := e.View()
	if v.State != StateFeedback || v.Feedback == nil || v.Feedback.Err == nil || v.Feedback.Evaluation != nil {
		t.Fatalf("feedback must carry the error: %+v", v)
	}

	if err := e.RetryEvaluation(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	v = e.View()
	if v.Feedback.Err != nil || v.Feedback.Evaluation == nil {
		t.Fatalf("retry must produce evaluation: %+v", v.Feedback)
	}
	if b.lastEval.Answer != "回答" {
		t.Fatalf("retry must resend the last answer, got %q", b.lastEval.Answer)
	}
}

func TestQuotaExhaustedBlocksStart(t *testing.T) {
	b := newFakeBackend(2)
	b.remaining = 0
	e := New(b, nil)

	err := e.Begin(context.Background(), startReq())
	if !errors.Is(err, interview.ErrQuotaExceeded) {
		t.Fatalf("want ErrQuotaExceeded, got %v", err)
	}
	if !e.View().QuotaExhausted {
		t.Fatal("quota notice must be shown")
	}
	if start, _, _, _ := b.calls(); start != 0 {
		t.Fatal("start must not be called without quota")
	}
	if e.State() != StateInit {
		t.Fatalf("want init, got %s", e.State())
	}
}

func TestSkipGoesStraightToNext(t *testing.T) {
	b := newFakeBackend(3)
	e := New(b, nil)
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	if err := e.Skip(ctx); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if _, next, eval, _ := b.calls(); next != 1 || eval != 0 {
		t.Fatalf("skip calls: next=%d eval=%d", next, eval)
	}
	if v := e.View(); v.QuestionIndex != 1 || v.State != StateReadyToAnswer {
		t.Fatalf("after skip: %+v", v)
	}

	if err := e.NextQuestion(ctx); !errors.Is(err, ErrWrongState) {
		t.Fatalf("next without feedback must be refused: %v", err)
	}
}

func TestEndDuringSpeechSummarizes(t *testing.T) {
	b := newFakeBackend(5)
	sp := newBlockingSpeech()
	e := New(b, sp)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- e.Begin(ctx, startReq()) }()

	<-sp.speaking
	if e.State() != StateSpeakingAI {
		t.Fatalf("want speaking-ai, got %s", e.State())
	}

	if err := e.End(ctx); err != nil {
		t.Fatalf("end: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("begin: %v", err)
	}

	v := e.View()
	if v.State != StateComplete || v.Result == nil {
		t.Fatalf("end must produce result: %+v", v)
	}
	if _, _, _, summary := b.calls(); summary != 1 {
		t.Fatalf("want one summarize, got %d", summary)
	}
}

func TestEndRefusedWhileEvaluating(t *testing.T) {
	b := newFakeBackend(2)
	b.evalGate = make(chan struct{})
	e := New(b, nil)
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := e.StartAnswering(ctx); err != nil {
		t.Fatalf("start answering: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.SubmitAnswer(ctx, "回答") }()

	deadline := time.Now().Add(2 * time.Second)
	for e.State() != StateEvaluating {
		if time.Now().After(deadline) {
			t.Fatal("never reached evaluating")
		}
		time.Sleep(time.Millisecond)
	}

	if err := e.End(ctx); !errors.Is(err, ErrWrongState) {
		t.Fatalf("end while evaluating: %v", err)
	}
	close(b.evalGate)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if e.State() != StateFeedback {
		t.Fatalf("want feedback, got %s", e.State())
	}
}

func TestInvalidStateResyncs(t *testing.T) {
	b := newFakeBackend(5)
	e := New(b, nil)
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// the server already moved on (e.g. the next call was retried by another tab)
	b.nextErr = fmt.Errorf("%w: stale", interview.ErrInvalidState)
	b.serverSession = &interview.Session{
		ID:        "s1",
		Settings:  interview.Settings{QuestionCount: 5},
		Questions: []interview.Question{{ID: 1, Question: "質問1"}, {ID: 2, Question: "質問2"}, {ID: 3, Question: "質問3"}},
		Answers: []interview.Answer{
			{QuestionIndex: 0, Skipped: true},
			{QuestionIndex: 1, Evaluation: &interview.Evaluation{Score: 60}},
		},
		CurrentIndex: 2,
	}

	if err := e.Skip(ctx); err != nil {
		t.Fatalf("skip: %v", err)
	}
	v := e.View()
	if v.State != StateReadyToAnswer || v.QuestionIndex != 2 || v.Question != "質問3" {
		t.Fatalf("resync view: %+v", v)
	}
}

func TestAnswerDurationFromReady(t *testing.T) {
	b := newFakeBackend(2)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	e := New(b, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	now = now.Add(10 * time.Second)
	if err := e.StartAnswering(ctx); err != nil {
		t.Fatalf("start answering: %v", err)
	}
	now = now.Add(35 * time.Second)
	if err := e.SubmitAnswer(ctx, "回答"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.lastEval.DurationSeconds != 45 {
		t.Fatalf("want 45s, got %d", b.lastEval.DurationSeconds)
	}
}

func TestSpeechTranscriptUsed(t *testing.T) {
	b := newFakeBackend(2)
	sp := &instantSpeech{transcript: " 音声の回答です ", stopped: make(chan struct{}, 1)}
	e := New(b, sp)
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if len(sp.spoken) != 2 {
		t.Fatalf("opening and question must be spoken: %v", sp.spoken)
	}

	answer(t, e, "")
	if b.lastEval.Answer != "音声の回答です" {
		t.Fatalf("transcript not submitted: %q", b.lastEval.Answer)
	}
}

func TestEmptyTranscriptKeepsListening(t *testing.T) {
	b := newFakeBackend(2)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	sp := &instantSpeech{stopped: make(chan struct{}, 1)}
	e := New(b, sp).WithClock(func() time.Time { return now })
	ctx := context.Background()
	if err := e.Begin(ctx, startReq()); err != nil {
		t.Fatalf("begin: %v", err)
	}

	now = now.Add(5 * time.Second)
	if err := e.StartAnswering(ctx); err != nil {
		t.Fatalf("start answering: %v", err)
	}
	now = now.Add(20 * time.Second)
	if err := e.SubmitAnswer(ctx, ""); !errors.Is(err, interview.ErrEmptyAnswer) {
		t.Fatalf("want ErrEmptyAnswer, got %v", err)
	}
	if e.State() != StateListening {
		t.Fatalf("want listening after empty transcript, got %s", e.State())
	}

	sp.transcript = "二度目の回答です"
	now = now.Add(15 * time.Second)
	if err := e.SubmitAnswer(ctx, ""); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if b.lastEval.Answer != "二度目の回答です" || b.lastEval.DurationSeconds != 40 {
		t.Fatalf("evaluate input: %+v", b.lastEval)
	}
}

func TestActionsRefusedOutOfOrder(t *testing.T) {
	e := New(newFakeBackend(2), nil)
	ctx := context.Background()
	if err := e.StartAnswering(ctx); !errors.Is(err, ErrWrongState) {
		t.Fatalf("start answering in init: %v", err)
	}
	if err := e.SubmitAnswer(ctx, "x"); !errors.Is(err, ErrWrongState) {
		t.Fatalf("submit in init: %v", err)
	}
	if err := e.Skip(ctx); !errors.Is(err, ErrWrongState) {
		t.Fatalf("skip in init: %v", err)
	}
}
