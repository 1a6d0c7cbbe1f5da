// Package executor ведет один интервью-ход на стороне кандидата: озвучить
// вопрос, принять ответ, отправить на оценку, показать отзыв, перейти дальше.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"mock-interview/internal/client"
	"mock-interview/internal/interview"
	"mock-interview/internal/quota"
	"mock-interview/internal/session"
)

// State - состояние хода
type State string

const (
	StateInit          State = "init"
	StateSpeakingAI    State = "speaking-ai"
	StateReadyToAnswer State = "ready-to-answer"
	StateListening     State = "listening"
	StateEvaluating    State = "evaluating"
	StateFeedback      State = "feedback"
	StateComplete      State = "complete"
)

// ErrWrongState - действие недоступно в текущем состоянии
var ErrWrongState = errors.New("action is not available in the current state")

// Backend - HTTP контракт контроллера сессий
type Backend interface {
	Start(ctx context.Context, req client.StartRequest) (*session.StartResult, error)
	Next(ctx context.Context, sessionID string, currentIndex int) (*session.NextResult, error)
	Evaluate(ctx context.Context, in session.EvaluateInput) (*interview.Evaluation, error)
	Summarize(ctx context.Context, sessionID string) (*interview.Session, error)
	Session(ctx context.Context, sessionID string) (*interview.Session, error)
	Quota(ctx context.Context) (*quota.Status, error)
}

// Feedback - результат оценки ответа или ошибка, если оценка не удалась
type Feedback struct {
	QuestionIndex int
	Evaluation    *interview.Evaluation
	Err           error
}

// View - то, что показывает интерфейс
type View struct {
	State          State
	SessionID      string
	Interviewer    interview.InterviewerProfile
	OpeningMessage string
	QuestionIndex  int
	QuestionCount  int
	Question       string
	Transition     string
	Feedback       *Feedback
	Elapsed        time.Duration
	Result         *interview.Session
	QuotaExhausted bool
}

type listenResult struct {
	text string
	err  error
}

// Executor - однопоточный кооперативный автомат. Действия пользователя
// вызываются по очереди; End может прервать озвучку из другой горутины.
// Сетевые вызовы сериализованы через netMu.
type Executor struct {
	backend Backend
	speech  Speech
	now     func() time.Time

	netMu sync.Mutex

	mu            sync.Mutex
	state         State
	sessionID     string
	interviewer   interview.InterviewerProfile
	opening       string
	index         int
	count         int
	question      string
	transition    string
	answerStarted time.Time
	lastAnswer    string
	feedback      *Feedback
	result        *interview.Session
	quotaNotice   bool
	listenCh      chan listenResult
}

// New создает автомат. При speech == nil используется текстовый режим.
func New(backend Backend, speech Speech) *Executor {
	if speech == nil {
		speech = TextOnly{}
	}
	return &Executor{
		backend: backend,
		speech:  speech,
		now:     time.Now,
		state:   StateInit,
	}
}

// WithClock подменяет источник времени
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// State возвращает текущее состояние
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// View возвращает снимок для отображения
func (e *Executor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Executor) viewLocked() View {
	v := View{
		State:          e.state,
		SessionID:      e.sessionID,
		Interviewer:    e.interviewer,
		OpeningMessage: e.opening,
		QuestionIndex:  e.index,
		QuestionCount:  e.count,
		Question:       e.question,
		Transition:     e.transition,
		Feedback:       e.feedback,
		Result:         e.result,
		QuotaExhausted: e.quotaNotice,
	}
	if e.state == StateReadyToAnswer || e.state == StateListening {
		v.Elapsed = e.now().Sub(e.answerStarted)
	}
	return v
}

// setState вызывается под mu. Таймер ответа стартует при входе в ready-to-answer.
func (e *Executor) setState(s State) {
	e.state = s
	if s == StateReadyToAnswer {
		e.answerStarted = e.now()
	}
}

// Begin проверяет квоту, создает сессию и озвучивает первый вопрос
func (e *Executor) Begin(ctx context.Context, req client.StartRequest) error {
	e.mu.Lock()
	if e.state != StateInit {
		e.mu.Unlock()
		return ErrWrongState
	}
	e.mu.Unlock()

	res, err := e.start(ctx, req)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.state == StateComplete {
		e.mu.Unlock()
		return nil
	}
	e.interviewer = res.InterviewerProfile
	e.opening = res.OpeningMessage
	e.count = res.QuestionCount
	e.index = 0
	e.question = res.FirstQuestion.Question
	e.transition = ""
	e.setState(StateSpeakingAI)
	e.mu.Unlock()

	e.speak(ctx, res.OpeningMessage, res.FirstQuestion.Question)
	return nil
}

func (e *Executor) start(ctx context.Context, req client.StartRequest) (*session.StartResult, error) {
	e.netMu.Lock()
	defer e.netMu.Unlock()

	status, err := e.backend.Quota(ctx)
	if err != nil {
		return nil, err
	}
	if status.Remaining <= 0 {
		e.mu.Lock()
		e.quotaNotice = true
		e.mu.Unlock()
		return nil, interview.ErrQuotaExceeded
	}

	res, err := e.backend.Start(ctx, req)
	if err != nil {
		if errors.Is(err, interview.ErrQuotaExceeded) {
			e.mu.Lock()
			e.quotaNotice = true
			e.mu.Unlock()
		}
		return nil, err
	}

	// sessionID сохраняется под netMu, чтобы End увидел созданную сессию
	e.mu.Lock()
	e.sessionID = res.SessionID
	e.mu.Unlock()
	return res, nil
}

// speak озвучивает реплики и переводит автомат к ответу.
// Если интервью уже завершено, ничего не меняет.
func (e *Executor) speak(ctx context.Context, lines ...string) {
	if e.speech.IsSupported() {
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := e.speech.Speak(ctx, line); err != nil {
				if e.State() != StateComplete {
					log.Printf("⚠️ Speech synthesis interrupted: %v", err)
				}
				break
			}
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateSpeakingAI {
		e.setState(StateReadyToAnswer)
	}
}

// StartAnswering начинает прием ответа. При наличии распознавания речи
// запускает его, иначе ждет текст в SubmitAnswer.
func (e *Executor) StartAnswering(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateReadyToAnswer {
		return ErrWrongState
	}

	if e.speech.IsSupported() {
		e.listenLocked(ctx)
	}
	e.setState(StateListening)
	return nil
}

// listenLocked запускает распознавание речи. Вызывается под mu.
func (e *Executor) listenLocked(ctx context.Context) {
	ch := make(chan listenResult, 1)
	e.listenCh = ch
	go func() {
		text, err := e.speech.Listen(ctx)
		ch <- listenResult{text: text, err: err}
		close(ch)
	}()
}

// SubmitAnswer завершает прием и отправляет ответ на оценку. Пустой ответ
// отклоняется локально без сетевого вызова. При ошибке оценки автомат все
// равно переходит в feedback с ошибкой.
func (e *Executor) SubmitAnswer(ctx context.Context, typed string) error {
	e.mu.Lock()
	if e.state != StateListening {
		e.mu.Unlock()
		return ErrWrongState
	}
	ch := e.listenCh
	e.mu.Unlock()

	answer := strings.TrimSpace(typed)
	if ch != nil {
		e.speech.Stop()
		r := <-ch
		e.mu.Lock()
		e.listenCh = nil
		e.mu.Unlock()
		if answer == "" && r.err == nil {
			answer = strings.TrimSpace(r.text)
		}
		if answer == "" {
			// остаемся в listening и слушаем заново; время ответа не сбрасывается
			e.mu.Lock()
			if e.state == StateListening {
				e.listenLocked(ctx)
			}
			e.mu.Unlock()
		}
	}
	if answer == "" {
		return interview.ErrEmptyAnswer
	}

	e.mu.Lock()
	if e.state != StateListening {
		e.mu.Unlock()
		return ErrWrongState
	}
	duration := int(e.now().Sub(e.answerStarted).Seconds())
	in := session.EvaluateInput{
		SessionID:       e.sessionID,
		QuestionIndex:   e.index,
		Question:        e.question,
		Answer:          answer,
		DurationSeconds: duration,
	}
	e.lastAnswer = answer
	e.setState(StateEvaluating)
	e.mu.Unlock()

	return e.evaluate(ctx, in)
}

// RetryEvaluation повторно отправляет последний ответ после ошибки оценки
func (e *Executor) RetryEvaluation(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateFeedback || e.feedback == nil || e.feedback.Err == nil || e.lastAnswer == "" {
		e.mu.Unlock()
		return ErrWrongState
	}
	in := session.EvaluateInput{
		SessionID:       e.sessionID,
		QuestionIndex:   e.index,
		Question:        e.question,
		Answer:          e.lastAnswer,
		DurationSeconds: int(e.now().Sub(e.answerStarted).Seconds()),
	}
	e.setState(StateEvaluating)
	e.mu.Unlock()

	return e.evaluate(ctx, in)
}

func (e *Executor) evaluate(ctx context.Context, in session.EvaluateInput) error {
	e.netMu.Lock()
	ev, err := e.backend.Evaluate(ctx, in)
	e.netMu.Unlock()

	if errors.Is(err, interview.ErrInvalidState) {
		return e.resync(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateComplete {
		return nil
	}
	e.feedback = &Feedback{QuestionIndex: in.QuestionIndex, Evaluation: ev, Err: err}
	e.setState(StateFeedback)
	return err
}

// Skip пропускает текущий вопрос без оценки
func (e *Executor) Skip(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateReadyToAnswer && e.state != StateListening {
		e.mu.Unlock()
		return ErrWrongState
	}
	ch := e.listenCh
	e.listenCh = nil
	e.mu.Unlock()

	e.speech.Cancel()
	if ch != nil {
		<-ch
	}
	return e.advance(ctx)
}

// NextQuestion переходит от отзыва к следующему вопросу или к итогу
func (e *Executor) NextQuestion(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateFeedback {
		e.mu.Unlock()
		return ErrWrongState
	}
	e.mu.Unlock()
	return e.advance(ctx)
}

func (e *Executor) advance(ctx context.Context) error {
	e.mu.Lock()
	sessionID, index := e.sessionID, e.index
	e.mu.Unlock()

	e.netMu.Lock()
	res, err := e.backend.Next(ctx, sessionID, index)
	if err != nil {
		e.netMu.Unlock()
		if errors.Is(err, interview.ErrInvalidState) {
			return e.resync(ctx)
		}
		return err
	}

	if res.IsComplete {
		e.mu.Lock()
		if e.state == StateComplete {
			e.mu.Unlock()
			e.netMu.Unlock()
			return nil
		}
		e.setState(StateComplete)
		e.mu.Unlock()

		err := e.summarizeLocked(ctx)
		e.netMu.Unlock()
		return err
	}
	e.netMu.Unlock()

	e.mu.Lock()
	if e.state == StateComplete {
		e.mu.Unlock()
		return nil
	}
	e.index = res.QuestionIndex
	e.question = res.Question
	e.transition = res.Transition
	e.feedback = nil
	e.lastAnswer = ""
	e.setState(StateSpeakingAI)
	e.mu.Unlock()

	e.speak(ctx, res.Transition, res.Question)
	return nil
}

// End досрочно завершает интервью. Останавливает речь, дожидается текущего
// сетевого вызова (его результат будет проигнорирован) и запрашивает итог.
func (e *Executor) End(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StateEvaluating, StateComplete:
		e.mu.Unlock()
		return ErrWrongState
	}
	ch := e.listenCh
	e.listenCh = nil
	e.setState(StateComplete)
	e.mu.Unlock()

	e.speech.Cancel()
	if ch != nil {
		<-ch
	}

	e.netMu.Lock()
	defer e.netMu.Unlock()

	e.mu.Lock()
	started := e.sessionID != ""
	e.mu.Unlock()
	if !started {
		return nil
	}
	return e.summarizeLocked(ctx)
}

// summarizeLocked вызывается под netMu
func (e *Executor) summarizeLocked(ctx context.Context) error {
	e.mu.Lock()
	sessionID := e.sessionID
	e.mu.Unlock()

	sess, err := e.backend.Summarize(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = sess
	if sess.QuotaExhausted {
		e.quotaNotice = true
	}
	e.setState(StateComplete)
	return nil
}

// resync восстанавливает состояние по данным сервера после InvalidState
func (e *Executor) resync(ctx context.Context) error {
	e.mu.Lock()
	sessionID := e.sessionID
	e.mu.Unlock()

	e.netMu.Lock()
	sess, err := e.backend.Session(ctx, sessionID)
	e.netMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to resync session: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateComplete {
		return nil
	}
	log.Printf("🔄 Resynced session %s at question %d", sess.ID, sess.CurrentIndex)

	if sess.IsSealed() || sess.IsComplete() {
		if sess.IsSealed() {
			e.result = sess
			e.quotaNotice = e.quotaNotice || sess.QuotaExhausted
		}
		e.setState(StateComplete)
		return nil
	}

	e.index = sess.CurrentIndex
	if q, ok := sess.QuestionAt(sess.CurrentIndex); ok {
		e.question = q.Question
		e.transition = q.Transition
	}
	if sess.HasAnswerFor(sess.CurrentIndex) {
		ans := sess.Answers[sess.CurrentIndex]
		e.feedback = &Feedback{QuestionIndex: ans.QuestionIndex, Evaluation: ans.Evaluation}
		e.setState(StateFeedback)
		return nil
	}
	e.feedback = nil
	e.setState(StateReadyToAnswer)
	return nil
}
