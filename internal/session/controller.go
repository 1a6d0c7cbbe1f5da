// Package session управляет жизненным циклом интервью: старт, следующий
// вопрос, оценка ответа и итог.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"mock-interview/internal/config"
	"mock-interview/internal/events"
	"mock-interview/internal/interview"
	"mock-interview/internal/interviewer"
	"mock-interview/internal/metrics"
	"mock-interview/internal/quota"
	"mock-interview/internal/resume"
	"mock-interview/internal/scoring"
	"mock-interview/internal/storage"
)

// DefaultTTL - время жизни сессии
const DefaultTTL = 24 * time.Hour

// TurnService - AI интервьюер
type TurnService interface {
	Persona(t interview.InterviewType) interview.InterviewerProfile
	Opening(ctx context.Context, sess *interview.Session) (interviewer.Opening, error)
	NextQuestion(ctx context.Context, sess *interview.Session, index int) (interviewer.NextQuestion, error)
	Evaluate(ctx context.Context, sess *interview.Session, question, answer string, durationSeconds int) (interview.Evaluation, error)
	scoring.Narrator
}

// QuotaManager - месячная квота пользователя
type QuotaManager interface {
	RemainingFor(ctx context.Context, userID string) (int, error)
	// CheckAndReserve списывает единицу квоты за сессию sessionID не более одного раза
	CheckAndReserve(ctx context.Context, userID, sessionID string) (quota.Reservation, error)
	Status(ctx context.Context, userID string) (quota.Status, error)
}

// ResumeSource достает текст резюме из загруженного файла
type ResumeSource interface {
	Text(ctx context.Context, file resume.File) (string, error)
}

// Deps - зависимости контроллера. Events, Resumes и Metrics необязательны.
type Deps struct {
	Store   storage.SessionStore
	Quota   QuotaManager
	Turns   TurnService
	Scoring *scoring.Aggregator
	Config  *config.Config
	Metrics *metrics.Metrics
	Events  events.Publisher
	Resumes ResumeSource
	TTL     time.Duration
}

// Controller обрабатывает операции над сессиями. Состояние хранится только
// в Store; конкурентные изменения отсекаются по версии записи.
type Controller struct {
	store   storage.SessionStore
	quota   QuotaManager
	turns   TurnService
	scoring *scoring.Aggregator
	config  *config.Config
	metrics *metrics.Metrics
	events  events.Publisher
	resumes ResumeSource
	ttl     time.Duration
	now     func() time.Time
}

// New создает контроллер
func New(d Deps) *Controller {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Scoring == nil {
		d.Scoring = scoring.NewAggregator(d.Config.Scoring)
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.TTL <= 0 {
		d.TTL = DefaultTTL
	}
	return &Controller{
		store:   d.Store,
		quota:   d.Quota,
		turns:   d.Turns,
		scoring: d.Scoring,
		config:  d.Config,
		metrics: d.Metrics,
		events:  d.Events,
		resumes: d.Resumes,
		ttl:     d.TTL,
		now:     time.Now,
	}
}

// WithClock подменяет источник времени
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// StartInput - параметры новой сессии
type StartInput struct {
	UserID        string
	Settings      interview.Settings
	ResumeText    string
	ResumeFile    *resume.File
	DiagnosisText string
}

// StartResult - ответ на старт сессии
type StartResult struct {
	SessionID          string                       `json:"sessionId"`
	InterviewerProfile interview.InterviewerProfile `json:"interviewerProfile"`
	OpeningMessage     string                       `json:"openingMessage"`
	FirstQuestion      interview.Question           `json:"firstQuestion"`
	QuestionCount      int                          `json:"questionCount"`
}

// NextResult - следующий вопрос или признак завершения
type NextResult struct {
	QuestionIndex int    `json:"questionIndex,omitempty"`
	Question      string `json:"question,omitempty"`
	Transition    string `json:"transition,omitempty"`
	IsComplete    bool   `json:"isComplete,omitempty"`
}

// EvaluateInput - ответ кандидата на текущий вопрос
type EvaluateInput struct {
	UserID          string
	SessionID       string
	QuestionIndex   int
	Question        string
	Answer          string
	DurationSeconds int
}

// Start проверяет настройки и квоту, получает приветствие и первый вопрос
// и сохраняет новую сессию. Квота на старте не списывается.
func (c *Controller) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	settings := in.Settings.Normalize()
	if err := settings.Validate(c.config.GetQuestionCounts()); err != nil {
		return nil, err
	}

	remaining, err := c.quota.RemainingFor(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if remaining <= 0 {
		c.metrics.IncrementQuotaRejections()
		log.Printf("🚫 Quota exhausted for user %s", in.UserID)
		return nil, interview.ErrQuotaExceeded
	}

	now := c.now().UTC()
	sess := &interview.Session{
		ID:                 uuid.NewString(),
		UserID:             in.UserID,
		Settings:           settings,
		InterviewerProfile: c.turns.Persona(settings.InterviewType),
		ResumeContext:      c.resumeText(ctx, in),
		DiagnosisContext:   strings.TrimSpace(in.DiagnosisText),
		Questions:          []interview.Question{},
		Answers:            []interview.Answer{},
		CreatedAt:          now,
		ExpiresAt:          now.Add(c.ttl),
	}

	opening, err := c.turns.Opening(ctx, sess)
	if err != nil {
		log.Printf("❌ Failed to generate opening for user %s: %v", in.UserID, err)
		return nil, upstream("opening", err)
	}
	sess.OpeningMessage = opening.OpeningMessage
	sess.Questions = append(sess.Questions, interview.Question{ID: 1, Question: opening.Question})

	if err := c.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	c.metrics.IncrementSessionsStarted()
	c.metrics.IncrementQuestionsAsked()
	log.Printf("✅ Session %s started for user %s (%s, %d questions)", sess.ID, sess.UserID, settings.InterviewType, settings.QuestionCount)

	ev := events.NewEvent(events.TypeSessionStarted, sess.ID, sess.UserID)
	ev.InterviewType = string(settings.InterviewType)
	ev.QuestionCount = settings.QuestionCount
	c.publish(ctx, ev)

	return &StartResult{
		SessionID:          sess.ID,
		InterviewerProfile: sess.InterviewerProfile,
		OpeningMessage:     sess.OpeningMessage,
		FirstQuestion:      sess.Questions[0],
		QuestionCount:      settings.QuestionCount,
	}, nil
}

// Next переводит сессию к следующему вопросу. currentIndex должен совпадать
// с сохраненным указателем. Вопрос без ответа отмечается как пропущенный.
func (c *Controller) Next(ctx context.Context, userID, sessionID string, currentIndex int) (*NextResult, error) {
	rec, err := c.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	sess := rec.Session

	switch {
	case sess.IsSealed():
		return nil, stateError(sess, "session is already summarized")
	case sess.IsComplete():
		return nil, stateError(sess, "all questions are already asked")
	case currentIndex != sess.CurrentIndex:
		return nil, stateError(sess, fmt.Sprintf("stale question index %d, current is %d", currentIndex, sess.CurrentIndex))
	}

	if !sess.HasAnswerFor(currentIndex) {
		q, _ := sess.QuestionAt(currentIndex)
		sess.Answers = append(sess.Answers, interview.Answer{
			QuestionIndex: currentIndex,
			Question:      q.Question,
			Skipped:       true,
		})
		c.metrics.IncrementQuestionsSkipped()
	}

	if currentIndex+1 >= sess.Settings.QuestionCount {
		sess.CurrentIndex = sess.Settings.QuestionCount
		if _, err := c.save(ctx, sess, rec.Version); err != nil {
			return nil, err
		}
		log.Printf("🏁 Session %s: all %d questions asked", sess.ID, sess.Settings.QuestionCount)
		return &NextResult{IsComplete: true}, nil
	}

	next, err := c.turns.NextQuestion(ctx, sess, currentIndex+1)
	if err != nil {
		log.Printf("❌ Session %s: failed to generate question %d: %v", sess.ID, currentIndex+1, err)
		return nil, upstream("next question", err)
	}

	sess.Questions = append(sess.Questions[:currentIndex+1], interview.Question{
		ID:         currentIndex + 2,
		Question:   next.Question,
		Transition: next.Transition,
	})
	sess.CurrentIndex = currentIndex + 1

	if _, err := c.save(ctx, sess, rec.Version); err != nil {
		return nil, err
	}

	c.metrics.IncrementQuestionsAsked()
	log.Printf("➡️ Session %s: question %d/%d", sess.ID, sess.CurrentIndex+1, sess.Settings.QuestionCount)
	return &NextResult{
		QuestionIndex: sess.CurrentIndex,
		Question:      next.Question,
		Transition:    next.Transition,
	}, nil
}

// Evaluate оценивает ответ на текущий вопрос и записывает его.
// Указатель вопроса не сдвигается.
func (c *Controller) Evaluate(ctx context.Context, in EvaluateInput) (*interview.Evaluation, error) {
	rec, err := c.load(ctx, in.UserID, in.SessionID)
	if err != nil {
		return nil, err
	}
	sess := rec.Session

	switch {
	case sess.IsSealed():
		return nil, stateError(sess, "session is already summarized")
	case in.QuestionIndex != len(sess.Answers):
		return nil, stateError(sess, fmt.Sprintf("question %d is not the next to evaluate (answers: %d)", in.QuestionIndex, len(sess.Answers)))
	case in.QuestionIndex != sess.CurrentIndex || sess.IsComplete():
		return nil, stateError(sess, fmt.Sprintf("question %d is not the current question", in.QuestionIndex))
	}

	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return nil, interview.ErrEmptyAnswer
	}

	q, ok := sess.QuestionAt(in.QuestionIndex)
	if !ok {
		return nil, stateError(sess, fmt.Sprintf("question %d was never asked", in.QuestionIndex))
	}
	duration := max(0, in.DurationSeconds)

	evaluation, err := c.turns.Evaluate(ctx, sess, q.Question, answer, duration)
	if err != nil {
		log.Printf("❌ Session %s: failed to evaluate answer %d: %v", sess.ID, in.QuestionIndex, err)
		return nil, upstream("evaluate", err)
	}

	sess.Answers = append(sess.Answers, interview.Answer{
		QuestionIndex:         in.QuestionIndex,
		Question:              q.Question,
		AnswerText:            answer,
		AnswerDurationSeconds: duration,
		Evaluation:            &evaluation,
	})

	if _, err := c.save(ctx, sess, rec.Version); err != nil {
		return nil, err
	}

	c.metrics.IncrementAnswersEvaluated()
	log.Printf("📝 Session %s: answer %d scored %d", sess.ID, in.QuestionIndex, evaluation.Score)
	return &evaluation, nil
}

// Summarize вычисляет итог один раз и запечатывает сессию. Повторные вызовы
// возвращают сохраненный итог. Квота списывается за сессию один раз; если
// она исчерпана, итог все равно сохраняется. Если списание не удалось,
// следующий вызов Summarize повторит его.
func (c *Controller) Summarize(ctx context.Context, userID, sessionID string) (*interview.Session, error) {
	rec, err := c.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	sealedNow := false
	if !rec.Session.IsSealed() {
		sess := rec.Session
		summary := c.scoring.Summarize(ctx, sess, c.turns)
		summary.CompletedAt = c.now().UTC()
		sess.Summary = &summary

		version, err := c.save(ctx, sess, rec.Version)
		if errors.Is(err, interview.ErrInvalidState) {
			// Другой запрос успел изменить сессию
			latest, lerr := c.load(ctx, userID, sessionID)
			if lerr != nil {
				return nil, lerr
			}
			if latest.Session.IsSealed() {
				return public(latest.Session), nil
			}
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		rec = &storage.Record{Session: sess, Version: version}
		sealedNow = true
	}

	if !rec.Session.QuotaSettled {
		rec = c.settleQuota(ctx, rec)
	}
	sess := rec.Session

	if sealedNow {
		c.metrics.IncrementSessionsCompleted()
		log.Printf("🎯 Session %s summarized: %d (%s), answered %d, skipped %d",
			sess.ID, sess.Summary.TotalScore, sess.Summary.Grade, sess.Summary.AnsweredCount, sess.Summary.SkippedCount)

		ev := events.NewEvent(events.TypeSessionCompleted, sess.ID, sess.UserID)
		ev.InterviewType = string(sess.Settings.InterviewType)
		ev.QuestionCount = sess.Settings.QuestionCount
		ev.TotalScore = sess.Summary.TotalScore
		ev.Grade = sess.Summary.Grade
		ev.QuotaExhausted = sess.QuotaExhausted
		c.publish(ctx, ev)
	}

	return public(sess), nil
}

// Get возвращает сессию без изменений
func (c *Controller) Get(ctx context.Context, userID, sessionID string) (*interview.Session, error) {
	rec, err := c.load(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return public(rec.Session), nil
}

// QuotaStatus возвращает состояние месячной квоты пользователя
func (c *Controller) QuotaStatus(ctx context.Context, userID string) (quota.Status, error) {
	return c.quota.Status(ctx, userID)
}

// settleQuota списывает квоту за запечатанную сессию и сохраняет результат.
// Списание идемпотентно по ID сессии, поэтому повтор после сбоя не спишет
// квоту дважды. Возвращает запись в том виде, в каком она сохранена.
func (c *Controller) settleQuota(ctx context.Context, rec *storage.Record) *storage.Record {
	sess := rec.Session
	res, err := c.quota.CheckAndReserve(ctx, sess.UserID, sess.ID)
	if err != nil {
		log.Printf("❌ Session %s: failed to reserve quota, will retry on next summary: %v", sess.ID, err)
		return rec
	}

	settled := *sess
	settled.QuotaSettled = true
	settled.QuotaExhausted = !res.Allowed

	version, err := c.save(ctx, &settled, rec.Version)
	if err != nil {
		log.Printf("⚠️ Session %s: failed to store quota result: %v", sess.ID, err)
		if latest, lerr := c.load(ctx, sess.UserID, sess.ID); lerr == nil {
			return latest
		}
		return rec
	}

	if res.Allowed {
		log.Printf("🎟️ Quota reserved for user %s (%s), remaining %d", sess.UserID, res.Period, res.Remaining)
	} else {
		c.metrics.IncrementQuotaRejections()
		log.Printf("🚫 Session %s summarized without remaining quota for user %s", sess.ID, sess.UserID)
	}
	return &storage.Record{Session: &settled, Version: version}
}

func (c *Controller) resumeText(ctx context.Context, in StartInput) string {
	if text := strings.TrimSpace(in.ResumeText); text != "" {
		return text
	}
	if in.ResumeFile == nil || c.resumes == nil {
		return ""
	}
	text, err := c.resumes.Text(ctx, *in.ResumeFile)
	if err != nil {
		log.Printf("⚠️ Resume %s ignored: %v", in.ResumeFile.Key, err)
		return ""
	}
	return text
}

func (c *Controller) publish(ctx context.Context, ev events.Event) {
	if err := c.events.Publish(ctx, ev); err != nil {
		log.Printf("⚠️ Failed to publish %s for session %s: %v", ev.Type, ev.SessionID, err)
	}
}

// load читает сессию пользователя. Чужая сессия неотличима от отсутствующей.
func (c *Controller) load(ctx context.Context, userID, sessionID string) (*storage.Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, interview.ErrNotFound
	}
	rec, err := c.store.Get(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", interview.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if rec.Session.UserID != userID {
		log.Printf("⚠️ User %s requested session %s owned by another user", userID, sessionID)
		return nil, fmt.Errorf("%w: %s", interview.ErrNotFound, sessionID)
	}
	return rec, nil
}

func (c *Controller) save(ctx context.Context, sess *interview.Session, version int64) (int64, error) {
	v, err := c.store.Update(ctx, sess, version)
	switch {
	case errors.Is(err, storage.ErrConflict):
		log.Printf("⚠️ Session %s was modified concurrently", sess.ID)
		return 0, fmt.Errorf("%w: session %s was modified concurrently", interview.ErrInvalidState, sess.ID)
	case errors.Is(err, storage.ErrNotFound):
		return 0, fmt.Errorf("%w: %s", interview.ErrNotFound, sess.ID)
	case err != nil:
		return 0, fmt.Errorf("failed to save session %s: %w", sess.ID, err)
	}
	return v, nil
}

func stateError(sess *interview.Session, msg string) error {
	log.Printf("⚠️ Session %s: %s", sess.ID, msg)
	return fmt.Errorf("%w: %s", interview.ErrInvalidState, msg)
}

// upstream гарантирует, что ошибка AI имеет тип ErrUpstream
func upstream(op string, err error) error {
	if errors.Is(err, interview.ErrUpstream) {
		return err
	}
	return interview.Upstream(op, err)
}

func public(sess *interview.Session) *interview.Session {
	out := sess.Public()
	return &out
}
