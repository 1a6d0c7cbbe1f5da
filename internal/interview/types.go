package interview

import (
	"strings"
	"time"
)

// InterviewType определяет этап собеседования
type InterviewType string

const (
	TypeFirst  InterviewType = "first"
	TypeSecond InterviewType = "second"
	TypeFinal  InterviewType = "final"
)

// Категории итоговой оценки
const (
	CategoryContent       = "content"
	CategoryLogic         = "logic"
	CategoryCommunication = "communication"
	CategoryUnderstanding = "understanding"
	CategoryEnthusiasm    = "enthusiasm"
)

// Categories возвращает категории в фиксированном порядке
func Categories() []string {
	return []string{
		CategoryContent,
		CategoryLogic,
		CategoryCommunication,
		CategoryUnderstanding,
		CategoryEnthusiasm,
	}
}

// Settings задаются при создании сессии и больше не меняются
type Settings struct {
	Industry      string        `json:"industry"`
	Position      string        `json:"position"`
	InterviewType InterviewType `json:"interviewType"`
	QuestionCount int           `json:"questionCount"`
}

// InterviewerProfile - персона интервьюера, только для отображения
type InterviewerProfile struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Question представляет один вопрос интервью
type Question struct {
	ID         int    `json:"id"`
	Question   string `json:"question"`
	Transition string `json:"transition,omitempty"`
}

// Evaluation - оценка одного ответа
type Evaluation struct {
	Score             int            `json:"score"`
	CategoryScores    map[string]int `json:"categoryScores,omitempty"`
	GoodPoints        []string       `json:"goodPoints"`
	ImprovementPoints []string       `json:"improvementPoints"`
	ShortFeedback     string         `json:"shortFeedback"`
}

// Answer - записанный ответ на вопрос. Skipped означает, что вопрос был пропущен
// и оценки нет.
type Answer struct {
	QuestionIndex         int         `json:"questionIndex"`
	Question              string      `json:"question"`
	AnswerText            string      `json:"answerText,omitempty"`
	AnswerDurationSeconds int         `json:"answerDurationSeconds"`
	Evaluation            *Evaluation `json:"evaluation,omitempty"`
	Skipped               bool        `json:"skipped,omitempty"`
}

// Summary - итог сессии, вычисляется один раз
type Summary struct {
	TotalScore      int            `json:"totalScore"`
	OverallScores   map[string]int `json:"overallScores"`
	Grade           string         `json:"grade"`
	PassLikelihood  string         `json:"passLikelihood"`
	Strengths       []string       `json:"strengths"`
	Improvements    []string       `json:"improvements"`
	OverallFeedback string         `json:"overallFeedback"`
	NextSteps       []string       `json:"nextSteps"`
	AnsweredCount   int            `json:"answeredCount"`
	SkippedCount    int            `json:"skippedCount"`
	CompletedAt     time.Time      `json:"completedAt"`
}

// Session - одна попытка интервью. QuotaSettled отмечает, что квота за
// сессию уже обработана: списана или отказано.
type Session struct {
	ID                 string             `json:"sessionId"`
	UserID             string             `json:"userId"`
	Settings           Settings           `json:"settings"`
	InterviewerProfile InterviewerProfile `json:"interviewerProfile"`
	OpeningMessage     string             `json:"openingMessage"`
	ResumeContext      string             `json:"resumeContext,omitempty"`
	DiagnosisContext   string             `json:"diagnosisContext,omitempty"`
	Questions          []Question         `json:"questions"`
	Answers            []Answer           `json:"answers"`
	CurrentIndex       int                `json:"currentIndex"`
	Summary            *Summary           `json:"summary,omitempty"`
	QuotaExhausted     bool               `json:"quotaExhausted,omitempty"`
	QuotaSettled       bool               `json:"quotaSettled,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	ExpiresAt          time.Time          `json:"expiresAt"`
}

// IsComplete сообщает, дошел ли указатель до конца
func (s *Session) IsComplete() bool {
	return s.CurrentIndex >= s.Settings.QuestionCount
}

// IsSealed - после записи итога сессия неизменна
func (s *Session) IsSealed() bool {
	return s.Summary != nil
}

// HasAnswerFor сообщает, есть ли записанный ответ (или пропуск) для вопроса
func (s *Session) HasAnswerFor(index int) bool {
	return index < len(s.Answers)
}

// QuestionAt возвращает вопрос по индексу
func (s *Session) QuestionAt(index int) (Question, bool) {
	if index < 0 || index >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[index], true
}

// Evaluations возвращает оценки записанных (не пропущенных) ответов по порядку
func (s *Session) Evaluations() []Evaluation {
	var out []Evaluation
	for _, a := range s.Answers {
		if a.Skipped || a.Evaluation == nil {
			continue
		}
		out = append(out, *a.Evaluation)
	}
	return out
}

// Normalize убирает пробелы по краям строковых полей
func (st Settings) Normalize() Settings {
	st.Industry = strings.TrimSpace(st.Industry)
	st.Position = strings.TrimSpace(st.Position)
	if st.InterviewType == "" {
		st.InterviewType = TypeFirst
	}
	return st
}

// Public возвращает копию сессии без контекста персонализации
func (s *Session) Public() Session {
	out := *s
	out.ResumeContext = ""
	out.DiagnosisContext = ""
	out.QuotaSettled = false
	return out
}
