package interviewer

import (
	"context"
	"fmt"
	"strings"

	"mock-interview/internal/api"
	"mock-interview/internal/config"
	"mock-interview/internal/interview"
	"mock-interview/internal/metrics"
	"mock-interview/internal/prompts"
)

// Service представляет AI сервис интервьюера
type Service struct {
	client  api.Completer
	config  *config.Config
	metrics *metrics.Metrics
}

// New создает новый сервис интервьюера
func New(client api.Completer, cfg *config.Config, m *metrics.Metrics) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Service{client: client, config: cfg, metrics: m}
}

// Opening - приветствие и первый вопрос
type Opening struct {
	OpeningMessage string `json:"openingMessage"`
	Question       string `json:"question"`
}

func (o *Opening) Validate() error {
	if strings.TrimSpace(o.Question) == "" {
		return fmt.Errorf("opening question is empty")
	}
	return nil
}

// NextQuestion - следующий вопрос с переходной фразой
type NextQuestion struct {
	Transition string `json:"transition"`
	Question   string `json:"question"`
}

func (n *NextQuestion) Validate() error {
	if strings.TrimSpace(n.Question) == "" {
		return fmt.Errorf("next question is empty")
	}
	return nil
}

// Narrative - текстовая часть итогового разбора
type Narrative struct {
	Strengths       []string `json:"strengths"`
	Improvements    []string `json:"improvements"`
	OverallFeedback string   `json:"overallFeedback"`
	NextSteps       []string `json:"nextSteps"`
}

func (n *Narrative) Validate() error {
	if strings.TrimSpace(n.OverallFeedback) == "" {
		return fmt.Errorf("overall feedback is empty")
	}
	return nil
}

type evaluationPayload struct {
	Score             *int           `json:"score"`
	CategoryScores    map[string]int `json:"categoryScores"`
	GoodPoints        []string       `json:"goodPoints"`
	ImprovementPoints []string       `json:"improvementPoints"`
	ShortFeedback     string         `json:"shortFeedback"`
}

func (e *evaluationPayload) Validate() error {
	if e.Score == nil {
		return fmt.Errorf("evaluation has no score")
	}
	return nil
}

// Persona возвращает профиль интервьюера для типа собеседования
func (s *Service) Persona(t interview.InterviewType) interview.InterviewerProfile {
	iv := s.config.GetInterviewer(t)
	return interview.InterviewerProfile{Name: iv.Name, Role: iv.Role}
}

// Opening генерирует приветствие и первый вопрос
func (s *Service) Opening(ctx context.Context, sess *interview.Session) (Opening, error) {
	var out Opening
	err := s.call(ctx, "opening", sess, prompts.OpeningPrompt(), &out)
	if err != nil {
		return Opening{}, err
	}
	out.OpeningMessage = strings.TrimSpace(out.OpeningMessage)
	out.Question = strings.TrimSpace(out.Question)
	return out, nil
}

// NextQuestion генерирует вопрос с индексом index с учетом предыдущих ответов
func (s *Service) NextQuestion(ctx context.Context, sess *interview.Session, index int) (NextQuestion, error) {
	var out NextQuestion
	prompt := prompts.NextQuestionPrompt(index, sess.Settings.QuestionCount, sess.Answers)
	if err := s.call(ctx, "next question", sess, prompt, &out); err != nil {
		return NextQuestion{}, err
	}
	out.Transition = strings.TrimSpace(out.Transition)
	out.Question = strings.TrimSpace(out.Question)
	return out, nil
}

// Evaluate оценивает один ответ
func (s *Service) Evaluate(ctx context.Context, sess *interview.Session, question, answer string, durationSeconds int) (interview.Evaluation, error) {
	var out evaluationPayload
	prompt := prompts.EvaluationPrompt(question, answer, durationSeconds)
	if err := s.call(ctx, "evaluate", sess, prompt, &out); err != nil {
		return interview.Evaluation{}, err
	}

	ev := interview.Evaluation{
		Score:             clampScore(*out.Score),
		GoodPoints:        nonEmpty(out.GoodPoints),
		ImprovementPoints: nonEmpty(out.ImprovementPoints),
		ShortFeedback:     strings.TrimSpace(out.ShortFeedback),
	}
	if len(out.CategoryScores) > 0 {
		ev.CategoryScores = make(map[string]int, len(out.CategoryScores))
		for _, c := range interview.Categories() {
			if v, ok := out.CategoryScores[c]; ok {
				ev.CategoryScores[c] = clampScore(v)
			}
		}
	}
	return ev, nil
}

// Narrative генерирует итоговый текстовый разбор
func (s *Service) Narrative(ctx context.Context, sess *interview.Session, totalScore int, grade string) (Narrative, error) {
	var out Narrative
	prompt := prompts.NarrativePrompt(sess.Answers, totalScore, grade)
	if err := s.call(ctx, "narrative", sess, prompt, &out); err != nil {
		return Narrative{}, err
	}
	out.Strengths = nonEmpty(out.Strengths)
	out.Improvements = nonEmpty(out.Improvements)
	out.NextSteps = nonEmpty(out.NextSteps)
	out.OverallFeedback = strings.TrimSpace(out.OverallFeedback)
	return out, nil
}

func (s *Service) call(ctx context.Context, op string, sess *interview.Session, userPrompt string, out any) error {
	iv := s.config.GetInterviewer(sess.Settings.InterviewType)
	system := prompts.SystemPrompt(prompts.Context{
		Settings:  sess.Settings,
		Persona:   prompts.Persona{Name: iv.Name, Role: iv.Role, Focus: iv.Focus},
		Resume:    sess.ResumeContext,
		Diagnosis: sess.DiagnosisContext,
	})
	messages := []api.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: userPrompt},
	}

	err := api.CompleteJSON(ctx, s.client, op, messages, out)
	if s.metrics != nil {
		s.metrics.IncrementAPICall(err == nil)
	}
	return err
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
