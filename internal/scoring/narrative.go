package scoring

import (
	"context"
	"log"

	"mock-interview/internal/interview"
	"mock-interview/internal/interviewer"
)

// narrativeAttempts - один повтор, затем механический разбор
const narrativeAttempts = 2

// Narrator генерирует текстовый разбор через AI
type Narrator interface {
	Narrative(ctx context.Context, sess *interview.Session, totalScore int, grade string) (interviewer.Narrative, error)
}

// Summarize считает итог по ответам сессии. Если задан narrator, текстовая
// часть запрашивается у него; при двух неудачах остается механический разбор.
func (a *Aggregator) Summarize(ctx context.Context, sess *interview.Session, narrator Narrator) interview.Summary {
	summary := a.Aggregate(sess.Answers)
	if narrator == nil || summary.AnsweredCount == 0 {
		return summary
	}

	var lastErr error
	for attempt := 1; attempt <= narrativeAttempts; attempt++ {
		n, err := narrator.Narrative(ctx, sess, summary.TotalScore, summary.Grade)
		if err == nil {
			applyNarrative(&summary, n)
			return summary
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	log.Printf("⚠️ Narrative for session %s degraded to mechanical summary: %v", sess.ID, lastErr)
	return summary
}

func applyNarrative(s *interview.Summary, n interviewer.Narrative) {
	if len(n.Strengths) > 0 {
		s.Strengths = n.Strengths
	}
	if len(n.Improvements) > 0 {
		s.Improvements = n.Improvements
	}
	if n.OverallFeedback != "" {
		s.OverallFeedback = n.OverallFeedback
	}
	if len(n.NextSteps) > 0 {
		s.NextSteps = n.NextSteps
	}
}
