// Package scoring сводит оценки отдельных ответов в итоговую карту результата.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"mock-interview/internal/config"
	"mock-interview/internal/interview"
)

const (
	maxListItems = 3
	// Штрафы к "communication" за слишком короткий или слишком длинный ответ
	shortAnswerPenalty = 10
	longAnswerPenalty  = 5
)

// Aggregator вычисляет итог по списку ответов. Результат детерминирован.
type Aggregator struct {
	cfg config.ScoringConfig
}

// NewAggregator создает агрегатор с весами и порогами из конфигурации
func NewAggregator(cfg config.ScoringConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate вычисляет оценки и механический текстовый разбор.
// Пропущенные вопросы не участвуют в оценках, но учитываются в SkippedCount.
func (a *Aggregator) Aggregate(answers []interview.Answer) interview.Summary {
	summary := interview.Summary{
		OverallScores: make(map[string]int, len(interview.Categories())),
	}

	sums := make(map[string]int)
	for _, ans := range answers {
		if ans.Skipped || ans.Evaluation == nil {
			summary.SkippedCount++
			continue
		}
		summary.AnsweredCount++
		for _, c := range interview.Categories() {
			sums[c] += a.categoryValue(c, ans)
		}
	}

	for _, c := range interview.Categories() {
		if summary.AnsweredCount == 0 {
			summary.OverallScores[c] = 0
			continue
		}
		avg := float64(sums[c]) / float64(summary.AnsweredCount)
		summary.OverallScores[c] = clamp(int(math.Round(avg)))
	}

	summary.TotalScore = a.total(summary.OverallScores)
	summary.Grade = label(a.cfg.Grades, summary.TotalScore)
	summary.PassLikelihood = label(a.cfg.PassLikelihood, summary.TotalScore)

	good, improve := collectPoints(answers)
	summary.Strengths = good
	summary.Improvements = improve
	summary.OverallFeedback = mechanicalFeedback(summary)
	summary.NextSteps = mechanicalNextSteps(summary)

	return summary
}

func (a *Aggregator) categoryValue(c string, ans interview.Answer) int {
	v := ans.Evaluation.Score
	if cs, ok := ans.Evaluation.CategoryScores[c]; ok {
		v = cs
	}
	if c == interview.CategoryCommunication && ans.AnswerDurationSeconds > 0 {
		switch {
		case a.cfg.MinAnswerSeconds > 0 && ans.AnswerDurationSeconds < a.cfg.MinAnswerSeconds:
			v -= shortAnswerPenalty
		case a.cfg.MaxAnswerSeconds > 0 && ans.AnswerDurationSeconds > a.cfg.MaxAnswerSeconds:
			v -= longAnswerPenalty
		}
	}
	return clamp(v)
}

func (a *Aggregator) total(scores map[string]int) int {
	var weighted, weights float64
	for _, c := range interview.Categories() {
		w := a.cfg.Weights[c]
		weighted += w * float64(scores[c])
		weights += w
	}
	if weights <= 0 {
		return 0
	}
	return clamp(int(math.Round(weighted / weights)))
}

// label возвращает метку первого порога, который не выше score.
// Пороги отсортированы по убыванию при загрузке конфигурации.
func label(thresholds []config.Threshold, score int) string {
	for _, t := range thresholds {
		if score >= t.MinScore {
			return t.Label
		}
	}
	if len(thresholds) > 0 {
		return thresholds[len(thresholds)-1].Label
	}
	return ""
}

// collectPoints выбирает самые частые пункты, при равенстве - в порядке появления
func collectPoints(answers []interview.Answer) ([]string, []string) {
	var good, improve []string
	for _, ans := range answers {
		if ans.Skipped || ans.Evaluation == nil {
			continue
		}
		good = append(good, ans.Evaluation.GoodPoints...)
		improve = append(improve, ans.Evaluation.ImprovementPoints...)
	}
	return topByFrequency(good, maxListItems), topByFrequency(improve, maxListItems)
}

func topByFrequency(items []string, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if counts[it] == 0 {
			order = append(order, it)
		}
		counts[it]++
	}

	out := make([]string, 0, n)
	used := make(map[string]bool)
	for len(out) < n {
		best := ""
		for _, it := range order {
			if used[it] {
				continue
			}
			if best == "" || counts[it] > counts[best] {
				best = it
			}
		}
		if best == "" {
			break
		}
		used[best] = true
		out = append(out, best)
	}
	return out
}

func mechanicalFeedback(s interview.Summary) string {
	if s.AnsweredCount == 0 {
		return "回答が記録されていないため、評価できませんでした。"
	}
	feedback := fmt.Sprintf("%d問の回答に基づく総合点は%d点（評価%s）です。", s.AnsweredCount, s.TotalScore, s.Grade)

	best, worst := "", ""
	for _, c := range interview.Categories() {
		if best == "" || s.OverallScores[c] > s.OverallScores[best] {
			best = c
		}
		if worst == "" || s.OverallScores[c] < s.OverallScores[worst] {
			worst = c
		}
	}
	feedback += fmt.Sprintf("最も評価が高かった観点は「%s」、伸びしろが大きい観点は「%s」です。", categoryNames[best], categoryNames[worst])
	if s.SkippedCount > 0 {
		feedback += fmt.Sprintf("%d問はスキップされたため評価に含まれていません。", s.SkippedCount)
	}
	return feedback
}

func mechanicalNextSteps(s interview.Summary) []string {
	steps := make([]string, 0, maxListItems+1)
	for _, imp := range s.Improvements {
		steps = append(steps, fmt.Sprintf("「%s」を意識して回答を準備する", imp))
	}
	if s.SkippedCount > 0 {
		steps = append(steps, "スキップした質問への回答を準備する")
	}
	if len(steps) == 0 {
		steps = append(steps, "別の面接タイプでも練習する")
	}
	return steps
}

var categoryNames = map[string]string{
	interview.CategoryContent:       "内容",
	interview.CategoryLogic:         "論理性",
	interview.CategoryCommunication: "伝え方",
	interview.CategoryUnderstanding: "質問理解",
	interview.CategoryEnthusiasm:    "意欲",
}

func clamp(v int) int {
	return max(0, min(100, v))
}
