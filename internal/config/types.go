package config

import "mock-interview/internal/interview"

// Config представляет конфигурацию интервью
type Config struct {
	InterviewConfig InterviewConfig `yaml:"interview_config"`
	Interviewers    []Interviewer   `yaml:"interviewers"`
	Scoring         ScoringConfig   `yaml:"scoring"`
}

// InterviewConfig содержит общие настройки интервью
type InterviewConfig struct {
	QuestionCounts []int `yaml:"question_counts"`
}

// Interviewer - персона интервьюера для типа собеседования
type Interviewer struct {
	InterviewType interview.InterviewType `yaml:"interview_type"`
	Name          string                  `yaml:"name"`
	Role          string                  `yaml:"role"`
	Focus         string                  `yaml:"focus"`
}

// ScoringConfig определяет веса категорий и пороги оценок
type ScoringConfig struct {
	Weights        map[string]float64 `yaml:"weights"`
	Grades         []Threshold        `yaml:"grades"`
	PassLikelihood []Threshold        `yaml:"pass_likelihood"`
	// Границы комфортной длительности ответа в секундах
	MinAnswerSeconds int `yaml:"min_answer_seconds"`
	MaxAnswerSeconds int `yaml:"max_answer_seconds"`
}

// Threshold - метка, выдаваемая при баллах не ниже MinScore
type Threshold struct {
	MinScore int    `yaml:"min_score"`
	Label    string `yaml:"label"`
}

// Методы для удобного доступа к конфигурации
func (c *Config) GetQuestionCounts() []int {
	return c.InterviewConfig.QuestionCounts
}

// GetInterviewer возвращает персону для типа интервью
func (c *Config) GetInterviewer(t interview.InterviewType) Interviewer {
	for _, iv := range c.Interviewers {
		if iv.InterviewType == t {
			return iv
		}
	}
	if len(c.Interviewers) > 0 {
		return c.Interviewers[0]
	}
	return Interviewer{InterviewType: t, Name: "Interviewer", Role: "Hiring manager"}
}
