package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"mock-interview/internal/interview"
)

// Load загружает конфигурацию из YAML файла
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return Parse(data)
}

// LoadOrDefault читает файл, а при его отсутствии возвращает конфигурацию по умолчанию
func LoadOrDefault(filename string) (*Config, error) {
	cfg, err := Load(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse разбирает и валидирует YAML
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid interview config: %w", err)
	}

	sortThresholds(config.Scoring.Grades)
	sortThresholds(config.Scoring.PassLikelihood)
	return config, nil
}

// Default возвращает встроенную конфигурацию
func Default() *Config {
	return &Config{
		InterviewConfig: InterviewConfig{QuestionCounts: []int{5, 8}},
		Interviewers: []Interviewer{
			{InterviewType: interview.TypeFirst, Name: "Sato", Role: "HR recruiter", Focus: "motivation, basic fit, self-introduction"},
			{InterviewType: interview.TypeSecond, Name: "Tanaka", Role: "Team manager", Focus: "experience depth, problem solving, teamwork"},
			{InterviewType: interview.TypeFinal, Name: "Suzuki", Role: "Executive", Focus: "vision, commitment, long-term career plan"},
		},
		Scoring: ScoringConfig{
			Weights: map[string]float64{
				interview.CategoryContent:       0.25,
				interview.CategoryLogic:         0.2,
				interview.CategoryCommunication: 0.2,
				interview.CategoryUnderstanding: 0.2,
				interview.CategoryEnthusiasm:    0.15,
			},
			Grades: []Threshold{
				{MinScore: 90, Label: "S"},
				{MinScore: 80, Label: "A"},
				{MinScore: 70, Label: "B"},
				{MinScore: 60, Label: "C"},
				{MinScore: 0, Label: "D"},
			},
			PassLikelihood: []Threshold{
				{MinScore: 80, Label: "high"},
				{MinScore: 60, Label: "moderate"},
				{MinScore: 0, Label: "low"},
			},
			MinAnswerSeconds: 20,
			MaxAnswerSeconds: 180,
		},
	}
}

// validateConfig проверяет корректность конфигурации
func validateConfig(config *Config) error {
	if len(config.InterviewConfig.QuestionCounts) == 0 {
		return fmt.Errorf("question_counts must not be empty")
	}
	for _, n := range config.InterviewConfig.QuestionCounts {
		if n <= 0 {
			return fmt.Errorf("question count must be positive, got %d", n)
		}
	}

	for i, iv := range config.Interviewers {
		if iv.Name == "" {
			return fmt.Errorf("interviewer %d must have name", i)
		}
		if iv.Role == "" {
			return fmt.Errorf("interviewer %d must have role", i)
		}
	}

	var total float64
	for _, c := range interview.Categories() {
		w, ok := config.Scoring.Weights[c]
		if !ok {
			return fmt.Errorf("weight for category %q is missing", c)
		}
		if w < 0 {
			return fmt.Errorf("weight for category %q must not be negative", c)
		}
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("category weights must sum to a positive value")
	}

	if len(config.Scoring.Grades) == 0 {
		return fmt.Errorf("grades must not be empty")
	}
	if len(config.Scoring.PassLikelihood) == 0 {
		return fmt.Errorf("pass_likelihood must not be empty")
	}
	if config.Scoring.MaxAnswerSeconds > 0 && config.Scoring.MaxAnswerSeconds < config.Scoring.MinAnswerSeconds {
		return fmt.Errorf("max_answer_seconds must be >= min_answer_seconds")
	}

	return nil
}

// sortThresholds сортирует пороги по убыванию
func sortThresholds(ts []Threshold) {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].MinScore > ts[j].MinScore })
}
