package config

import (
	"os"
	"path/filepath"
	"testing"

	"mock-interview/internal/interview"
)

func TestParseValidConfig(t *testing.T) {
	data := []byte(`
interview_config:
  question_counts: [5, 8]
interviewers:
  - interview_type: final
    name: "Suzuki"
    role: "Executive"
scoring:
  grades:
    - { min_score: 0, label: "D" }
    - { min_score: 90, label: "S" }
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := cfg.GetInterviewer(interview.TypeFinal); got.Name != "Suzuki" {
		t.Fatalf("want Suzuki, got %q", got.Name)
	}
	// unknown type falls back to first configured persona
	if got := cfg.GetInterviewer(interview.TypeFirst); got.Name != "Suzuki" {
		t.Fatalf("fallback persona: got %q", got.Name)
	}
	if cfg.Scoring.Grades[0].Label != "S" {
		t.Fatalf("grades not sorted descending: %+v", cfg.Scoring.Grades)
	}
	// weights not overridden keep defaults
	if len(cfg.Scoring.Weights) != 5 {
		t.Fatalf("want 5 default weights, got %d", len(cfg.Scoring.Weights))
	}
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"empty counts":    "interview_config:\n  question_counts: []\n",
		"negative count":  "interview_config:\n  question_counts: [-1]\n",
		"nameless":        "interviewers:\n  - role: x\n",
		"negative weight": "scoring:\n  weights:\n    logic: -1\n",
		"bad answer secs": "scoring:\n  min_answer_seconds: 50\n  max_answer_seconds: 10\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.GetQuestionCounts()) != 2 {
		t.Fatalf("default question counts: %v", cfg.GetQuestionCounts())
	}
}

func TestLoadRepositoryConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "interview.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("config file not present")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Interviewers) != 3 {
		t.Fatalf("want 3 interviewers, got %d", len(cfg.Interviewers))
	}
}

func TestLoadAppConfigDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "x.db"))
	cfg, err := LoadAppConfig()
	if err != nil {
		t.Fatalf("load app config: %v", err)
	}
	if cfg.Server.Port == 0 || cfg.Store.SessionTTL == 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Quota.Location() == nil {
		t.Fatalf("location must not be nil")
	}
}

func TestLoadAppConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := LoadAppConfig(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
