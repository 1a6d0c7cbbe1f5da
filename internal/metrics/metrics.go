package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu   sync.RWMutex
	snap Snapshot
}

// Snapshot - копия счетчиков на момент запроса
type Snapshot struct {
	SessionsStarted    int64     `json:"sessionsStarted"`
	SessionsCompleted  int64     `json:"sessionsCompleted"`
	QuestionsAsked     int64     `json:"questionsAsked"`
	QuestionsSkipped   int64     `json:"questionsSkipped"`
	AnswersEvaluated   int64     `json:"answersEvaluated"`
	QuotaRejections    int64     `json:"quotaRejections"`
	APICallsTotal      int64     `json:"apiCallsTotal"`
	APICallsSuccessful int64     `json:"apiCallsSuccessful"`
	LastUpdateTime     time.Time `json:"lastUpdateTime"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		snap: Snapshot{LastUpdateTime: time.Now()},
	}
}

func (m *Metrics) update(f func(s *Snapshot)) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f(&m.snap)
	m.snap.LastUpdateTime = time.Now()
}

func (m *Metrics) IncrementSessionsStarted() {
	m.update(func(s *Snapshot) { s.SessionsStarted++ })
}

func (m *Metrics) IncrementSessionsCompleted() {
	m.update(func(s *Snapshot) { s.SessionsCompleted++ })
}

func (m *Metrics) IncrementQuestionsAsked() {
	m.update(func(s *Snapshot) { s.QuestionsAsked++ })
}

func (m *Metrics) IncrementQuestionsSkipped() {
	m.update(func(s *Snapshot) { s.QuestionsSkipped++ })
}

func (m *Metrics) IncrementAnswersEvaluated() {
	m.update(func(s *Snapshot) { s.AnswersEvaluated++ })
}

func (m *Metrics) IncrementQuotaRejections() {
	m.update(func(s *Snapshot) { s.QuotaRejections++ })
}

func (m *Metrics) IncrementAPICall(success bool) {
	m.update(func(s *Snapshot) {
		s.APICallsTotal++
		if success {
			s.APICallsSuccessful++
		}
	})
}

func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}
