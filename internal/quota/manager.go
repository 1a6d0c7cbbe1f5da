// Package quota считает бесплатные сессии пользователя за календарный месяц.
package quota

import (
	"context"
	"fmt"
	"time"

	"mock-interview/internal/storage"
)

// Reservation - результат попытки списать единицу квоты
type Reservation struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Period    string `json:"period"`
}

// Status - текущее состояние квоты пользователя
type Status struct {
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Period    string `json:"period"`
}

// Manager выдает месячную квоту. Счетчик хранится в storage по ключу
// (userID, "YYYY-MM"), поэтому новый месяц начинается с нуля.
type Manager struct {
	counter storage.QuotaCounter
	limit   int
	loc     *time.Location
	now     func() time.Time
}

// New создает менеджер квоты
func New(counter storage.QuotaCounter, monthlyLimit int, loc *time.Location) *Manager {
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{counter: counter, limit: monthlyLimit, loc: loc, now: time.Now}
}

// WithClock подменяет источник времени
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Limit возвращает месячный лимит
func (m *Manager) Limit() int {
	return m.limit
}

// Period возвращает ключ текущего месяца
func (m *Manager) Period() string {
	return m.now().In(m.loc).Format("2006-01")
}

// RemainingFor возвращает оставшееся количество сессий в текущем месяце
func (m *Manager) RemainingFor(ctx context.Context, userID string) (int, error) {
	used, err := m.counter.Used(ctx, userID, m.Period())
	if err != nil {
		return 0, fmt.Errorf("failed to read quota for %s: %w", userID, err)
	}
	return max(0, m.limit-used), nil
}

// Status возвращает состояние квоты для отображения
func (m *Manager) Status(ctx context.Context, userID string) (Status, error) {
	remaining, err := m.RemainingFor(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{Remaining: remaining, Limit: m.limit, Period: m.Period()}, nil
}

// CheckAndReserve атомарно списывает единицу квоты за сессию, если она есть.
// Для одной сессии квота списывается не более одного раза: повторный вызов
// возвращает тот же ответ.
func (m *Manager) CheckAndReserve(ctx context.Context, userID, sessionID string) (Reservation, error) {
	period := m.Period()
	ok, err := m.counter.Charge(ctx, sessionID, userID, period, m.limit)
	if err != nil {
		return Reservation{}, fmt.Errorf("failed to reserve quota for %s: %w", userID, err)
	}

	used, err := m.counter.Used(ctx, userID, period)
	if err != nil {
		return Reservation{}, fmt.Errorf("failed to read quota for %s: %w", userID, err)
	}
	return Reservation{Allowed: ok, Remaining: max(0, m.limit-used), Period: period}, nil
}
