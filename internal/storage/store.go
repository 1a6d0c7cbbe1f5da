package storage

import (
	"context"
	"errors"

	"mock-interview/internal/interview"
)

var (
	// ErrNotFound - записи нет или она истекла
	ErrNotFound = errors.New("record not found")
	// ErrConflict - запись изменилась с момента чтения
	ErrConflict = errors.New("record version conflict")
)

// Record - сессия вместе с версией для условного обновления
type Record struct {
	Session *interview.Session
	Version int64
}

// SessionStore хранит сессии с ограниченным временем жизни.
// Update применяется только если версия совпадает с прочитанной.
// Истекшие сессии не возвращаются, даже если еще не удалены.
type SessionStore interface {
	Create(ctx context.Context, sess *interview.Session) error
	Get(ctx context.Context, id string) (*Record, error)
	Update(ctx context.Context, sess *interview.Session, version int64) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// QuotaCounter - атомарный счетчик использований по (user, period)
type QuotaCounter interface {
	Used(ctx context.Context, userID, period string) (int, error)
	// Charge увеличивает счетчик, только если он меньше limit, и делает
	// это не более одного раза для chargeID
	Charge(ctx context.Context, chargeID, userID, period string, limit int) (bool, error)
}
