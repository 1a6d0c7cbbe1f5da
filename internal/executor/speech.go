package executor

import (
	"context"
	"errors"
)

// ErrSpeechUnsupported возвращают реализации без синтеза и распознавания речи
var ErrSpeechUnsupported = errors.New("speech is not supported")

// Speech - голосовые возможности хоста. Синтез и распознавание не работают
// одновременно.
type Speech interface {
	IsSupported() bool
	// Speak блокируется до конца фразы или Cancel
	Speak(ctx context.Context, text string) error
	// Listen блокируется до Stop или Cancel и возвращает распознанный текст
	Listen(ctx context.Context) (string, error)
	// Stop завершает распознавание, сохраняя уже распознанное
	Stop()
	// Cancel прерывает синтез и распознавание
	Cancel()
}

// TextOnly - Speech без голоса: ответы вводятся текстом
type TextOnly struct{}

func (TextOnly) IsSupported() bool                            { return false }
func (TextOnly) Speak(ctx context.Context, text string) error { return ErrSpeechUnsupported }
func (TextOnly) Listen(ctx context.Context) (string, error)   { return "", ErrSpeechUnsupported }
func (TextOnly) Stop()                                        {}
func (TextOnly) Cancel()                                      {}
