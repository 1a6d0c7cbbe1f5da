package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mock-interview/internal/interview"
)

// Validator проверяет разобранный ответ на полноту
type Validator interface {
	Validate() error
}

// CompleteJSON выполняет запрос и разбирает ответ в out. Любая ошибка
// вызова или разбора возвращается как interview.ErrUpstream.
func CompleteJSON(ctx context.Context, c Completer, op string, messages []Message, out any) error {
	raw, err := c.Complete(ctx, messages)
	if err != nil {
		return interview.Upstream(op, err)
	}
	if err := DecodeJSON(raw, out); err != nil {
		return interview.Upstream(op, err)
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return interview.Upstream(op, err)
		}
	}
	return nil
}

// DecodeJSON очищает markdown-обертку и разбирает JSON
func DecodeJSON(raw string, out any) error {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// cleanJSONResponse удаляет markdown форматирование из ответа
func cleanJSONResponse(response string) string {
	clean := strings.TrimSpace(response)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")
	clean = strings.TrimSpace(clean)

	// Модель иногда добавляет текст вокруг объекта
	if !strings.HasPrefix(clean, "{") {
		start := strings.Index(clean, "{")
		end := strings.LastIndex(clean, "}")
		if start >= 0 && end > start {
			clean = clean[start : end+1]
		}
	}

	return clean
}
