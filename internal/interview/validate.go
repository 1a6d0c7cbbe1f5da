package interview

import (
	"fmt"
	"slices"
)

// DefaultQuestionCounts - допустимое количество вопросов в сессии
var DefaultQuestionCounts = []int{5, 8}

// Validate проверяет параметры старта
func (st Settings) Validate(allowedCounts []int) error {
	if len(allowedCounts) == 0 {
		allowedCounts = DefaultQuestionCounts
	}
	if st.Industry == "" {
		return fmt.Errorf("%w: industry is required", ErrInvalidSettings)
	}
	if st.Position == "" {
		return fmt.Errorf("%w: position is required", ErrInvalidSettings)
	}
	switch st.InterviewType {
	case TypeFirst, TypeSecond, TypeFinal:
	default:
		return fmt.Errorf("%w: unknown interview type %q", ErrInvalidSettings, st.InterviewType)
	}
	if !slices.Contains(allowedCounts, st.QuestionCount) {
		return fmt.Errorf("%w: questionCount must be one of %v, got %d", ErrInvalidSettings, allowedCounts, st.QuestionCount)
	}
	return nil
}
