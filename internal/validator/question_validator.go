package validator

import (
	"fmt"
	"strings"

	apperrors "github.com/corplearn/training-service/internal/errors"
	"github.com/corplearn/training-service/internal/models"
)

// QuestionValidator checks question content beyond struct tags: exactly
// four non-empty options and a correct index that points inside them.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateContent validates a question's option list and correct index.
func (qv *QuestionValidator) ValidateContent(question *models.Question) apperrors.ValidationErrors {
	var errs apperrors.ValidationErrors

	if strings.TrimSpace(question.Text) == "" {
		errs = append(errs, *apperrors.NewValidationError("text", "is required", question.Text))
	}

	options, err := question.OptionList()
	if err != nil {
		errs = append(errs, *apperrors.NewValidationError("options", "must be a JSON array of strings", nil))
		return errs
	}

	if len(options) != models.OptionCount {
		errs = append(errs, *apperrors.NewValidationError("options",
			fmt.Sprintf("must contain exactly %d options", models.OptionCount), len(options)))
	}

	for i, opt := range options {
		if strings.TrimSpace(opt) == "" {
			errs = append(errs, *apperrors.NewValidationError(
				fmt.Sprintf("options[%d]", i), "must not be empty", opt))
		}
	}

	if question.CorrectAnswer < 0 || question.CorrectAnswer >= len(options) {
		errs = append(errs, *apperrors.NewValidationError("correct_answer",
			"must point at one of the options", question.CorrectAnswer))
	}

	return errs
}
