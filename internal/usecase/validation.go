package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainErrors "github.com/jamilahmedansari/letterdesk/internal/domain/errors"
	"github.com/jamilahmedansari/letterdesk/internal/domain/model"
)

var intakeValidator = newIntakeValidator()

func newIntakeValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateIntake trims and checks the intake questionnaire, returning the normalised copy.
func ValidateIntake(in model.Intake) (model.Intake, error) {
	out := in.Clone()
	out.LetterType = model.LetterType(strings.ToLower(strings.TrimSpace(string(out.LetterType))))
	out.SenderName = strings.TrimSpace(out.SenderName)
	out.RecipientName = strings.TrimSpace(out.RecipientName)
	out.RecipientAddress = strings.TrimSpace(out.RecipientAddress)
	out.Subject = strings.TrimSpace(out.Subject)
	out.Details = strings.TrimSpace(out.Details)
	out.DesiredOutcome = strings.TrimSpace(out.DesiredOutcome)

	if err := intakeValidator.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return model.Intake{}, fmt.Errorf("%w: %v", domainErrors.ErrInvalidInput, err)
		}
		problems := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			problems = append(problems, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
		return model.Intake{}, fmt.Errorf("%w: %s", domainErrors.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return out, nil
}
