package webAuth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type credentialsInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,password"`
}

type registerInput struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,password"`
	Name     string `validate:"max=100"`
}

type emailInput struct {
	Email string `validate:"required,email,max=254"`
}

type newPasswordInput struct {
	Password string `validate:"required,password"`
}

// totpCodeInput only checks shape; a wrong-shaped code is reported as an invalid
// code, not as a validation error.
type totpCodeInput struct {
	Code string `validate:"required,number"`
}

type inputValidator struct {
	validate  *validator.Validate
	minLength int
	maxLength int
}

func newInputValidator(cfg PasswordConfig) (*inputValidator, error) {
	v := &inputValidator{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		minLength: cfg.MinLength,
		maxLength: cfg.MaxLength,
	}
	if err := v.validate.RegisterValidation("password", v.passwordRule); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *inputValidator) passwordRule(fl validator.FieldLevel) bool {
	n := len(fl.Field().String())
	return n >= v.minLength && n <= v.maxLength
}

// Struct validates in and converts failures into a *ValidationError.
func (v *inputValidator) Struct(in any) error {
	err := v.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: map[string]string{"_": err.Error()}}
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field())
		if _, seen := out.Fields[field]; seen {
			continue
		}
		out.Fields[field] = v.message(fe)
	}
	return out
}

func (v *inputValidator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "password":
		return fmt.Sprintf("must be between %d and %d characters", v.minLength, v.maxLength)
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "number":
		return "must contain only digits"
	default:
		return "is invalid"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
