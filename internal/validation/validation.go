// Package validation checks form structs against their `validate` tags and
// turns failures into apperror validation errors with readable messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/sakif/studyhub/internal/apperror"
)

// custom validation tags & texts
const (
	notBlankTag  = "notblank_"
	notBlankText = "{0} must not be blank"
)

// Validator wraps a configured *validator.Validate and its English translator.
// It is safe for concurrent use once built.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New builds a Validator with English messages. Field names in messages come
// from the `form` tag, so users see the same names as the HTML inputs.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		return nil, fmt.Errorf("validation: registering translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	if err := validate.RegisterValidation(notBlankTag, notBlank); err != nil {
		return nil, fmt.Errorf("validation: registering %s: %w", notBlankTag, err)
	}
	if err := registerTranslation(validate, translator, notBlankTag, notBlankText); err != nil {
		return nil, err
	}

	return &Validator{validate: validate, translator: translator}, nil
}

// MustNew is New for package-level setup and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Struct validates s. The first failing field (in declaration order) is
// returned as an apperror validation error carrying the field name.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperror.ValidationFailed(fe.Field(), fe.Translate(v.translator))
	}
	return fmt.Errorf("validation: %w", err)
}

// registerTranslation registers a message for a custom tag. {0} is the field name.
func registerTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) error {
	err := validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
	if err != nil {
		return fmt.Errorf("validation: registering translation for %s: %w", tag, err)
	}
	return nil
}

// notBlank rejects strings made only of whitespace.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}
