// Package validate checks request payloads with go-playground/validator and
// converts failures into models.ValidationError with per-field messages.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"ifcoins/internal/models"
)

const requiredText = "this field is required"

// Validator validates structs using their `validate` tags.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New returns a Validator that reports fields by their JSON names in English.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for _, tag := range []string{"required", "required_without"} {
		registerTranslation(v, translator, tag, requiredText)
	}

	return &Validator{validate: v, translator: translator}
}

func registerTranslation(v *validator.Validate, translator ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s. Failures are returned as *models.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return models.NewValidationError(err.Error())
	}

	fields := make([]models.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, models.FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return &models.ValidationError{Err: errors.New("invalid request"), Fields: fields}
}
