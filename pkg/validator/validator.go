package validator

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	playground "github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/learnpro/learnpro/handler"
)

const (
	notBlankTag = "notblank"
	tierTag     = "tier"
)

var tiers = []string{"free", "basic", "premium"}

// Validator checks struct tags and reports failures keyed by JSON field name.
type Validator struct {
	validate   *playground.Validate
	translator ut.Translator
}

// New builds a validator with English messages and the notblank and tier tags.
func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())

	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(v, translator)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, func(fl playground.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String && strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(tierTag, func(fl playground.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String && slices.Contains(tiers, fl.Field().String())
	})

	noop := func(ut.Translator) error { return nil }
	_ = v.RegisterTranslation(notBlankTag, translator, noop, func(_ ut.Translator, fe playground.FieldError) string {
		return fe.Field() + " cannot be blank"
	})
	_ = v.RegisterTranslation(tierTag, translator, noop, func(_ ut.Translator, fe playground.FieldError) string {
		return fe.Field() + " must be one of " + strings.Join(tiers, ", ")
	})

	return &Validator{validate: v, translator: translator}
}

// Struct validates s. Field failures are returned as handler.ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := handler.NewValidationError()
	for _, fe := range fieldErrs {
		out.Add(fieldPath(fe.Namespace()), fe.Translate(v.translator))
	}
	return out
}

// fieldPath drops the root struct name: "CreateExam.questions[0].prompt"
// becomes "questions[0].prompt".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
