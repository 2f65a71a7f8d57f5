package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	trans     ut.Translator
	setupOnce sync.Once
)

// slugPattern matches category ids such as "python-basics-single" and
// "operational:cat-1a2b3c4d".
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-:][a-z0-9]+)*$`)

// IsSlug reports whether s is a valid category id.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// IsDisplayName reports whether s is usable as a nickname: no control
// characters and not only whitespace.
func IsDisplayName(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

type rule struct {
	tag     string
	message string
	check   func(string) bool
}

var rules = []rule{
	{"slug", "{0} must be a lower-case category id", IsSlug},
	{"displayname", "{0} contains invalid characters", IsDisplayName},
}

// Setup registers JSON field names, English translations and the custom
// rules on Gin's binding engine. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})

		enLocale := en.New()
		trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		for _, r := range rules {
			register(v, r)
		}
	})
}

func register(v *govalidator.Validate, r rule) {
	_ = v.RegisterValidation(r.tag, func(fl govalidator.FieldLevel) bool {
		return r.check(fl.Field().String())
	})
	_ = v.RegisterTranslation(r.tag, trans,
		func(t ut.Translator) error { return t.Add(r.tag, r.message, true) },
		func(t ut.Translator, fe govalidator.FieldError) string {
			msg, _ := t.T(r.tag, fe.Field())
			return msg
		},
	)
}

// TranslateErrors maps a binding error to field -> message. Errors that are
// not validation failures, such as malformed JSON, land under "detail".
func TranslateErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if trans == nil {
			fields[fe.Field()] = fe.Error()
			continue
		}
		fields[fe.Field()] = fe.Translate(trans)
	}
	return fields
}

// Bind decodes and validates the JSON body into dst.
func Bind(c *gin.Context, dst any) map[string]string {
	return check(c.ShouldBindJSON(dst))
}

// BindURI binds and validates path parameters into dst.
func BindURI(c *gin.Context, dst any) map[string]string {
	return check(c.ShouldBindUri(dst))
}

// Struct validates v outside of a request, e.g. from the CLI.
func Struct(v any) map[string]string {
	return check(binding.Validator.ValidateStruct(v))
}

func check(err error) map[string]string {
	if err == nil {
		return nil
	}
	return TranslateErrors(err)
}
