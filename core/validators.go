package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	isoDateTag  = "isodate"
	isoDateText = "date must be formatted as YYYY-MM-DD"

	hhmmTag   = "hhmm"
	hhmmText  = "time must be formatted as HH:MM"
	hhmmRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	hexColorTag   = "hexcolor_"
	hexColorText  = "color must be formatted as #RRGGBB"
	hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

	slugTag   = "slug"
	slugText  = "only lowercase letters, digits and dashes are allowed"
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	roleTag  = "role"
	roleText = "invalid role"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)

	_ = validate.RegisterValidation(hhmmTag, regexValidation(hhmmRegex))
	RegisterCustomTranslation(validate, translator, hhmmTag, hhmmText)

	_ = validate.RegisterValidation(hexColorTag, regexValidation(hexColorRegex))
	RegisterCustomTranslation(validate, translator, hexColorTag, hexColorText)

	_ = validate.RegisterValidation(slugTag, regexValidation(slugRegex))
	RegisterCustomTranslation(validate, translator, slugTag, slugText)

	_ = validate.RegisterValidation(roleTag, roleValidation)
	RegisterCustomTranslation(validate, translator, roleTag, roleText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func isoDateValidation(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

func regexValidation(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func roleValidation(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case RoleMentor, RoleMentee, RoleAdmin:
		return true
	}
	return false
}
