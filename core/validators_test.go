package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitValidators(t *testing.T) {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	InitValidators(validate, translator)

	type input struct {
		Title string `json:"title" validate:"notblank"`
		Date  string `json:"date" validate:"omitempty,isodate"`
		Start string `json:"startTime" validate:"omitempty,hhmm"`
		Color string `json:"color" validate:"omitempty,hexcolor_"`
		Slug  string `json:"slug" validate:"omitempty,slug"`
		Role  string `json:"role" validate:"omitempty,role"`
	}

	tests := []struct {
		name    string
		in      input
		field   string
		message string
	}{
		{name: "valid", in: input{Title: "a", Date: "2026-02-28", Start: "23:59", Color: "#A1b2C3", Slug: "study-tips-2", Role: RoleMentee}},
		{name: "blank", in: input{Title: " \t"}, field: "title", message: notBlankText},
		{name: "impossible date", in: input{Title: "a", Date: "2026-02-30"}, field: "date", message: isoDateText},
		{name: "hour out of range", in: input{Title: "a", Start: "24:00"}, field: "startTime", message: hhmmText},
		{name: "short color", in: input{Title: "a", Color: "#fff"}, field: "color", message: hexColorText},
		{name: "uppercase slug", in: input{Title: "a", Slug: "Study-Tips"}, field: "slug", message: slugText},
		{name: "unknown role", in: input{Title: "a", Role: "teacher"}, field: "role", message: roleText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tt.field, vErrs[0].Field())
			assert.Equal(t, tt.message, vErrs[0].Translate(translator))
		})
	}
}

func TestDateRange(t *testing.T) {
	dr := DateRange{From: "2026-03-01", To: "2026-03-07"}
	assert.True(t, dr.Contains("2026-03-01"))
	assert.True(t, dr.Contains("2026-03-07"))
	assert.False(t, dr.Contains("2026-03-08"))
	assert.False(t, dr.Contains("2026-02-28"))
	assert.Equal(t, "2026-03-01..2026-03-07", dr.Key())
	assert.NoError(t, dr.Validate())

	open := DateRange{From: "2026-03-01"}
	assert.True(t, open.Contains("2030-01-01"))
	assert.Equal(t, "all", DateRange{}.Key())

	var vErr *ValidationError
	require.ErrorAs(t, DateRange{From: "2026-03-07", To: "2026-03-01"}.Validate(), &vErr)
	assert.Equal(t, "from", vErr.Fields[0].Field)
}
