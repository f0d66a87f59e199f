package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unbfeelings/backend/core"
)

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		pwd   string
		attrs []string
		want  string
	}{
		{pwd: "short", want: pwdMinLenTag},
		{pwd: "1234567890", want: pwdNotAllNumTag},
		{pwd: "joanasilva", attrs: []string{"Joana Silva", "js@unb.br"}, want: pwdAttrSimTag},
		{pwd: "joanasilva1", attrs: []string{"", "joanasilva@unb.br"}, want: pwdAttrSimTag},
		{pwd: "password", want: pwdNoCommonTag},
		{pwd: "Unb-F33lings!", attrs: []string{"Joana Silva", "joana@unb.br"}},
	}
	for _, tt := range tests {
		t.Run(tt.pwd, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPassword(tt.pwd, tt.attrs...))
		})
	}
}

func TestUserStructValidation(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	translate := func(err error) map[string]string {
		fields := make(map[string]string)
		var vErrs validator.ValidationErrors
		if assert.ErrorAs(t, err, &vErrs) {
			for _, fe := range vErrs {
				fields[fe.Field()] = fe.Translate(translator)
			}
		}
		return fields
	}

	t.Run("new student", func(t *testing.T) {
		ns := NewStudent{Email: " Joana@UnB.br ", Name: "Joana", Password: "joana123", CourseID: 1}
		err := ns.Validate(validate)
		assert.Equal(t, "joana@unb.br", ns.Email)
		assert.Equal(t, map[string]string{"password": pwdAttrSimText}, translate(err))
	})

	t.Run("required fields", func(t *testing.T) {
		ns := NewStudent{}
		assert.Equal(t, map[string]string{
			"email":    "this field is required",
			"password": "this field is required",
			"course":   "this field is required",
		}, translate(ns.Validate(validate)))
	})

	t.Run("update keeps empty password", func(t *testing.T) {
		orig := Student{User: User{Email: "joana@unb.br", Name: "Joana"}, CourseID: 1}
		us := UpdateStudent{Name: "Joana Silva"}
		require.NoError(t, us.Validate(orig, true, validate))
		assert.Equal(t, "joana@unb.br", us.Email)
		assert.Equal(t, 1, us.CourseID)
	})

	t.Run("full update requires fields", func(t *testing.T) {
		orig := Student{User: User{Email: "joana@unb.br"}, CourseID: 1}
		us := UpdateStudent{Password: "12345678901"}
		assert.Equal(t, map[string]string{
			"email":    "this field is required",
			"course":   "this field is required",
			"password": pwdNotAllNumText,
		}, translate(us.Validate(orig, false, validate)))
	})

	t.Run("reset password confirmation", func(t *testing.T) {
		rp := ResetUserPassword{Token: "t", UID: "u", Password: "Unb-F33lings!", PasswordConfirm: "lol"}
		fields := translate(rp.Validate(validate))
		assert.Contains(t, fields, "password_confirm")
	})
}
