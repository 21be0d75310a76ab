package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/stage/core"
)

func Test_checkPassword(t *testing.T) {
	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no upper", pwd: "abcd123!!", want: pwdComplexityTag},
		{name: "no special", pwd: "Abcd12345", want: pwdComplexityTag},
		{name: "similar to username", pwd: "Janedoe1!", want: pwdAttrSimTag},
		{name: "strong", pwd: "Secret-123!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPassword(tt.pwd, "Jane Doe", "janedoe", "jane@stage.test"))
		})
	}
}

func TestValidatePassword(t *testing.T) {
	usr := User{Name: "Jane Doe", Username: "janedoe"}
	assert.NoError(t, ValidatePassword("Secret-123!", usr))
	assert.EqualError(t, ValidatePassword("12345678", usr), pwdNotAllNumText)
}

func TestNewUser_validation(t *testing.T) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	tests := []struct {
		name       string
		nu         NewUser
		wantFields map[string]string
	}{
		{
			name: "no username nor email",
			nu:   NewUser{Name: "Jane", Password: "Secret-123!", PasswordConfirm: "Secret-123!"},
			wantFields: map[string]string{
				"username": usernameOrEmailText,
				"email":    usernameOrEmailText,
			},
		},
		{
			name:       "password mismatch",
			nu:         NewUser{Name: "Jane", Username: "jane", Password: "Secret-123!", PasswordConfirm: "Secret-321!"},
			wantFields: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
		{
			name:       "weak password",
			nu:         NewUser{Name: "Jane", Username: "jane", Password: "secret", PasswordConfirm: "secret"},
			wantFields: map[string]string{"password": pwdMinLenText},
		},
		{
			name:       "invalid roles",
			nu:         NewUser{Name: "Jane", Username: "jane", Password: "Secret-123!", PasswordConfirm: "Secret-123!", Roles: []string{RoleStudent, "admin"}},
			wantFields: map[string]string{"roles": allRolesText},
		},
		{
			name: "valid",
			nu:   NewUser{Name: "Jane", Email: "jane@stage.test", Password: "Secret-123!", PasswordConfirm: "Secret-123!", Roles: []string{RoleStudent}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.nu)
			if tt.wantFields == nil {
				require.NoError(t, err)
				return
			}
			vErr, ok := core.TranslateValidationErrors(err, translator).(*core.ValidationError)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantFields, vErr.FieldMap())
		})
	}
}
