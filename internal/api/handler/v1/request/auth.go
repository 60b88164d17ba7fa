package request

import (
	"errors"
	"regexp"

	"github.com/dlclark/regexp2"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// At least 8 characters with one letter and one digit.
	passwordRegexPattern = `^(?=.*[A-Za-z])(?=.*\d).{8,72}$`
)

var (
	passwordExp = regexp2.MustCompile(passwordRegexPattern, regexp2.None)
	usernameExp = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

	errInvalidPassword         = errors.New("must be 8 to 72 characters and contain at least 1 letter and 1 number")
	errConfirmPasswordMismatch = errors.New("doesn't match the password")
)

type RegisterRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password,omitempty"`
}

func (req *RegisterRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Username, validation.Required, validation.Length(3, 50), validation.Match(usernameExp)),
		validation.Field(&req.Password, validation.Required, validation.By(passwordPolicy)),
		validation.Field(&req.ConfirmPassword, validation.By(func(value interface{}) error {
			if confirm, _ := value.(string); confirm != "" && confirm != req.Password {
				return errConfirmPasswordMismatch
			}
			return nil
		})),
	)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Username, validation.Required),
		validation.Field(&req.Password, validation.Required),
	)
}

func passwordPolicy(value interface{}) error {
	password, _ := value.(string)
	if password == "" {
		return nil
	}

	ok, err := passwordExp.MatchString(password)
	if err != nil || !ok {
		return errInvalidPassword
	}

	return nil
}
