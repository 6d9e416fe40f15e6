package service

import (
	"errors"
	"strings"

	"github.com/mentoria/mentoria-go/internal/llm"
)

var (
	ErrMissingFields     = errors.New("missing required fields")
	ErrInvalidUsername   = errors.New("username must have at least 3 characters")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrPasswordTooShort  = errors.New("password must have at least 6 characters")
	ErrUserExists        = errors.New("username or email already registered")
	ErrUserNotFound      = errors.New("user not found")
	ErrIncorrectPassword = errors.New("incorrect password")

	ErrPasswordsRequired       = errors.New("current and new password are required")
	ErrCurrentPasswordRequired = errors.New("current password is required to change it")
	ErrWrongCurrentPassword    = errors.New("current password is incorrect")
	ErrUsernameTaken           = errors.New("username already in use")
	ErrEmailTaken              = errors.New("email already in use")
	ErrNothingToUpdate         = errors.New("nothing to update")
	ErrInvalidTheme            = errors.New("invalid theme mode")

	ErrMissingToken = errors.New("missing session token")
	ErrInvalidToken = errors.New("invalid or expired session token")

	ErrEmptyPrompt         = errors.New("prompt is required")
	ErrChatSessionNotFound = errors.New("chat session not found")

	ErrInvalidTopic       = errors.New("topic must have at least 3 characters")
	ErrInvalidAnswerCount = errors.New("exactly 10 answers are required")
	ErrQuizNotFound       = errors.New("quiz not found")
	ErrEmptyModelResponse = errors.New("empty model response")
	ErrUnparseableQuiz    = errors.New("model response is not a quiz")
)

// ErrUpstream is the generation backend failure. It is the llm package's
// sentinel so errors.Is matches regardless of which layer wrapped it.
var ErrUpstream = llm.ErrUpstream

// ProfileErrors collects every validation failure of a combined profile update.
type ProfileErrors []error

func (e ProfileErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, ", ")
}

func (e ProfileErrors) Unwrap() []error {
	return e
}
