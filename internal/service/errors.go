package service

import "errors"

// Errors backends map their failures onto. Commands pick messages and exit
// codes from these with errors.Is.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNotFound           = errors.New("not found")
	ErrTimeout            = errors.New("request timed out")
	ErrInvalidInput       = errors.New("invalid input")
)

type invalidInput struct {
	err error
}

func (e invalidInput) Error() string        { return e.err.Error() }
func (e invalidInput) Unwrap() error        { return e.err }
func (e invalidInput) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput marks err as a rejection of user input while keeping its
// message unchanged.
func InvalidInput(err error) error {
	if err == nil {
		return nil
	}
	return invalidInput{err: err}
}
