// Package apperr defines the error taxonomy shared by build resolution and
// deployment, plus the wrapping used to turn them into operator messages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrJenkinsSettings = errors.New("jenkins connection not configured")
	ErrLoad            = errors.New("failed to load metadata")
	ErrNotLoaded       = errors.New("metadata not loaded")
	ErrAssertion       = errors.New("assertion failed")
	ErrNoSuchBuild     = errors.New("no such build")
	ErrNoArtifactMatch = errors.New("no artifact matches")
	ErrMissingArtifact = errors.New("local artifact missing")
	ErrRemoteOperation = errors.New("remote operation failed")
	ErrRemoteTimeout   = errors.New("remote operation timed out")
)

// StepError records which deployment step failed and on what resource
// (job path, build URL, remote path, service name).
type StepError struct {
	Step     string
	Resource string
	Err      error
}

func (e *StepError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Step, e.Resource, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// UserError wraps errors with user-friendly messages
type UserError struct {
	Message string
	Hint    string
	Err     error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WrapError converts taxonomy errors to operator-facing messages. Errors
// outside the taxonomy are returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrJenkinsSettings):
		return &UserError{
			Message: "Configuration error",
			Hint:    "Set JENKINS_URL, ZANATA_JENKINS_USER and ZANATA_JENKINS_TOKEN, or provide them in the config file.",
			Err:     err,
		}
	case errors.Is(err, ErrConfiguration):
		return &UserError{
			Message: "Configuration error",
			Hint:    "Check the flags and settings named in the details; run the command with --help for usage.",
			Err:     err,
		}
	case errors.Is(err, ErrNoSuchBuild):
		return &UserError{
			Message: "No successful build found",
			Hint:    "Check the job name, --folder and --branch, and that the job has at least one successful build.",
			Err:     err,
		}
	case errors.Is(err, ErrNoArtifactMatch):
		return &UserError{
			Message: "No artifact matched",
			Hint:    "Adjust --pattern to match the artifact layout of the build.",
			Err:     err,
		}
	case errors.Is(err, ErrRemoteTimeout):
		return &UserError{
			Message: "Remote operation timed out",
			Hint:    "The deployment was aborted; earlier steps were not undone. Check the service state on the host before re-running.",
			Err:     err,
		}
	case errors.Is(err, ErrRemoteOperation):
		return &UserError{
			Message: "Remote operation failed",
			Hint:    "The deployment was aborted; earlier steps were not undone. The service may be stopped.",
			Err:     err,
		}
	}

	return err
}
