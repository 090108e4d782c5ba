package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/hooks/errors"
)

// ErrorHandler turns errors from the maintenance commands into readable
// messages. Hook subcommands never reach it: they always succeed.
type ErrorHandler struct {
	Out     io.Writer
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(out io.Writer, verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Out:     out,
		Verbose: verbose,
	}
}

// Handle prints a message for err based on its code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	s := DefaultStyles
	prefix := s.Error.Render("Error:")

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "%s %v\n", prefix, err)
		fmt.Fprintln(h.Out, s.Muted.Render("Run 'grove-hooks config schema' to see the accepted keys."))

	case errors.ErrCodeGitNotRepo:
		fmt.Fprintf(h.Out, "%s %v\n", prefix, err)
		fmt.Fprintln(h.Out, s.Muted.Render("Run this command from inside a git work tree."))

	case errors.ErrCodeCommandNotFound:
		fmt.Fprintf(h.Out, "%s required command not found. Make sure git is installed and on PATH.\n", prefix)

	case errors.ErrCodeCommandTimeout:
		details := groveDetails(err)
		fmt.Fprintf(h.Out, "%s %v did not finish within %v\n", prefix, details["command"], details["timeout"])
		fmt.Fprintln(h.Out, s.Muted.Render("Raise GROVE_HOOKS_GIT_TIMEOUT if the repository is large."))

	default:
		fmt.Fprintf(h.Out, "%s %v\n", prefix, err)
	}

	if h.Verbose {
		if groveErr := findGroveError(err); groveErr != nil {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", groveErr.ToJSON())
		}
	}
	return err
}

// findGroveError returns the outermost GroveError in err's chain.
func findGroveError(err error) *errors.GroveError {
	for err != nil {
		if groveErr, ok := err.(*errors.GroveError); ok {
			return groveErr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}

func groveDetails(err error) map[string]interface{} {
	if groveErr := findGroveError(err); groveErr != nil && groveErr.Details != nil {
		return groveErr.Details
	}
	return map[string]interface{}{}
}
