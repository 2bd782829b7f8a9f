package cli

import (
	"fmt"
	"io"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

// PrintError prints an error with appropriate formatting.
// If the error is a PlankError, it uses the user-friendly format.
// Otherwise, it prints a simple error message.
func PrintError(w io.Writer, err error, verbose bool) {
	if pe := plankerrors.AsPlankError(err); pe != nil {
		fmt.Fprintln(w, pe.UserMessage())
		if verbose {
			// In verbose mode, also print the error code and cause
			fmt.Fprintf(w, "\nCode: %s\n", pe.Code)
			if pe.Cause != nil {
				fmt.Fprintf(w, "Cause: %v\n", pe.Cause)
			}
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// invalidFlag wraps a flag parsing failure as an input error.
func invalidFlag(name string, err error) error {
	return plankerrors.ErrInvalidInput("--"+name, err.Error())
}

func errProjectNotFound(id string) error {
	return plankerrors.ErrEntityNotFound("project", id)
}

func errTaskNotFound(id string) error {
	return plankerrors.ErrEntityNotFound("task", id)
}
