package runtime

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-listbind/internal/client"
)

var (
	// ErrNoDocument reports Init called without a document.
	ErrNoDocument = errors.New("runtime: document is required")
	// ErrUnknownList reports an operation on a list that was not discovered.
	ErrUnknownList = errors.New("runtime: unknown list")
	// ErrUnknownAction reports an unrecognised action name.
	ErrUnknownAction = errors.New("runtime: unknown action")
	// ErrUnknownFilter reports a filter change for a list without that control.
	ErrUnknownFilter = errors.New("runtime: unknown filter")
	// ErrMissingTemplate reports a list container without a template element.
	ErrMissingTemplate = errors.New("runtime: list has no template")
)

func configError(listID string, cause error) error {
	return client.ConfigError(fmt.Errorf("list %s: %w", listID, cause))
}

// message returns the text shown in a list's error element.
func message(err error) string {
	if apiErr, ok := client.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
