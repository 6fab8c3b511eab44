package main

import (
	"fmt"
	"strings"
)

// shutdownError aggregates teardown failures so closeAll can keep closing
// resources and still report every one that refused to go away. Each entry
// is tagged with the stage that produced it and wraps the cause.
type shutdownError []error

func (e shutdownError) Error() string {
	parts := make([]string, 0, len(e))
	for _, err := range e {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("shutdown left %d failure(s): %s", len(e), strings.Join(parts, "; "))
}

func (e shutdownError) Unwrap() []error {
	return e
}

// failf records a failed stage; a nil err is a no-op so call sites stay flat.
func (e *shutdownError) failf(err error, format string, args ...any) {
	if err == nil {
		return
	}
	*e = append(*e, fmt.Errorf(format+": %w", append(args, err)...))
}
