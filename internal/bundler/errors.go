package bundler

import "fmt"

// BuildError is the single failure type a build surfaces to callers. The
// message already aggregates any engine diagnostics; there are no structured
// fields beyond it in the current contract.
type BuildError struct {
	Message string
}

func (e *BuildError) Error() string {
	return e.Message
}

func newBuildError(format string, args ...any) *BuildError {
	return &BuildError{Message: fmt.Sprintf(format, args...)}
}
