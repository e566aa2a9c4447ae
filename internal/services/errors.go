package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSecurity marks archive security violations. Aggregate-scope instances
	// abort the run; per-member instances are skipped before an error is built.
	ErrSecurity = errors.New("security violation")
	// ErrStructural marks a missing or unparsable manifest. Nothing can be
	// imported without one.
	ErrStructural = errors.New("structural parse failure")
	// ErrTransform marks a single resource that could not be transformed. The
	// rest of the import proceeds.
	ErrTransform = errors.New("transform failure")
	// ErrRegistry marks persisted registry or rubric document problems.
	ErrRegistry = errors.New("registry failure")

	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransform
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error must unwind to the top-level run function.
// Per-resource and registry failures are recoverable; everything that leaves
// the pipeline without a usable input or output is not.
func IsFatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTransform), errors.Is(err, ErrRegistry):
		return false
	default:
		return true
	}
}

// ClassifyFailure maps an error onto the short category label used in exit
// messages and ledger rows.
func ClassifyFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSecurity):
		return "security"
	case errors.Is(err, ErrStructural):
		return "structural"
	case errors.Is(err, ErrTransform):
		return "transform"
	case errors.Is(err, ErrRegistry):
		return "registry"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not found"
	default:
		return "failure"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
