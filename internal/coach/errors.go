package coach

import (
	"fmt"

	"nutrition-coach/internal/domain"
)

// StageViolationError signals that an operation was called out of order, e.g.
// asking for a plan before preferences are in.
type StageViolationError struct {
	Op       string
	Current  domain.Stage
	Required domain.Stage
}

func (e *StageViolationError) Error() string {
	return fmt.Sprintf("%s requires stage %q, session is at %q", e.Op, e.Required, e.Current)
}
