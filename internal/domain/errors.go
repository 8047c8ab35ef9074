package domain

import "fmt"

// ValidationError reports malformed or out-of-range domain input. It is
// returned to the caller and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

// AggregationError reports an internal invariant violation while building the
// shopping list. Given validated recipes it should not occur; it is fatal to
// the current turn only.
type AggregationError struct {
	Recipe  string
	Message string
}

func (e *AggregationError) Error() string {
	if e.Recipe != "" {
		return fmt.Sprintf("aggregation failed for %q: %s", e.Recipe, e.Message)
	}
	return fmt.Sprintf("aggregation failed: %s", e.Message)
}
