package plan

import "fmt"

// ContractError reports that the generation capability returned something
// violating the structural contract (wrong recipe count, missing fields,
// negative nutrition). It is distinct from transport failures so the caller
// can decide between retrying with a stricter contract and aborting the
// stage.
type ContractError struct {
	Reason string
	Raw    string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("generation contract violated: %s", e.Reason)
}

// UpstreamError reports that the generation capability was unreachable or
// timed out after bounded retries.
type UpstreamError struct {
	Cause error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("generation capability unavailable: %v", e.Cause)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}
