package cfg

import "fmt"

type UnsupportedKind int

const (
	// UnannotatedLoop is a back edge with no supplied loop invariant.
	UnannotatedLoop UnsupportedKind = iota
	// OpaqueCall is a call to a function with no known contract.
	OpaqueCall
	// UnsupportedConstruct is a source construct the normalizer cannot
	// lower to this block form.
	UnsupportedConstruct
)

// UnsupportedError means verification was not attempted, as opposed to
// attempted and refuted.
type UnsupportedError struct {
	Kind   UnsupportedKind
	Detail string
}

func (e *UnsupportedError) Error() string {
	switch e.Kind {
	case UnannotatedLoop:
		return "loop without a //verify:invariant annotation"
	case OpaqueCall:
		return fmt.Sprintf("call to %s, which carries no contract", e.Detail)
	}
	return fmt.Sprintf("unsupported construct: %s", e.Detail)
}
