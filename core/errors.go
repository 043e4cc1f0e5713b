package core

// These errors are user errors, not internal errors, with the single
// exception of NetworkUninitialized, which indicates a programmer
// error inside this package.

// InvalidDSL occurs when a Condition tree is ill-formed: a Type
// together with a composite key, a Test together with a composite
// key, or more than one composite key set at once.
type InvalidDSL struct {
	Reason string
}

func (e *InvalidDSL) Error() string {
	return "invalid condition: " + e.Reason
}

// MissingType occurs when a fact payload is added without a type.
type MissingType struct{}

func (e *MissingType) Error() string {
	return "fact payload lacks a type"
}

// TypeImmutable occurs when UpdateFact is given a partial payload
// that changes a fact's type.
type TypeImmutable struct {
	ID FactID
}

func (e *TypeImmutable) Error() string {
	return "fact type is immutable after insertion"
}

// NotFound occurs when no fact exists with the given id.
type NotFound struct {
	ID FactID
}

func (e *NotFound) Error() string {
	return "no fact found"
}

// MaxCyclesExceeded occurs when Run's cycle count reaches maxCycles
// without reaching a fixed point.
type MaxCyclesExceeded struct {
	Limit int
}

func (e *MaxCyclesExceeded) Error() string {
	return "max cycles exceeded"
}

// NetworkUninitialized occurs when a node is evaluated before working
// memory has been injected into it. Compile and AddRule should make
// this impossible; seeing it means this package has a bug.
type NetworkUninitialized struct{}

func (e *NetworkUninitialized) Error() string {
	return "node network evaluated before working memory was injected"
}
