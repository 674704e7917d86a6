// Package expr: sentinel error set.
// All failures surface as one of these sentinels, matched via errors.Is.
// Context (the offending source fragment) is added with fmt.Errorf("...: %w").

package expr

import "errors"

var (
	// ErrParse indicates the source text is not a well-formed expression:
	// an unexpected token, an unbalanced parenthesis, a malformed number,
	// an unknown function, or an unbound identifier.
	ErrParse = errors.New("expr: parse error")

	// ErrShape indicates an element-wise operation over two vectors of
	// different lengths.
	ErrShape = errors.New("expr: vector shape mismatch")

	// ErrNotScalar indicates a vector result where a single number was
	// required (EvalScalar, or any scalar-only consumer).
	ErrNotScalar = errors.New("expr: result is not a scalar")
)
