// Package expr implements the small arithmetic expression language used by
// kinetic models and stimulus protocols.
//
// Expressions combine numeric literals, named symbols and unary functions
// with the operators + - * / ^ and parenthesised grouping. Symbols resolve
// in an open, per-evaluation environment binding names to either a scalar
// or a length-N sample vector; all operators broadcast element-wise across
// scalars and equal-length vectors, so a single evaluation with "t" bound
// to the sample times computes a whole time course.
//
// The evaluator is stateless between calls: build an Env, bind what the
// expression may reference, then Eval. Vectors are bound by borrowed slice
// and never copied on binding; scalars are bound by value.
//
//	env := expr.NewEnv()
//	env.BindScalar("k", 3.14)
//	env.BindVector("t", times)
//	v, err := expr.Eval("exp(-k*t)", env)
//
// An empty (or all-blank) source evaluates to the scalar 0, matching the
// convention that an unset model field contributes nothing.
//
// Errors:
//
//	ErrParse     - the source is not a well-formed expression.
//	ErrShape     - element-wise operands have different lengths.
//	ErrNotScalar - a scalar was required but a vector was produced.
package expr
