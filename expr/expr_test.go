package expr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinetigo/kinetiq/expr"
)

// TestEval_ScalarArithmetic exercises the operator set and precedence on
// scalar-only input, including the reference fixtures used throughout the
// model tests.
func TestEval_ScalarArithmetic(t *testing.T) {
	env := expr.NewEnv()
	env.BindScalar("z", 3)

	cases := map[string]float64{
		"1+2*3":                    7,
		"(1+2)*3":                  9,
		"2^3^2":                    512, // right-assoc
		"-2^2":                     -4,  // unary binds looser than ^
		"3.14*z":                   9.42,
		"sqrt(((2+0)*-3.14)^2)":    6.28,
		"15*1+(0*7)^3":             15,
		"-100.1-0/sqrt(9.45)":      -100.1,
		"1e-3*1000":                1,
		"abs(-4)/2":                2,
		"log(exp(2))":              2,
		"cos(0)+sin(0)":            1,
		"floor(2.7)+ceil(0.2)":     3,
		"sign(-8)*sign(3)+sign(0)": -1,
	}
	for src, want := range cases {
		got, err := expr.EvalScalar(src, env)
		require.NoError(t, err, src)
		assert.InDelta(t, want, got, 1e-12, src)
	}
}

// TestEval_EmptySource verifies that blank input evaluates to scalar 0.
func TestEval_EmptySource(t *testing.T) {
	for _, src := range []string{"", "   ", "\t\n"} {
		got, err := expr.EvalScalar(src, expr.NewEnv())
		require.NoError(t, err)
		assert.Zero(t, got)
	}
}

// TestEval_VectorBroadcast verifies element-wise broadcasting between
// scalars and vectors bound in the environment.
func TestEval_VectorBroadcast(t *testing.T) {
	env := expr.NewEnv()
	env.BindVector("t", []float64{0, 1, 2, 3})
	env.BindScalar("a", 2)

	v, err := expr.Eval("a*t+1", env)
	require.NoError(t, err)
	require.True(t, v.IsVector())
	got, err := v.Slice(4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 5, 7}, got)

	// unary function over a vector
	v, err = expr.Eval("exp(-t)", env)
	require.NoError(t, err)
	got, err = v.Slice(4)
	require.NoError(t, err)
	for i, x := range []float64{0, 1, 2, 3} {
		assert.InDelta(t, math.Exp(-x), got[i], 1e-15)
	}
}

// TestEval_ShapeMismatch verifies ErrShape on unequal vector lengths.
func TestEval_ShapeMismatch(t *testing.T) {
	env := expr.NewEnv()
	env.BindVector("u", []float64{1, 2, 3})
	env.BindVector("w", []float64{1, 2})

	_, err := expr.Eval("u+w", env)
	assert.ErrorIs(t, err, expr.ErrShape)
}

// TestEval_NotScalar verifies ErrNotScalar when a vector reaches a
// scalar-only consumer, and that length-1 vectors coerce.
func TestEval_NotScalar(t *testing.T) {
	env := expr.NewEnv()
	env.BindVector("t", []float64{1, 2, 3})
	_, err := expr.EvalScalar("t*2", env)
	assert.ErrorIs(t, err, expr.ErrNotScalar)

	env2 := expr.NewEnv()
	env2.BindVector("one", []float64{5})
	x, err := expr.EvalScalar("one+1", env2)
	require.NoError(t, err)
	assert.Equal(t, 6.0, x)
}

// TestEval_ParseErrors verifies ErrParse on malformed input, unknown
// functions and unbound identifiers.
func TestEval_ParseErrors(t *testing.T) {
	env := expr.NewEnv()
	for _, src := range []string{"1+", "(1+2", "2**3", "frob(1)", "nope+1", "1 2"} {
		_, err := expr.Eval(src, env)
		assert.ErrorIs(t, err, expr.ErrParse, src)
	}
}

// TestEval_Reducers verifies the vector→scalar reduction functions used
// by windowed summaries.
func TestEval_Reducers(t *testing.T) {
	env := expr.NewEnv()
	env.BindVector("w", []float64{2, -5, 3})

	cases := map[string]float64{
		"sum(w)":      0,
		"mean(w)":     0,
		"min(w)":      -5,
		"max(w)":      3,
		"max(abs(w))": 5,
		"mean(4)":     4, // scalar argument is a length-1 vector
	}
	for src, want := range cases {
		got, err := expr.EvalScalar(src, env)
		require.NoError(t, err, src)
		assert.InDelta(t, want, got, 1e-12, src)
	}
}

// TestEvalVector_Materialize verifies scalar results broadcast to the
// requested sample count.
func TestEvalVector_Materialize(t *testing.T) {
	out, err := expr.EvalVector("2+3", expr.NewEnv(), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 5, 5}, out)
}

// TestIsNumber covers the pure-number detection used by the free-variable
// accessors.
func TestIsNumber(t *testing.T) {
	x, ok := expr.IsNumber(" -3.5 ")
	require.True(t, ok)
	assert.Equal(t, -3.5, x)

	x, ok = expr.IsNumber("1e2")
	require.True(t, ok)
	assert.Equal(t, 100.0, x)

	for _, src := range []string{"", "x", "1+2", "sqrt(4)"} {
		_, ok := expr.IsNumber(src)
		assert.False(t, ok, src)
	}
}
