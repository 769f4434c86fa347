package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	expr, err := Parse(src)
	require.NoError(t, err)
	return expr
}

func TestSubst(t *testing.T) {
	tests := []struct {
		src  string
		name string
		repl string
		want string
	}{
		{"x > 0", "x", "x + 1", "x + 1 > 0"},
		{"x + x == y", "x", "2", "2 + 2 == y"},
		{"y > 0", "x", "1", "y > 0"},
		{"ret >= n", "ret", "n - 1", "n - 1 >= n"},
		{"!(x == 0) ==> y / x > 0", "y", "x * x", "!(x == 0) ==> x * x / x > 0"},
	}
	for _, tt := range tests {
		got := Subst(mustParse(t, tt.src), tt.name, mustParse(t, tt.repl))
		assert.True(t, Equal(mustParse(t, tt.want), got),
			"%s[%s:=%s] = %s, want %s", tt.src, tt.name, tt.repl, got, tt.want)
	}
}

func TestSubstSharesUntouchedSubtrees(t *testing.T) {
	expr := mustParse(t, "x > 0 && y > 0")
	got := Subst(expr, "z", mustParse(t, "1"))
	assert.Same(t, expr, got)
}

func TestEqual(t *testing.T) {
	a := mustParse(t, "x + 1 > 0")
	b := mustParse(t, "x + 1 > 0")
	c := mustParse(t, "x + 2 > 0")
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))

	// Same name, different resolved types.
	assert.False(t, Equal(
		&Var{Name: "x", VarType: TypeInt},
		&Var{Name: "x", VarType: TypeUnknown},
	))
}
