package cond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() *VariableTable {
	table := NewVariableTable(TypeInt)
	table.Declare("x", TypeInt)
	table.Declare("n", TypeInt)
	table.Declare("ok", TypeBool)
	return table
}

func TestResolveBindsTypes(t *testing.T) {
	expr, err := Parse("x > 0 && ok || ret == n")
	require.NoError(t, err)

	resolved, err := Resolve(expr, testTable())
	require.NoError(t, err)

	vars := make(map[string]Type)
	FreeVars(resolved, vars)
	assert.Equal(t, map[string]Type{
		"x":   TypeInt,
		"n":   TypeInt,
		"ok":  TypeBool,
		"ret": TypeInt,
	}, vars)

	// The input tree is untouched.
	untouched := make(map[string]Type)
	FreeVars(expr, untouched)
	assert.Equal(t, TypeUnknown, untouched["x"])
}

// Resolving the same unresolved tree twice against a fixed table yields
// identical typed trees.
func TestResolveDeterministic(t *testing.T) {
	expr, err := Parse("x + n > 0 ==> ok")
	require.NoError(t, err)

	table := testTable()
	first, err := Resolve(expr, table)
	require.NoError(t, err)
	second, err := Resolve(expr, table)
	require.NoError(t, err)
	assert.True(t, Equal(first, second))
}

func TestResolveUnknownVariable(t *testing.T) {
	expr, err := Parse("x > y")
	require.NoError(t, err)

	_, err = Resolve(expr, testTable())
	require.Error(t, err)
	terr, ok := err.(*TypeError)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownVariable, terr.Kind)
	assert.Equal(t, "y", terr.Name)
	assert.Equal(t, []string{"n", "ok", "x"}, terr.Scope)
	assert.Contains(t, terr.Error(), "in scope: n, ok, x")
}

func TestResolveRetUnbound(t *testing.T) {
	// No return value means no ret binding.
	table := NewVariableTable(TypeUnknown)
	expr, err := Parse("ret > 0")
	require.NoError(t, err)

	_, err = Resolve(expr, table)
	require.Error(t, err)
	terr, ok := err.(*TypeError)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownVariable, terr.Kind)
	assert.Equal(t, "ret", terr.Name)
}

func TestTypeCheck(t *testing.T) {
	tests := []struct {
		src  string
		want Type
	}{
		{"x + n * 2", TypeInt},
		{"x % 7 == 2", TypeBool},
		{"ok && x > 0", TypeBool},
		{"ok == (x < n)", TypeBool},
		{"-x", TypeInt},
		{"!(ok ==> x >= 0)", TypeBool},
	}
	for _, tt := range tests {
		expr, err := Parse(tt.src)
		require.NoError(t, err, tt.src)
		resolved, err := Resolve(expr, testTable())
		require.NoError(t, err, tt.src)
		typ, err := TypeCheck(resolved)
		require.NoError(t, err, tt.src)
		assert.Equal(t, tt.want, typ, tt.src)
	}
}

func TestTypeCheckMismatch(t *testing.T) {
	tests := []string{
		"x + ok",
		"ok < x",
		"x && ok",
		"x == ok",
		"!x",
		"-ok",
		"ok ==> x",
	}
	for _, src := range tests {
		expr, err := Parse(src)
		require.NoError(t, err, src)
		resolved, err := Resolve(expr, testTable())
		require.NoError(t, err, src)
		_, err = TypeCheck(resolved)
		require.Error(t, err, src)
		terr, ok := err.(*TypeError)
		require.True(t, ok, src)
		assert.Equal(t, ErrTypeMismatch, terr.Kind, src)
	}
}

func TestCheckConditionRequiresBool(t *testing.T) {
	expr, err := Parse("x + n")
	require.NoError(t, err)
	resolved, err := Resolve(expr, testTable())
	require.NoError(t, err)

	err = CheckCondition(resolved)
	require.Error(t, err)
	terr, ok := err.(*TypeError)
	require.True(t, ok)
	assert.Equal(t, ErrNotBoolean, terr.Kind)

	boolExpr, err := Parse("x > n")
	require.NoError(t, err)
	resolved, err = Resolve(boolExpr, testTable())
	require.NoError(t, err)
	assert.NoError(t, CheckCondition(resolved))
}
