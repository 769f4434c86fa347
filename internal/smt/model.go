package smt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"

	"gover/internal/cond"
)

// Value is one concrete assignment in a counterexample.
type Value struct {
	Type cond.Type
	Int  int64
	Bool bool
}

func (v Value) String() string {
	if v.Type == cond.TypeBool {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatInt(v.Int, 10)
}

// Model maps free variable names to the concrete values under which the
// verification condition fails.
type Model map[string]Value

// String renders the assignment list sorted by name.
func (m Model) String() string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s", name, m[name])
	}
	return b.String()
}

// extractModel reads back a concrete value for every solver constant the
// encoder declared. Constants the model leaves undefined are skipped.
func extractModel(model *yices2.ModelT, consts map[string]constEntry) Model {
	values := make(Model, len(consts))
	for name, entry := range consts {
		switch entry.typ {
		case cond.TypeInt:
			var v int64
			if errcode := yices2.GetInt64Value(*model, entry.term, &v); errcode != 0 {
				continue
			}
			values[name] = Value{Type: cond.TypeInt, Int: v}
		case cond.TypeBool:
			var v int32
			if errcode := yices2.GetBoolValue(*model, entry.term, &v); errcode != 0 {
				continue
			}
			values[name] = Value{Type: cond.TypeBool, Bool: v != 0}
		}
	}
	return values
}
