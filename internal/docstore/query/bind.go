package query

import (
	"fmt"
	"sort"

	"cosmosdb-wrapper/internal/shared/errors"
)

// Parameters lists the parameter names referenced by expr, sorted and deduplicated
func Parameters(expr Expr) []string {
	seen := map[string]struct{}{}
	walk(expr, func(e Expr) {
		if p, ok := e.(Param); ok {
			seen[p.Name] = struct{}{}
		}
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckParameters reports the first parameter referenced by expr but missing from params
func CheckParameters(expr Expr, params map[string]interface{}) error {
	for _, name := range Parameters(expr) {
		if _, ok := params[name]; !ok {
			return errors.NewValidationError(fmt.Sprintf("query parameter @%s is not bound", name)).
				WithCause(errors.ErrInvalidQuery)
		}
	}
	return nil
}

// Bind replaces every parameter in expr with a literal holding its value
func Bind(expr Expr, params map[string]interface{}) (Expr, error) {
	if err := CheckParameters(expr, params); err != nil {
		return nil, err
	}
	return bind(expr, params), nil
}

func bind(expr Expr, params map[string]interface{}) Expr {
	switch e := expr.(type) {
	case Param:
		return Literal{Value: params[e.Name]}
	case Comparison:
		return Comparison{Op: e.Op, Left: bind(e.Left, params), Right: bind(e.Right, params)}
	case Logical:
		return Logical{Op: e.Op, Left: bind(e.Left, params), Right: bind(e.Right, params)}
	case Not:
		return Not{Expr: bind(e.Expr, params)}
	default:
		return expr
	}
}

func walk(expr Expr, fn func(Expr)) {
	if expr == nil {
		return
	}
	fn(expr)
	switch e := expr.(type) {
	case Comparison:
		walk(e.Left, fn)
		walk(e.Right, fn)
	case Logical:
		walk(e.Left, fn)
		walk(e.Right, fn)
	case Not:
		walk(e.Expr, fn)
	}
}
