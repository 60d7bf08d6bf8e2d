package celfilter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/query"
	"cosmosdb-wrapper/internal/shared/errors"

	"github.com/google/cel-go/cel"
)

// Compiler turns query text into CEL programs evaluated against documents in process.
// Backends without a native query engine (memory, redis) filter with it.
type Compiler struct {
	env *cel.Env
}

// Filter is a compiled WHERE clause bound to its parameters
type Filter struct {
	source  string
	program cel.Program
	params  map[string]interface{}
}

// NewCompiler creates the CEL environment: "doc" is the candidate document, "params" the
// bound query parameters.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{env: env}, nil
}

// Compile parses q and compiles its WHERE clause
func (c *Compiler) Compile(q model.Query) (*Filter, error) {
	stmt, err := query.Parse(q.Text)
	if err != nil {
		return nil, err
	}

	params := q.ParameterMap()
	if err := query.CheckParameters(stmt.Where, params); err != nil {
		return nil, err
	}

	source := "true"
	if stmt.Where != nil {
		source = translate(stmt.Where)
	}

	ast, iss := c.env.Compile(source)
	if iss != nil && iss.Err() != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("query %q cannot be evaluated: %v", q.Text, iss.Err())).
			WithCause(errors.ErrInvalidQuery)
	}
	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL program for %q: %w", source, err)
	}

	normalized := make(map[string]interface{}, len(params))
	for name, value := range params {
		normalized[name] = normalize(value)
	}

	return &Filter{source: source, program: program, params: normalized}, nil
}

// Source returns the CEL expression the filter evaluates
func (f *Filter) Source() string {
	return f.source
}

// Match reports whether doc satisfies the filter. Evaluation errors, such as a comparison
// against a missing field or across types, count as no match.
func (f *Filter) Match(doc model.Document) bool {
	out, _, err := f.program.Eval(map[string]interface{}{
		"doc":    normalize(map[string]interface{}(doc)),
		"params": f.params,
	})
	if err != nil {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}

var celOperators = map[query.Operator]string{
	query.OpEqual:        "==",
	query.OpNotEqual:     "!=",
	query.OpLess:         "<",
	query.OpLessEqual:    "<=",
	query.OpGreater:      ">",
	query.OpGreaterEqual: ">=",
}

func translate(expr query.Expr) string {
	switch e := expr.(type) {
	case query.Path:
		var sb strings.Builder
		sb.WriteString("doc")
		for _, segment := range e.Segments {
			sb.WriteString("[")
			sb.WriteString(strconv.Quote(segment))
			sb.WriteString("]")
		}
		return sb.String()
	case query.Param:
		return "params[" + strconv.Quote(e.Name) + "]"
	case query.Literal:
		return literal(e.Value)
	case query.Comparison:
		return "(" + translate(e.Left) + " " + celOperators[e.Op] + " " + translate(e.Right) + ")"
	case query.Logical:
		op := "&&"
		if e.Op == query.LogicalOr {
			op = "||"
		}
		return "(" + translate(e.Left) + " " + op + " " + translate(e.Right) + ")"
	case query.Not:
		return "!(" + translate(e.Expr) + ")"
	}
	return "false"
}

func literal(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return strconv.Quote(val)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	return "null"
}

// normalize converts every number to float64 so that 42 and 42.0 compare equal, the way
// JSON documents behave in the store.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case model.Document:
		return normalize(map[string]interface{}(val))
	case []interface{}:
		out := make([]interface{}, len(val))
		for i := range val {
			out[i] = normalize(val[i])
		}
		return out
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return val
	}
}
