package mongodb

import (
	"fmt"
	"strings"

	"cosmosdb-wrapper/internal/docstore/domain/model"
	"cosmosdb-wrapper/internal/docstore/query"
	"cosmosdb-wrapper/internal/shared/errors"

	"go.mongodb.org/mongo-driver/bson"
)

var mongoOperators = map[query.Operator]string{
	query.OpEqual:        "$eq",
	query.OpNotEqual:     "$ne",
	query.OpLess:         "$lt",
	query.OpLessEqual:    "$lte",
	query.OpGreater:      "$gt",
	query.OpGreaterEqual: "$gte",
}

// BuildFilter translates query text into a MongoDB filter document.
//
// Comparisons against a missing field never match, as in Cosmos DB SQL: "!=" and
// "= null" additionally require the field to exist, and so does every field named
// under a NOT.
func BuildFilter(q model.Query) (bson.M, error) {
	stmt, err := query.Parse(q.Text)
	if err != nil {
		return nil, err
	}
	if stmt.Where == nil {
		return bson.M{}, nil
	}

	where, err := query.Bind(stmt.Where, q.ParameterMap())
	if err != nil {
		return nil, err
	}
	return buildExpr(where)
}

func buildExpr(expr query.Expr) (bson.M, error) {
	switch e := expr.(type) {
	case query.Logical:
		left, err := buildExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(e.Right)
		if err != nil {
			return nil, err
		}
		op := "$and"
		if e.Op == query.LogicalOr {
			op = "$or"
		}
		return bson.M{op: bson.A{left, right}}, nil
	case query.Not:
		inner, err := buildExpr(e.Expr)
		if err != nil {
			return nil, err
		}
		filter := bson.M{"$nor": bson.A{inner}}
		for _, field := range referencedFields(e.Expr, nil) {
			filter[field] = bson.M{"$exists": true}
		}
		return filter, nil
	case query.Comparison:
		return buildComparison(e)
	case query.Literal:
		if matched, ok := e.Value.(bool); ok {
			if matched {
				return bson.M{}, nil
			}
			return bson.M{"$expr": false}, nil
		}
	}
	return nil, errors.NewValidationError(fmt.Sprintf("unsupported condition %T", expr)).WithCause(errors.ErrInvalidQuery)
}

func buildComparison(c query.Comparison) (bson.M, error) {
	op, ok := mongoOperators[c.Op]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported operator %q", c.Op)).WithCause(errors.ErrInvalidQuery)
	}

	leftPath, leftIsPath := c.Left.(query.Path)
	rightPath, rightIsPath := c.Right.(query.Path)

	switch {
	case leftIsPath && !rightIsPath:
		return fieldCondition(fieldName(leftPath), op, c.Right), nil
	case rightIsPath && !leftIsPath:
		flipped := mongoOperators[c.Op.Flip()]
		return fieldCondition(fieldName(rightPath), flipped, c.Left), nil
	default:
		return bson.M{"$expr": bson.M{op: bson.A{exprOperand(c.Left), exprOperand(c.Right)}}}, nil
	}
}

// referencedFields appends the distinct field names expr reads, in order of appearance
func referencedFields(expr query.Expr, fields []string) []string {
	switch e := expr.(type) {
	case query.Path:
		name := fieldName(e)
		for _, f := range fields {
			if f == name {
				return fields
			}
		}
		return append(fields, name)
	case query.Comparison:
		return referencedFields(e.Right, referencedFields(e.Left, fields))
	case query.Logical:
		return referencedFields(e.Right, referencedFields(e.Left, fields))
	case query.Not:
		return referencedFields(e.Expr, fields)
	}
	return fields
}

func fieldCondition(field, op string, operand query.Expr) bson.M {
	value := literalValue(operand)
	cond := bson.M{op: value}
	if op == "$ne" || (op == "$eq" && value == nil) {
		cond["$exists"] = true
	}
	return bson.M{field: cond}
}

func exprOperand(e query.Expr) interface{} {
	if p, ok := e.(query.Path); ok {
		return "$" + fieldName(p)
	}
	return bson.M{"$literal": literalValue(e)}
}

func literalValue(e query.Expr) interface{} {
	if lit, ok := e.(query.Literal); ok {
		return lit.Value
	}
	return nil
}

func fieldName(p query.Path) string {
	return strings.Join(p.Segments, ".")
}
