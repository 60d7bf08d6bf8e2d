package query

import (
	"fmt"
	"strconv"

	"cosmosdb-wrapper/internal/shared/errors"
)

// Parse parses the supported SQL subset:
//
//	SELECT * FROM <alias> [WHERE <condition>]
//
// Conditions combine comparisons (=, !=, <>, <, <=, >, >=) of field paths, literals and
// @parameters with AND, OR, NOT and parentheses. A bare field path means "= true".
func Parse(text string) (*Statement, error) {
	tokens, err := NewLexer(text).Tokenize()
	if err != nil {
		return nil, invalidQuery(text, err)
	}

	p := &parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, invalidQuery(text, err)
	}
	return stmt, nil
}

func invalidQuery(text string, cause error) error {
	return errors.NewValidationError(fmt.Sprintf("invalid query %q: %v", text, cause)).
		WithCause(fmt.Errorf("%w: %v", errors.ErrInvalidQuery, cause))
}

type parser struct {
	tokens   []Token
	position int
	alias    string
}

func (p *parser) current() Token {
	return p.tokens[p.position]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.position]
	if tok.Type != EOF {
		p.position++
	}
	return tok
}

func (p *parser) accept(tt TokenType) bool {
	if p.current().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(tt TokenType, what string) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return Token{}, fmt.Errorf("expected %s at offset %d, got %q", what, tok.Position, tok.Value)
	}
	return p.advance(), nil
}

func (p *parser) parseStatement() (*Statement, error) {
	if _, err := p.expect(SELECT, "SELECT"); err != nil {
		return nil, err
	}
	if _, err := p.expect(STAR, "'*'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(FROM, "FROM"); err != nil {
		return nil, err
	}
	source, err := p.expect(IDENTIFIER, "container alias")
	if err != nil {
		return nil, err
	}
	p.alias = source.Value

	// FROM root r / FROM root AS r
	if p.accept(AS) {
		alias, err := p.expect(IDENTIFIER, "alias after AS")
		if err != nil {
			return nil, err
		}
		p.alias = alias.Value
	} else if p.current().Type == IDENTIFIER {
		p.alias = p.advance().Value
	}

	stmt := &Statement{Alias: p.alias}
	if p.accept(WHERE) {
		where, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if tok := p.current(); tok.Type != EOF {
		return nil, fmt.Errorf("unexpected %q at offset %d", tok.Value, tok.Position)
	}
	return stmt, nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(OR) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Logical{Op: LogicalOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(AND) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Logical{Op: LogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.accept(NOT) {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

var comparisonOperators = map[TokenType]Operator{
	EQUALS:        OpEqual,
	NOT_EQUALS:    OpNotEqual,
	LESS_THAN:     OpLess,
	LESS_EQUAL:    OpLessEqual,
	GREATER_THAN:  OpGreater,
	GREATER_EQUAL: OpGreaterEqual,
}

func (p *parser) parseComparison() (Expr, error) {
	if p.accept(LPAREN) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	op, ok := comparisonOperators[p.current().Type]
	if !ok {
		switch left.(type) {
		case Path:
			return Comparison{Op: OpEqual, Left: left, Right: Literal{Value: true}}, nil
		case Literal:
			if _, isBool := left.(Literal).Value.(bool); isBool {
				return left, nil
			}
		}
		tok := p.current()
		return nil, fmt.Errorf("expected comparison operator at offset %d, got %q", tok.Position, tok.Value)
	}
	p.advance()

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return Comparison{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseOperand() (Expr, error) {
	tok := p.current()
	switch tok.Type {
	case IDENTIFIER:
		return p.parsePath()
	case PARAM:
		p.advance()
		return Param{Name: tok.Value}, nil
	case STRING:
		p.advance()
		return Literal{Value: tok.Value}, nil
	case NUMBER:
		p.advance()
		return parseNumber(tok, false)
	case MINUS:
		p.advance()
		num, err := p.expect(NUMBER, "number after '-'")
		if err != nil {
			return nil, err
		}
		return parseNumber(num, true)
	case TRUE:
		p.advance()
		return Literal{Value: true}, nil
	case FALSE:
		p.advance()
		return Literal{Value: false}, nil
	case NULL:
		p.advance()
		return Literal{Value: nil}, nil
	}
	return nil, fmt.Errorf("expected operand at offset %d, got %q", tok.Position, tok.Value)
}

func (p *parser) parsePath() (Expr, error) {
	root := p.advance()
	if root.Value != p.alias {
		return nil, fmt.Errorf("field reference %q at offset %d must start with alias %q", root.Value, root.Position, p.alias)
	}

	var segments []string
	for {
		switch {
		case p.accept(DOT):
			field := p.current()
			if field.Type != IDENTIFIER && !isKeyword(field.Type) {
				return nil, fmt.Errorf("expected field name at offset %d, got %q", field.Position, field.Value)
			}
			p.advance()
			segments = append(segments, field.Value)
		case p.accept(LBRACKET):
			field, err := p.expect(STRING, "quoted field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET, "']'"); err != nil {
				return nil, err
			}
			segments = append(segments, field.Value)
		default:
			if len(segments) == 0 {
				return nil, fmt.Errorf("alias %q at offset %d must be followed by a field", root.Value, root.Position)
			}
			return Path{Segments: segments}, nil
		}
	}
}

func parseNumber(tok Token, negative bool) (Expr, error) {
	v, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q at offset %d", tok.Value, tok.Position)
	}
	if negative {
		v = -v
	}
	return Literal{Value: v}, nil
}

// keywords are valid field names after a dot, as in c.value or c.from
func isKeyword(tt TokenType) bool {
	return tt >= SELECT && tt <= NULL
}
