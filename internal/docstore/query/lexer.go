package query

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType is the kind of a lexical token in query text
type TokenType int

const (
	// Literals
	IDENTIFIER TokenType = iota
	STRING
	NUMBER
	PARAM

	// Keywords
	SELECT
	FROM
	WHERE
	AS
	AND
	OR
	NOT
	TRUE
	FALSE
	NULL

	// Operators
	EQUALS
	NOT_EQUALS
	LESS_THAN
	LESS_EQUAL
	GREATER_THAN
	GREATER_EQUAL
	STAR
	DOT
	MINUS

	// Delimiters
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET

	EOF
)

var keywords = map[string]TokenType{
	"SELECT": SELECT,
	"FROM":   FROM,
	"WHERE":  WHERE,
	"AS":     AS,
	"AND":    AND,
	"OR":     OR,
	"NOT":    NOT,
	"TRUE":   TRUE,
	"FALSE":  FALSE,
	"NULL":   NULL,
}

// Token is one lexical token with its byte offset in the query text
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// Lexer turns query text into tokens
type Lexer struct {
	input    []rune
	position int
}

// NewLexer creates a lexer over input
func NewLexer(input string) *Lexer {
	return &Lexer{input: []rune(input)}
}

// Tokenize returns every token of the input, terminated by an EOF token
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) next() (Token, error) {
	for l.position < len(l.input) && unicode.IsSpace(l.input[l.position]) {
		l.position++
	}
	if l.position >= len(l.input) {
		return Token{Type: EOF, Position: l.position}, nil
	}

	start := l.position
	ch := l.input[l.position]

	switch {
	case ch == '\'' || ch == '"':
		return l.readString(ch)
	case ch == '@':
		l.position++
		name := l.readWord()
		if name == "" {
			return Token{}, fmt.Errorf("expected parameter name after '@' at offset %d", start)
		}
		return Token{Type: PARAM, Value: name, Position: start}, nil
	case unicode.IsDigit(ch):
		return Token{Type: NUMBER, Value: l.readNumber(), Position: start}, nil
	case isIdentStart(ch):
		word := l.readWord()
		if kw, ok := keywords[strings.ToUpper(word)]; ok {
			return Token{Type: kw, Value: word, Position: start}, nil
		}
		return Token{Type: IDENTIFIER, Value: word, Position: start}, nil
	}

	l.position++
	switch ch {
	case '=':
		return Token{Type: EQUALS, Value: "=", Position: start}, nil
	case '!':
		if l.match('=') {
			return Token{Type: NOT_EQUALS, Value: "!=", Position: start}, nil
		}
	case '<':
		if l.match('=') {
			return Token{Type: LESS_EQUAL, Value: "<=", Position: start}, nil
		}
		if l.match('>') {
			return Token{Type: NOT_EQUALS, Value: "<>", Position: start}, nil
		}
		return Token{Type: LESS_THAN, Value: "<", Position: start}, nil
	case '>':
		if l.match('=') {
			return Token{Type: GREATER_EQUAL, Value: ">=", Position: start}, nil
		}
		return Token{Type: GREATER_THAN, Value: ">", Position: start}, nil
	case '*':
		return Token{Type: STAR, Value: "*", Position: start}, nil
	case '.':
		return Token{Type: DOT, Value: ".", Position: start}, nil
	case '-':
		return Token{Type: MINUS, Value: "-", Position: start}, nil
	case '(':
		return Token{Type: LPAREN, Value: "(", Position: start}, nil
	case ')':
		return Token{Type: RPAREN, Value: ")", Position: start}, nil
	case '[':
		return Token{Type: LBRACKET, Value: "[", Position: start}, nil
	case ']':
		return Token{Type: RBRACKET, Value: "]", Position: start}, nil
	}

	return Token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
}

func (l *Lexer) match(ch rune) bool {
	if l.position < len(l.input) && l.input[l.position] == ch {
		l.position++
		return true
	}
	return false
}

func (l *Lexer) readWord() string {
	start := l.position
	for l.position < len(l.input) && isIdentPart(l.input[l.position]) {
		l.position++
	}
	return string(l.input[start:l.position])
}

func (l *Lexer) readNumber() string {
	start := l.position
	seenDot := false
	for l.position < len(l.input) {
		ch := l.input[l.position]
		if ch == '.' && !seenDot {
			seenDot = true
		} else if !unicode.IsDigit(ch) {
			break
		}
		l.position++
	}
	return string(l.input[start:l.position])
}

func (l *Lexer) readString(quote rune) (Token, error) {
	start := l.position
	l.position++

	var sb strings.Builder
	for l.position < len(l.input) {
		ch := l.input[l.position]
		l.position++

		switch ch {
		case quote:
			return Token{Type: STRING, Value: sb.String(), Position: start}, nil
		case '\\':
			if l.position >= len(l.input) {
				return Token{}, fmt.Errorf("unterminated escape at offset %d", l.position-1)
			}
			esc := l.input[l.position]
			l.position++
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			default:
				sb.WriteRune(esc)
			}
		default:
			sb.WriteRune(ch)
		}
	}

	return Token{}, fmt.Errorf("unterminated string starting at offset %d", start)
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}
