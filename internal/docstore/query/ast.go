package query

// Operator is a comparison operator
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
)

// Flip returns the operator that keeps the comparison true when operands swap sides
func (op Operator) Flip() Operator {
	switch op {
	case OpLess:
		return OpGreater
	case OpLessEqual:
		return OpGreaterEqual
	case OpGreater:
		return OpLess
	case OpGreaterEqual:
		return OpLessEqual
	default:
		return op
	}
}

// LogicalOperator joins two conditions
type LogicalOperator string

const (
	LogicalAnd LogicalOperator = "AND"
	LogicalOr  LogicalOperator = "OR"
)

// Expr is a node of a WHERE clause
type Expr interface {
	exprNode()
}

// Path is a document field reference; Segments excludes the FROM alias
type Path struct {
	Segments []string
}

// Literal is a constant: string, float64, bool or nil
type Literal struct {
	Value interface{}
}

// Param is a named parameter reference, Name without the leading "@"
type Param struct {
	Name string
}

// Comparison compares two operands
type Comparison struct {
	Op    Operator
	Left  Expr
	Right Expr
}

// Logical combines two conditions with AND or OR
type Logical struct {
	Op    LogicalOperator
	Left  Expr
	Right Expr
}

// Not negates a condition
type Not struct {
	Expr Expr
}

func (Path) exprNode()       {}
func (Literal) exprNode()    {}
func (Param) exprNode()      {}
func (Comparison) exprNode() {}
func (Logical) exprNode()    {}
func (Not) exprNode()        {}

// Statement is a parsed SELECT query. Where is nil when every document matches.
type Statement struct {
	Alias string
	Where Expr
}
