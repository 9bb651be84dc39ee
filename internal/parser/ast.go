// Package parser holds the AST grotsky's compiler consumes. Its exact
// shape — not the parsing algorithm — is what the compiler depends on;
// spec.md treats the parser itself as an external collaborator.
package parser

// Expr is any expression node.
type Expr interface {
	Accept(v ExprVisitor) interface{}
	Line() int
}

type exprBase struct{ line int }

func (e exprBase) Line() int { return e.line }

type Literal struct {
	exprBase
	Value interface{} // float64 | string | bool | nil
}

func (l *Literal) Accept(v ExprVisitor) interface{} { return v.VisitLiteral(l) }

type Variable struct {
	exprBase
	Name string
}

func (n *Variable) Accept(v ExprVisitor) interface{} { return v.VisitVariable(n) }

type This struct{ exprBase }

func (t *This) Accept(v ExprVisitor) interface{} { return v.VisitThis(t) }

type Super struct {
	exprBase
	Method string
}

func (s *Super) Accept(v ExprVisitor) interface{} { return v.VisitSuper(s) }

type Binary struct {
	exprBase
	Left     Expr
	Operator string
	Right    Expr
}

func (b *Binary) Accept(v ExprVisitor) interface{} { return v.VisitBinary(b) }

type Logical struct {
	exprBase
	Left     Expr
	Operator string // && or ||
	Right    Expr
}

func (l *Logical) Accept(v ExprVisitor) interface{} { return v.VisitLogical(l) }

type Unary struct {
	exprBase
	Operator string
	Operand  Expr
}

func (u *Unary) Accept(v ExprVisitor) interface{} { return v.VisitUnary(u) }

type Call struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func (c *Call) Accept(v ExprVisitor) interface{} { return v.VisitCall(c) }

type ListExpr struct {
	exprBase
	Elements []Expr
}

func (a *ListExpr) Accept(v ExprVisitor) interface{} { return v.VisitList(a) }

type DictExpr struct {
	exprBase
	Keys   []Expr
	Values []Expr
}

func (m *DictExpr) Accept(v ExprVisitor) interface{} { return v.VisitDict(m) }

type Index struct {
	exprBase
	Object Expr
	Key    Expr
}

func (i *Index) Accept(v ExprVisitor) interface{} { return v.VisitIndex(i) }

// Slice is `object[first:second:third]`; any of the three may be nil
// (meaning "unspecified", resolved by the native slice semantics).
type Slice struct {
	exprBase
	Object Expr
	First  Expr
	Second Expr
	Third  Expr
}

func (s *Slice) Accept(v ExprVisitor) interface{} { return v.VisitSlice(s) }

type Property struct {
	exprBase
	Object Expr
	Name   string
}

func (p *Property) Accept(v ExprVisitor) interface{} { return v.VisitProperty(p) }

type ExprVisitor interface {
	VisitLiteral(*Literal) interface{}
	VisitVariable(*Variable) interface{}
	VisitThis(*This) interface{}
	VisitSuper(*Super) interface{}
	VisitBinary(*Binary) interface{}
	VisitLogical(*Logical) interface{}
	VisitUnary(*Unary) interface{}
	VisitCall(*Call) interface{}
	VisitList(*ListExpr) interface{}
	VisitDict(*DictExpr) interface{}
	VisitIndex(*Index) interface{}
	VisitSlice(*Slice) interface{}
	VisitProperty(*Property) interface{}
}

func NewLiteral(line int, value interface{}) *Literal { return &Literal{exprBase{line}, value} }
func NewVariable(line int, name string) *Variable      { return &Variable{exprBase{line}, name} }
