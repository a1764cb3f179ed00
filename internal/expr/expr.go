// Package expr implements the bounded comparison grammar used by check
// and wait operations: comparisons of a named binding against literals,
// combined with "and", "or", "not" and parentheses. It deliberately
// supports nothing beyond that grammar.
package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvaluationError reports an expression that could not be parsed or
// could not be evaluated against the supplied bindings. It indicates
// caller misuse and is never downgraded to a failed predicate.
type EvaluationError struct {
	Expression string
	Reason     string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("cannot evaluate %q: %s", e.Expression, e.Reason)
}

// Expr is a parsed boolean expression.
type Expr struct {
	text string
	root node
}

// Parse compiles an expression. Grammar, loosest binding first:
//
//	expr   := and { "or" and }
//	and    := unary { "and" unary }
//	unary  := "not" unary | "(" expr ")" | comparison | atom
//	comparison := operand ( "==" | "!=" | "<" | "<=" | ">" | ">=" ) operand
//	operand    := number | quoted string | "true" | "false" | identifier
func Parse(text string) (*Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, &EvaluationError{Expression: text, Reason: err.Error()}
	}
	p := &parser{text: text, toks: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, &EvaluationError{Expression: text, Reason: fmt.Sprintf("unexpected %q", p.peek().lit)}
	}
	return &Expr{text: text, root: root}, nil
}

// Eval evaluates the expression against the bindings. Every identifier
// in the expression must be bound.
func (e *Expr) Eval(bindings map[string]any) (bool, error) {
	v, err := e.root.eval(e, bindings)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &EvaluationError{Expression: e.text, Reason: "expression is not boolean"}
	}
	return b, nil
}

// EvalComparison evaluates "value <comparison>" with the supplied value
// bound, e.g. EvalComparison(5.0, ">= 5").
func EvalComparison(value any, comparison string) (bool, error) {
	e, err := Parse("value " + comparison)
	if err != nil {
		return false, err
	}
	return e.Eval(map[string]any{"value": value})
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	lit  string
	num  float64
}

func tokenize(text string) ([]token, error) {
	var toks []token
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, lit: "("})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, lit: ")"})
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(runes) && runes[j] != quote {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, token{kind: tokString, lit: string(runes[i+1 : j])})
			i = j + 1
		case c == '=' || c == '!' || c == '<' || c == '>':
			op := string(c)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			i++
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("invalid operator %q", op)
			}
			toks = append(toks, token{kind: tokOp, lit: op})
		case unicode.IsDigit(c) || c == '-' || c == '+' || c == '.':
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.' ||
				runes[j] == 'e' || runes[j] == 'E' ||
				((runes[j] == '-' || runes[j] == '+') && (runes[j-1] == 'e' || runes[j-1] == 'E'))) {
				j++
			}
			lit := string(runes[i:j])
			n, err := strconv.ParseFloat(lit, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", lit)
			}
			toks = append(toks, token{kind: tokNumber, lit: lit, num: n})
			i = j
		case unicode.IsLetter(c) || c == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokIdent, lit: string(runes[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected character %q", string(c))
		}
	}
	return toks, nil
}

type parser struct {
	text string
	toks []token
	pos  int
}

func (p *parser) done() bool  { return p.pos >= len(p.toks) }
func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) errf(format string, args ...any) error {
	return &EvaluationError{Expression: p.text, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for !p.done() && p.peek().kind == tokIdent && strings.EqualFold(p.peek().lit, "or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for !p.done() && p.peek().kind == tokIdent && strings.EqualFold(p.peek().lit, "and") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.done() {
		return nil, p.errf("unexpected end of expression")
	}
	t := p.peek()
	if t.kind == tokIdent && strings.EqualFold(t.lit, "not") {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{inner: inner}, nil
	}
	if t.kind == tokLParen {
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.done() || p.peek().kind != tokRParen {
			return nil, p.errf("missing closing parenthesis")
		}
		p.advance()
		return p.maybeComparison(inner)
	}
	operand, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return p.maybeComparison(operand)
}

// maybeComparison turns "left OP right" into a comparison node when an
// operator follows; otherwise left stands alone as a boolean atom.
func (p *parser) maybeComparison(left node) (node, error) {
	if p.done() || p.peek().kind != tokOp {
		return left, nil
	}
	op := p.advance().lit
	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &comparisonNode{op: op, left: left, right: right}, nil
}

func (p *parser) parseOperand() (node, error) {
	if p.done() {
		return nil, p.errf("unexpected end of expression")
	}
	t := p.advance()
	switch t.kind {
	case tokNumber:
		return &literalNode{value: t.num}, nil
	case tokString:
		return &literalNode{value: t.lit}, nil
	case tokIdent:
		switch strings.ToLower(t.lit) {
		case "true":
			return &literalNode{value: true}, nil
		case "false":
			return &literalNode{value: false}, nil
		}
		return &identNode{name: t.lit}, nil
	default:
		return nil, p.errf("unexpected %q", t.lit)
	}
}

type node interface {
	eval(e *Expr, bindings map[string]any) (any, error)
}

type literalNode struct{ value any }

func (n *literalNode) eval(*Expr, map[string]any) (any, error) { return n.value, nil }

type identNode struct{ name string }

func (n *identNode) eval(e *Expr, bindings map[string]any) (any, error) {
	v, ok := bindings[n.name]
	if !ok {
		return nil, &EvaluationError{Expression: e.text, Reason: fmt.Sprintf("unbound name %q", n.name)}
	}
	return v, nil
}

type notNode struct{ inner node }

func (n *notNode) eval(e *Expr, bindings map[string]any) (any, error) {
	v, err := n.inner.eval(e, bindings)
	if err != nil {
		return nil, err
	}
	b, ok := v.(bool)
	if !ok {
		return nil, &EvaluationError{Expression: e.text, Reason: "operand of \"not\" is not boolean"}
	}
	return !b, nil
}

type logicalNode struct {
	op          string
	left, right node
}

func (n *logicalNode) eval(e *Expr, bindings map[string]any) (any, error) {
	lv, err := n.left.eval(e, bindings)
	if err != nil {
		return nil, err
	}
	lb, ok := lv.(bool)
	if !ok {
		return nil, &EvaluationError{Expression: e.text, Reason: fmt.Sprintf("operand of %q is not boolean", n.op)}
	}
	// Short circuit.
	if n.op == "and" && !lb {
		return false, nil
	}
	if n.op == "or" && lb {
		return true, nil
	}
	rv, err := n.right.eval(e, bindings)
	if err != nil {
		return nil, err
	}
	rb, ok := rv.(bool)
	if !ok {
		return nil, &EvaluationError{Expression: e.text, Reason: fmt.Sprintf("operand of %q is not boolean", n.op)}
	}
	return rb, nil
}

type comparisonNode struct {
	op          string
	left, right node
}

func (n *comparisonNode) eval(e *Expr, bindings map[string]any) (any, error) {
	lv, err := n.left.eval(e, bindings)
	if err != nil {
		return nil, err
	}
	rv, err := n.right.eval(e, bindings)
	if err != nil {
		return nil, err
	}
	return compare(e, n.op, lv, rv)
}

func compare(e *Expr, op string, left, right any) (bool, error) {
	if lf, lok := toFloat(left); lok {
		rf, rok := toFloat(right)
		if !rok {
			return false, typeMismatch(e, op, left, right)
		}
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	if ls, lok := left.(string); lok {
		rs, rok := right.(string)
		if !rok {
			return false, typeMismatch(e, op, left, right)
		}
		switch op {
		case "==":
			return ls == rs, nil
		case "!=":
			return ls != rs, nil
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	if lb, lok := left.(bool); lok {
		rb, rok := right.(bool)
		if !rok {
			return false, typeMismatch(e, op, left, right)
		}
		switch op {
		case "==":
			return lb == rb, nil
		case "!=":
			return lb != rb, nil
		default:
			return false, &EvaluationError{Expression: e.text, Reason: fmt.Sprintf("operator %q not defined for booleans", op)}
		}
	}
	return false, typeMismatch(e, op, left, right)
}

func typeMismatch(e *Expr, op string, left, right any) error {
	return &EvaluationError{
		Expression: e.text,
		Reason:     fmt.Sprintf("cannot compare %T %s %T", left, op, right),
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
