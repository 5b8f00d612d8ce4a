// Package condition implements the small boolean expression language
// used to gate file rules and validation commands:
//
//	integration == 'make' && minimal == false
//
// The grammar is deliberately tiny: equality comparisons against quoted
// string literals or bare booleans, combined with && and ||. Operators
// are applied strictly left-to-right; there is NO precedence between
// && and || (a deliberate simplification, not standard boolean
// precedence). Expressions are parsed once, at manifest load, into an
// expression tree that is evaluated per generation context.
package condition

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

// Expr is a parsed condition expression. Evaluation is deterministic:
// the same expression against the same context always yields the same
// result, with no environment or time dependence.
type Expr interface {
	Eval(ctx *types.Context) (bool, error)
	String() string
}

// eqExpr compares a variable against a literal value.
type eqExpr struct {
	variable string
	literal  string
}

func (e *eqExpr) Eval(ctx *types.Context) (bool, error) {
	value, ok := ctx.Lookup(e.variable)
	if !ok {
		// Hard error, never silently false: a silently-skipped file is
		// a worse failure mode than a refused generation.
		return false, errors.Newf(errors.ErrUnknownVariable,
			"unknown variable %q in condition", e.variable).
			WithDetail("variable", e.variable).
			WithDetail("expression", e.String())
	}
	return value == e.literal, nil
}

func (e *eqExpr) String() string {
	return fmt.Sprintf("%s == '%s'", e.variable, e.literal)
}

// binaryExpr combines two expressions with && or ||.
type binaryExpr struct {
	op    string // "&&" or "||"
	left  Expr
	right Expr
}

func (e *binaryExpr) Eval(ctx *types.Context) (bool, error) {
	left, err := e.left.Eval(ctx)
	if err != nil {
		return false, err
	}
	right, err := e.right.Eval(ctx)
	if err != nil {
		return false, err
	}
	if e.op == "&&" {
		return left && right, nil
	}
	return left || right, nil
}

func (e *binaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.left, e.op, e.right)
}

// Variables returns the distinct variable names referenced by a parsed
// expression, in first-reference order. Used at manifest-load time to
// check that every referenced variable is declared or built in.
func Variables(e Expr) []string {
	var names []string
	seen := make(map[string]struct{})
	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case *eqExpr:
			if _, ok := seen[v.variable]; !ok {
				seen[v.variable] = struct{}{}
				names = append(names, v.variable)
			}
		case *binaryExpr:
			walk(v.left)
			walk(v.right)
		}
	}
	walk(e)
	return names
}

// Parse builds an expression tree from a condition string.
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	p.next()

	expr, err := p.comparison()
	if err != nil {
		return nil, err
	}

	// Strict left-associativity: fold each following operator into the
	// accumulated expression as it is seen.
	for p.tok == "&&" || p.tok == "||" {
		op := p.tok
		p.next()
		right, err := p.comparison()
		if err != nil {
			return nil, err
		}
		expr = &binaryExpr{op: op, left: expr, right: right}
	}

	if p.tok != "" {
		return nil, syntaxErr(input, "unexpected token %q", p.tok)
	}
	return expr, nil
}

// Evaluate parses and evaluates a condition in one shot. Callers with a
// long-lived manifest should Parse once instead.
func Evaluate(input string, ctx *types.Context) (bool, error) {
	expr, err := Parse(input)
	if err != nil {
		return false, err
	}
	return expr.Eval(ctx)
}

type parser struct {
	input string
	pos   int
	tok   string
}

// next advances to the following token. Tokens are identifiers, quoted
// literals, "==", "&&" and "||"; an empty tok marks end of input.
func (p *parser) next() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
	if p.pos >= len(p.input) {
		p.tok = ""
		return
	}

	c := p.input[p.pos]
	switch {
	case strings.HasPrefix(p.input[p.pos:], "=="),
		strings.HasPrefix(p.input[p.pos:], "&&"),
		strings.HasPrefix(p.input[p.pos:], "||"):
		p.tok = p.input[p.pos : p.pos+2]
		p.pos += 2
	case c == '\'':
		end := strings.IndexByte(p.input[p.pos+1:], '\'')
		if end < 0 {
			// Propagate as an unterminated-literal token; comparison()
			// reports the syntax error with context.
			p.tok = p.input[p.pos:]
			p.pos = len(p.input)
			return
		}
		p.tok = p.input[p.pos : p.pos+end+2]
		p.pos += end + 2
	default:
		start := p.pos
		for p.pos < len(p.input) && isIdentChar(p.input[p.pos]) {
			p.pos++
		}
		if p.pos == start {
			p.tok = string(c)
			p.pos++
			return
		}
		p.tok = p.input[start:p.pos]
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// comparison parses `ident == literal` where literal is a single-quoted
// string or a bare true/false.
func (p *parser) comparison() (Expr, error) {
	name := p.tok
	if name == "" || !isIdent(name) {
		return nil, syntaxErr(p.input, "expected variable name, got %q", name)
	}
	p.next()

	if p.tok != "==" {
		return nil, syntaxErr(p.input, "expected '==' after %q, got %q", name, p.tok)
	}
	p.next()

	lit := p.tok
	switch {
	case strings.HasPrefix(lit, "'") && strings.HasSuffix(lit, "'") && len(lit) >= 2:
		p.next()
		return &eqExpr{variable: name, literal: lit[1 : len(lit)-1]}, nil
	case lit == "true" || lit == "false":
		p.next()
		return &eqExpr{variable: name, literal: lit}, nil
	default:
		return nil, syntaxErr(p.input, "expected quoted string or boolean literal, got %q", lit)
	}
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return len(s) > 0
}

func syntaxErr(input, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrConditionSyntax, format, args...).
		WithDetail("expression", input)
}
