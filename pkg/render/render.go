// Package render substitutes variables and evaluates conditional blocks
// in template text. The same renderer is applied to file paths and file
// contents; rendering is all-or-nothing, so no partial output ever
// reaches disk.
//
// Supported markers:
//
//	{{var}}                              variable interpolation
//	{{#if cond}}...{{else}}...{{/if}}    conditional block
//	{{#unless cond}}...{{/unless}}       negated conditional block
//
// where cond is a bare variable (truthy test) or an (eq a b) helper
// call. Everything else passes through literally. Rendering output that
// contains no remaining markers is a fixed point: rendering it again
// returns it unchanged.
package render

import (
	"strings"

	"github.com/arthur-debert/fuzzgen/pkg/errors"
	"github.com/arthur-debert/fuzzgen/pkg/types"
)

// Render substitutes variables and evaluates conditional blocks in
// template against ctx. An unresolved variable reference fails with
// RENDER_UNBOUND_VARIABLE; an unterminated block fails with
// RENDER_UNCLOSED_BLOCK.
func Render(template string, ctx *types.Context) (string, error) {
	r := &renderer{input: template, ctx: ctx}
	var out strings.Builder
	term, err := r.renderBlock(&out, true, false)
	if err != nil {
		return "", err
	}
	if term != "" {
		return "", errors.Newf(errors.ErrUnclosedBlock,
			"unmatched {{%s}} marker", term)
	}
	return out.String(), nil
}

type renderer struct {
	input string
	pos   int
	ctx   *types.Context
}

// renderBlock consumes input until end-of-input or a block terminator
// ("else", "/if", "/unless") and returns the terminator seen, or "".
// When active is false the block is structurally parsed but nothing is
// evaluated or emitted, so dead branches may reference variables that
// are only meaningful in the live branch. inBlock marks whether a
// terminator is legal here.
func (r *renderer) renderBlock(out *strings.Builder, active, inBlock bool) (string, error) {
	for r.pos < len(r.input) {
		open := strings.Index(r.input[r.pos:], "{{")
		if open < 0 {
			if active {
				out.WriteString(r.input[r.pos:])
			}
			r.pos = len(r.input)
			return "", nil
		}

		// Literal text before the marker.
		if active {
			out.WriteString(r.input[r.pos : r.pos+open])
		}
		r.pos += open

		close := strings.Index(r.input[r.pos:], "}}")
		if close < 0 {
			// A lone "{{" with no closing braces is payload text, not a
			// marker (C initializer lists contain these).
			if active {
				out.WriteString(r.input[r.pos:])
			}
			r.pos = len(r.input)
			return "", nil
		}

		marker := strings.TrimSpace(r.input[r.pos+2 : r.pos+close])
		markerEnd := r.pos + close + 2

		switch {
		case marker == "else" || marker == "/if" || marker == "/unless":
			if !inBlock {
				return "", errors.Newf(errors.ErrUnclosedBlock,
					"unexpected {{%s}} without an open block", marker)
			}
			r.pos = markerEnd
			return marker, nil

		case strings.HasPrefix(marker, "#if"):
			r.pos = markerEnd
			if err := r.renderConditional(out, active, marker[3:], false); err != nil {
				return "", err
			}

		case strings.HasPrefix(marker, "#unless"):
			r.pos = markerEnd
			if err := r.renderConditional(out, active, marker[7:], true); err != nil {
				return "", err
			}

		case isIdent(marker):
			if active {
				value, ok := r.ctx.Lookup(marker)
				if !ok {
					return "", errors.Newf(errors.ErrUnboundVariable,
						"unbound variable %q", marker).
						WithDetail("variable", marker)
				}
				out.WriteString(value)
			}
			r.pos = markerEnd

		default:
			// Marker-shaped text that is neither a block nor a variable
			// reference passes through untouched.
			if active {
				out.WriteString(r.input[r.pos:markerEnd])
			}
			r.pos = markerEnd
		}
	}
	if inBlock {
		return "", errors.New(errors.ErrUnclosedBlock, "unterminated conditional block")
	}
	return "", nil
}

// renderConditional handles the body of an #if or #unless block,
// including an optional {{else}} branch.
func (r *renderer) renderConditional(out *strings.Builder, active bool, condSrc string, negate bool) error {
	cond := false
	if active {
		v, err := r.truthy(strings.TrimSpace(condSrc))
		if err != nil {
			return err
		}
		cond = v != negate
	}

	term, err := r.renderBlock(out, active && cond, true)
	if err != nil {
		return err
	}
	if term == "else" {
		term, err = r.renderBlock(out, active && !cond, true)
		if err != nil {
			return err
		}
	}

	want := "/if"
	if negate {
		want = "/unless"
	}
	if term != want {
		return errors.Newf(errors.ErrUnclosedBlock,
			"conditional block not closed with {{%s}}", want)
	}
	return nil
}

// truthy evaluates a block condition: a bare variable name, or an
// (eq a b) helper call.
func (r *renderer) truthy(cond string) (bool, error) {
	if strings.HasPrefix(cond, "(") {
		return r.evalHelper(cond)
	}
	if !isIdent(cond) {
		return false, errors.Newf(errors.ErrUnboundVariable,
			"malformed block condition %q", cond)
	}
	value, ok := r.ctx.Lookup(cond)
	if !ok {
		return false, errors.Newf(errors.ErrUnboundVariable,
			"unbound variable %q in block condition", cond).
			WithDetail("variable", cond)
	}
	return value != "" && value != "false", nil
}

// evalHelper evaluates an (eq a b) helper call, the only helper the
// renderer knows.
func (r *renderer) evalHelper(cond string) (bool, error) {
	if !strings.HasSuffix(cond, ")") {
		return false, errors.Newf(errors.ErrUnclosedBlock,
			"unterminated helper call %q", cond)
	}
	fields := splitHelperArgs(cond[1 : len(cond)-1])
	if len(fields) != 3 || fields[0] != "eq" {
		return false, errors.Newf(errors.ErrUnboundVariable,
			"unsupported helper call %q", cond)
	}

	a, err := r.operand(fields[1])
	if err != nil {
		return false, err
	}
	b, err := r.operand(fields[2])
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// operand resolves a helper argument: 'literal', bare true/false, or a
// variable name.
func (r *renderer) operand(arg string) (string, error) {
	if strings.HasPrefix(arg, "'") && strings.HasSuffix(arg, "'") && len(arg) >= 2 {
		return arg[1 : len(arg)-1], nil
	}
	if arg == "true" || arg == "false" {
		return arg, nil
	}
	if !isIdent(arg) {
		return "", errors.Newf(errors.ErrUnboundVariable,
			"malformed helper argument %q", arg)
	}
	value, ok := r.ctx.Lookup(arg)
	if !ok {
		return "", errors.Newf(errors.ErrUnboundVariable,
			"unbound variable %q in helper call", arg).
			WithDetail("variable", arg)
	}
	return value, nil
}

// splitHelperArgs splits "eq integration 'make'" on spaces, keeping
// quoted literals intact.
func splitHelperArgs(s string) []string {
	var fields []string
	for len(s) > 0 {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			break
		}
		if s[0] == '\'' {
			end := strings.IndexByte(s[1:], '\'')
			if end < 0 {
				fields = append(fields, s)
				break
			}
			fields = append(fields, s[:end+2])
			s = s[end+2:]
			continue
		}
		sp := strings.IndexAny(s, " \t")
		if sp < 0 {
			fields = append(fields, s)
			break
		}
		fields = append(fields, s[:sp])
		s = s[sp:]
	}
	return fields
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
