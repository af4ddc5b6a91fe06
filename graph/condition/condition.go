// Package condition implements the restricted boolean expression language
// used on conditional edges.
//
// Expressions are predicates over state keys, e.g.:
//
//	x >= 30
//	score > 50 and attempts < 3
//	status == "approved" or not retry
//
// The grammar allows comparisons (<, <=, >, >=, ==, !=), boolean combinators
// (and/or/not, also spelled &&/||/!), arithmetic on numbers (+, -, *, /,
// unary -), parentheses, and number/string/boolean literals. Nothing else:
// no function calls, no indexing, no field access. Expressions are parsed
// and checked against this whitelist when the graph is compiled, so a
// malformed or out-of-grammar condition is a construction-time error, never
// a runtime surprise.
//
// Evaluation is a pure function of (expression, state). An identifier that
// is not present in state resolves to an undefined sentinel: any comparison
// against it is false, it is false in boolean position, and arithmetic on it
// stays undefined. Evaluation never executes host code.
package condition

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// parseEnv is the shared parse-only CEL environment. Expressions are never
// type-checked against it (identifiers are late-bound to state), so a single
// empty environment serves all compilations.
var parseEnv *celgo.Env

func init() {
	env, err := celgo.NewEnv()
	if err != nil {
		panic("condition: creating parse environment: " + err.Error())
	}
	parseEnv = env
}

// allowedOperators is the operator whitelist. Any call node whose function
// is not listed here fails compilation.
var allowedOperators = map[string]bool{
	operators.LogicalAnd:    true,
	operators.LogicalOr:     true,
	operators.LogicalNot:    true,
	operators.Equals:        true,
	operators.NotEquals:     true,
	operators.Less:          true,
	operators.LessEquals:    true,
	operators.Greater:       true,
	operators.GreaterEquals: true,
	operators.Add:           true,
	operators.Subtract:      true,
	operators.Multiply:      true,
	operators.Divide:        true,
	operators.Negate:        true,
}

// Program is a compiled condition expression, ready for repeated evaluation.
// It is immutable and safe for concurrent use.
type Program struct {
	source string
	root   celast.Expr
	idents []string
}

// Compile parses and validates a condition expression.
//
// The returned error describes the first problem found: a parse failure, an
// operator outside the whitelist, or a construct the grammar does not allow
// (function call, index, field access, list or map literal).
func Compile(expr string) (*Program, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, fmt.Errorf("empty condition expression")
	}

	parsed, iss := parseEnv.Parse(rewriteKeywords(trimmed))
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("parsing condition %q: %w", expr, iss.Err())
	}

	root := parsed.NativeRep().Expr()
	seen := map[string]bool{}
	if err := validate(root, seen); err != nil {
		return nil, fmt.Errorf("condition %q: %w", expr, err)
	}

	idents := make([]string, 0, len(seen))
	for name := range seen {
		idents = append(idents, name)
	}
	sort.Strings(idents)

	return &Program{source: expr, root: root, idents: idents}, nil
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.source }

// Identifiers returns the state keys the expression references, sorted.
func (p *Program) Identifiers() []string {
	out := make([]string, len(p.idents))
	copy(out, p.idents)
	return out
}

// Evaluate runs the expression against a state snapshot.
//
// The result is coerced to a boolean: numbers are true when non-zero,
// strings when non-empty. Identifiers absent from state resolve to the
// undefined sentinel, which is false in boolean position and defeats every
// comparison. A non-nil error means the expression could not be evaluated
// cleanly (a type mismatch or division by zero); the boolean result is
// false in that case.
func (p *Program) Evaluate(state map[string]any) (bool, error) {
	v, err := eval(p.root, state)
	if err != nil {
		return false, err
	}
	return toBool(v), nil
}

// validate walks the parsed AST, enforcing the operator whitelist and
// collecting referenced identifiers into seen.
func validate(e celast.Expr, seen map[string]bool) error {
	switch e.Kind() {
	case celast.LiteralKind:
		return validateLiteral(e.AsLiteral())

	case celast.IdentKind:
		seen[e.AsIdent()] = true
		return nil

	case celast.CallKind:
		call := e.AsCall()
		if call.IsMemberFunction() {
			return fmt.Errorf("method calls are not allowed")
		}
		fn := call.FunctionName()
		if !allowedOperators[fn] {
			return fmt.Errorf("operator %q is not allowed", displayName(fn))
		}
		for _, arg := range call.Args() {
			if err := validate(arg, seen); err != nil {
				return err
			}
		}
		return nil

	case celast.SelectKind:
		return fmt.Errorf("field access is not allowed")
	case celast.ListKind:
		return fmt.Errorf("list literals are not allowed")
	case celast.MapKind:
		return fmt.Errorf("map literals are not allowed")
	case celast.ComprehensionKind:
		return fmt.Errorf("comprehensions are not allowed")
	case celast.StructKind:
		return fmt.Errorf("struct literals are not allowed")
	default:
		return fmt.Errorf("unsupported expression construct")
	}
}

func validateLiteral(v ref.Val) error {
	switch v.(type) {
	case types.Bool, types.Int, types.Uint, types.Double, types.String:
		return nil
	default:
		return fmt.Errorf("literal type %s is not allowed", v.Type().TypeName())
	}
}

// displayName maps CEL's internal operator names back to source syntax for
// error messages.
func displayName(fn string) string {
	if name, ok := operators.FindReverse(fn); ok && name != "" {
		return name
	}
	return fn
}

// undefined is the sentinel value an absent state key resolves to.
type undefinedValue struct{}

var undefined = undefinedValue{}

// eval interprets the validated AST against state. It returns one of:
// float64, string, bool, undefinedValue, or a raw state value for bare
// identifiers.
func eval(e celast.Expr, state map[string]any) (any, error) {
	switch e.Kind() {
	case celast.LiteralKind:
		return literalValue(e.AsLiteral())

	case celast.IdentKind:
		v, ok := state[e.AsIdent()]
		if !ok {
			return undefined, nil
		}
		return normalize(v), nil

	case celast.CallKind:
		return evalCall(e.AsCall(), state)

	default:
		// Unreachable: validate rejects every other kind.
		return nil, fmt.Errorf("unsupported expression construct")
	}
}

func evalCall(call celast.CallExpr, state map[string]any) (any, error) {
	fn := call.FunctionName()
	args := call.Args()

	switch fn {
	case operators.LogicalAnd:
		lhs, err := eval(args[0], state)
		if err != nil {
			return nil, err
		}
		if !toBool(lhs) {
			return false, nil
		}
		rhs, err := eval(args[1], state)
		if err != nil {
			return nil, err
		}
		return toBool(rhs), nil

	case operators.LogicalOr:
		lhs, err := eval(args[0], state)
		if err != nil {
			return nil, err
		}
		if toBool(lhs) {
			return true, nil
		}
		rhs, err := eval(args[1], state)
		if err != nil {
			return nil, err
		}
		return toBool(rhs), nil

	case operators.LogicalNot:
		v, err := eval(args[0], state)
		if err != nil {
			return nil, err
		}
		return !toBool(v), nil

	case operators.Negate:
		v, err := eval(args[0], state)
		if err != nil {
			return nil, err
		}
		if v == undefined {
			return undefined, nil
		}
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("cannot negate %s", typeName(v))
		}
		return -n, nil

	case operators.Equals, operators.NotEquals:
		lhs, rhs, err := evalPair(args, state)
		if err != nil {
			return nil, err
		}
		if lhs == undefined || rhs == undefined {
			return false, nil
		}
		eq := valuesEqual(lhs, rhs)
		if fn == operators.NotEquals {
			eq = !eq
		}
		return eq, nil

	case operators.Less, operators.LessEquals, operators.Greater, operators.GreaterEquals:
		lhs, rhs, err := evalPair(args, state)
		if err != nil {
			return nil, err
		}
		if lhs == undefined || rhs == undefined {
			return false, nil
		}
		return compareOrdered(fn, lhs, rhs)

	case operators.Add, operators.Subtract, operators.Multiply, operators.Divide:
		lhs, rhs, err := evalPair(args, state)
		if err != nil {
			return nil, err
		}
		return arith(fn, lhs, rhs)

	default:
		return nil, fmt.Errorf("operator %q is not allowed", displayName(fn))
	}
}

func evalPair(args []celast.Expr, state map[string]any) (any, any, error) {
	lhs, err := eval(args[0], state)
	if err != nil {
		return nil, nil, err
	}
	rhs, err := eval(args[1], state)
	if err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}

func valuesEqual(lhs, rhs any) bool {
	if ln, ok := lhs.(float64); ok {
		rn, ok := rhs.(float64)
		return ok && ln == rn
	}
	if ls, ok := lhs.(string); ok {
		rs, ok := rhs.(string)
		return ok && ls == rs
	}
	if lb, ok := lhs.(bool); ok {
		rb, ok := rhs.(bool)
		return ok && lb == rb
	}
	// Values that are neither numeric, string nor boolean (nil, maps,
	// slices) never compare equal.
	return false
}

func compareOrdered(fn string, lhs, rhs any) (bool, error) {
	if ln, ok := lhs.(float64); ok {
		rn, ok := rhs.(float64)
		if !ok {
			return false, fmt.Errorf("cannot compare number with %s", typeName(rhs))
		}
		switch fn {
		case operators.Less:
			return ln < rn, nil
		case operators.LessEquals:
			return ln <= rn, nil
		case operators.Greater:
			return ln > rn, nil
		default:
			return ln >= rn, nil
		}
	}
	if ls, ok := lhs.(string); ok {
		rs, ok := rhs.(string)
		if !ok {
			return false, fmt.Errorf("cannot compare string with %s", typeName(rhs))
		}
		switch fn {
		case operators.Less:
			return ls < rs, nil
		case operators.LessEquals:
			return ls <= rs, nil
		case operators.Greater:
			return ls > rs, nil
		default:
			return ls >= rs, nil
		}
	}
	return false, fmt.Errorf("cannot order %s values", typeName(lhs))
}

func arith(fn string, lhs, rhs any) (any, error) {
	if lhs == undefined || rhs == undefined {
		return undefined, nil
	}
	ln, ok := lhs.(float64)
	if !ok {
		return nil, fmt.Errorf("arithmetic on %s", typeName(lhs))
	}
	rn, ok := rhs.(float64)
	if !ok {
		return nil, fmt.Errorf("arithmetic on %s", typeName(rhs))
	}
	switch fn {
	case operators.Add:
		return ln + rn, nil
	case operators.Subtract:
		return ln - rn, nil
	case operators.Multiply:
		return ln * rn, nil
	default:
		if rn == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return ln / rn, nil
	}
}

// toBool coerces an evaluated value to a boolean. Undefined and nil are
// false; numbers are true when non-zero; strings when non-empty; anything
// else (maps, slices) is true, matching the truthiness the source state's
// JSON origin implies.
func toBool(v any) bool {
	switch t := v.(type) {
	case undefinedValue:
		return false
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func literalValue(v ref.Val) (any, error) {
	switch t := v.(type) {
	case types.Bool:
		return bool(t), nil
	case types.Int:
		return float64(t), nil
	case types.Uint:
		return float64(t), nil
	case types.Double:
		return float64(t), nil
	case types.String:
		return string(t), nil
	default:
		return nil, fmt.Errorf("literal type %s is not allowed", v.Type().TypeName())
	}
}

// normalize widens numeric state values to float64 so comparisons and
// arithmetic see a single numeric type. State deserialized from JSON is
// float64 already; capabilities written in Go may set ints.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case uint:
		return float64(t)
	case uint64:
		return float64(t)
	default:
		return v
	}
}

func typeName(v any) string {
	switch v.(type) {
	case undefinedValue:
		return "undefined"
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
