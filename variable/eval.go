package variable

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// ResolveDictionary maps variable names to the values visible from a scope.
type ResolveDictionary map[string]any

// Result is the outcome of one evaluation.
//
// Err is empty on success. Added and Removed list the variable names that
// entered and left the evaluator's dependency set, in first-use order.
type Result struct {
	Value   any      `json:"value"             yaml:"value"`
	Err     string   `json:"error,omitempty"   yaml:"error,omitempty"`
	Added   []string `json:"added,omitempty"   yaml:"added,omitempty"`
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// OK reports whether the evaluation succeeded.
func (r Result) OK() bool { return r.Err == "" }

// Evaluator resolves one expression string against a [ResolveDictionary],
// remembering which variable names its last evaluation used.
//
// An Evaluator is not safe for concurrent use.
type Evaluator struct {
	parser *Parser
	names  []string
}

// NewEvaluator returns an evaluator for source.
func NewEvaluator(source string) *Evaluator {
	return &Evaluator{parser: NewParser(source)}
}

// Source returns the expression string.
func (e *Evaluator) Source() string { return e.parser.Source() }

// Tree returns the parse tree of the expression.
func (e *Evaluator) Tree() *Node { return e.parser.Parse() }

// Names returns the variable names used by the last evaluation.
func (e *Evaluator) Names() []string { return slices.Clone(e.names) }

// Evaluate resolves the expression against dict.
//
// An expression consisting of a single ${...} keeps the type of the looked-up
// value. Anything else is concatenated into a string. On error Value is nil.
func (e *Evaluator) Evaluate(dict ResolveDictionary) Result {
	prev := e.names
	e.names = nil

	ctx := &evalContext{source: e.Source(), dict: dict, names: &e.names}

	value, err := ctx.evaluateRoot(e.parser.Parse())

	res := Result{
		Value:   value,
		Added:   difference(e.names, prev),
		Removed: difference(prev, e.names),
	}

	if err != nil {
		res.Value = nil
		res.Err = err.Error()
	}

	return res
}

// Unevaluate clears the dependency set. The result reports every previously
// used name as removed and carries the expression source as its value.
func (e *Evaluator) Unevaluate() Result {
	removed := e.names
	e.names = nil

	return Result{Value: e.Source(), Removed: removed}
}

// evalContext holds the state of one evaluation.
type evalContext struct {
	source string
	dict   ResolveDictionary
	names  *[]string
}

func (ctx *evalContext) evaluateRoot(n *Node) (any, error) {
	if n.Err != "" {
		return nil, errors.New(n.Err)
	}

	if len(n.Children) == 1 {
		return ctx.evaluateNode(n.Children[0])
	}

	return ctx.join(n.Children)
}

func (ctx *evalContext) evaluateNode(n *Node) (any, error) {
	if n.Err != "" {
		return nil, errors.New(n.Err)
	}

	switch n.Type {
	case NodeRoot:
		return ctx.evaluateRoot(n)

	case NodeText:
		return n.Text(ctx.source), nil

	case NodeEscape:
		return ctx.evaluateEscape(n), nil

	case NodeExpression:
		return ctx.evaluateExpression(n)

	default:
		return nil, fmt.Errorf("unknown node type: %s", n.Type)
	}
}

// evaluateEscape returns the character following the backslash.
func (ctx *evalContext) evaluateEscape(n *Node) string {
	text := n.Text(ctx.source)
	if len(text) < 2 {
		return ""
	}

	return text[1:]
}

func (ctx *evalContext) evaluateExpression(n *Node) (any, error) {
	joined, err := ctx.join(n.Children)
	if err != nil {
		return nil, err
	}

	path := strings.TrimSpace(joined)
	name, _, _ := strings.Cut(path, ".")

	if !slices.Contains(*ctx.names, name) {
		*ctx.names = append(*ctx.names, name)
	}

	value := Lookup(ctx.dict, path)
	if value == nil {
		return nil, errors.New("Could not lookup variable value: " + path)
	}

	return value, nil
}

// join concatenates the string forms of nodes. Errors of all failing nodes
// are combined into one, separated by "; ".
func (ctx *evalContext) join(nodes []*Node) (string, error) {
	var (
		sb   strings.Builder
		errs []string
	)

	for _, c := range nodes {
		v, err := ctx.evaluateNode(c)
		if err != nil {
			errs = append(errs, err.Error())

			continue
		}

		sb.WriteString(Stringify(v))
	}

	if len(errs) > 0 {
		return "", errors.New(strings.Join(errs, "; "))
	}

	return sb.String(), nil
}

// Stringify returns the string form used when v is concatenated with other
// text. Nil is empty, numbers use their shortest representation, and slices
// are joined with commas.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""

	case string:
		return t

	case fmt.Stringer:
		return t.String()

	case bool:
		return strconv.FormatBool(t)

	case float32:
		return formatFloat(float64(t), 32)

	case float64:
		return formatFloat(t, 64)
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)

	case reflect.Slice, reflect.Array:
		part := make([]string, rv.Len())
		for i := range part {
			part[i] = Stringify(rv.Index(i).Interface())
		}

		return strings.Join(part, ",")

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}

		return Stringify(rv.Elem().Interface())

	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"

	case math.IsInf(f, 1):
		return "Infinity"

	case math.IsInf(f, -1):
		return "-Infinity"
	}

	if a := math.Abs(f); a == 0 || (a >= 1e-6 && a < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, bits)
	}

	return strconv.FormatFloat(f, 'g', -1, bits)
}

// difference returns the elements of a missing from b, in the order of a.
func difference(a, b []string) []string {
	var out []string

	for _, s := range a {
		if !slices.Contains(b, s) {
			out = append(out, s)
		}
	}

	return out
}
