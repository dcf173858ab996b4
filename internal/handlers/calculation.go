package handlers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"

	"github.com/astoerkel/floe-voice-assistant-sub003/internal/intent"
	"github.com/astoerkel/floe-voice-assistant-sub003/internal/response"
)

var (
	errEmptyExpression = errors.New("calculation: empty expression")
	errDivideByZero    = errors.New("calculation: division by zero")
	errOverflow        = errors.New("calculation: result out of range")
)

var cardinals = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40,
	"fifty": 50, "sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

var scales = map[string]float64{
	"hundred": 100, "thousand": 1e3, "million": 1e6,
}

// HandleCalculation evaluates a spoken or typed arithmetic expression.
// Malformed input yields a clarification; division by zero and results out
// of float64 range yield error candidates. None is reported as a Go error.
func HandleCalculation(req Request) response.Candidate {
	raw := req.Entity(intent.EntityExpression)
	if raw == "" {
		raw = expressionTokens(req.Tokens)
	}

	v, err := Evaluate(raw)
	switch {
	case errors.Is(err, errDivideByZero):
		return response.New("I can't divide by zero. Try a different number.", 0.9, response.CategoryError)
	case errors.Is(err, errOverflow):
		return response.New("That number is too large for me to work out.", 0.9, response.CategoryError)
	case err != nil:
		return response.New("I couldn't work that out. Could you say the numbers again?", 0.5, response.CategoryClarification)
	}
	return response.New(fmt.Sprintf("That works out to %s.", FormatNumber(v)), 0.97, response.CategoryAnswer)
}

// Evaluate translates a tokenized arithmetic expression into expr syntax and
// runs it. All arithmetic is done in float64.
func Evaluate(raw string) (float64, error) {
	src, err := translate(strings.Fields(raw))
	if err != nil {
		return 0, err
	}
	program, err := expr.Compile(src,
		expr.AsFloat64(),
		expr.Function(divideFunc, divide),
		expr.Patch(divisionPatcher{}),
	)
	if err != nil {
		return 0, fmt.Errorf("calculation: compile %q: %w", src, err)
	}
	out, err := expr.Run(program, nil)
	if err != nil {
		return 0, fmt.Errorf("calculation: run %q: %w", src, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("calculation: unexpected result %T", out)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errOverflow
	}
	return v, nil
}

const divideFunc = "divide"

// divisionPatcher routes every "/" through divide so a zero divisor is
// reported instead of surfacing as Inf or NaN.
type divisionPatcher struct{}

func (divisionPatcher) Visit(node *ast.Node) {
	b, ok := (*node).(*ast.BinaryNode)
	if !ok || b.Operator != "/" {
		return
	}
	ast.Patch(node, &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: divideFunc},
		Arguments: []ast.Node{b.Left, b.Right},
	})
}

func divide(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("calculation: divide takes 2 arguments, got %d", len(params))
	}
	a, err := toFloat(params[0])
	if err != nil {
		return nil, err
	}
	b, err := toFloat(params[1])
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, errDivideByZero
	}
	return a / b, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("calculation: unexpected operand %T", v)
}

// FormatNumber renders v without trailing zeros, rounded to nine decimals.
func FormatNumber(v float64) string {
	v = math.Round(v*1e9) / 1e9
	if v == 0 {
		v = 0 // drop negative zero
	}
	if math.Abs(v) >= 1e15 {
		return strconv.FormatFloat(v, 'g', 6, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func translate(toks []string) (string, error) {
	if len(toks) == 0 {
		return "", errEmptyExpression
	}
	out := make([]string, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		if v, n, ok := readNumber(toks[i:]); ok {
			out = append(out, floatLiteral(v))
			i += n - 1
			continue
		}
		next := ""
		if i+1 < len(toks) {
			next = toks[i+1]
		}
		switch tok := toks[i]; tok {
		case "plus", "+":
			out = append(out, "+")
		case "minus", "-":
			out = append(out, "-")
		case "times", "x", "×", "*":
			out = append(out, "*")
		case "multiplied", "divided":
			if next == "by" {
				i++
			}
			if tok == "multiplied" {
				out = append(out, "*")
			} else {
				out = append(out, "/")
			}
		case "over", "/", "÷":
			out = append(out, "/")
		case "(", ")":
			out = append(out, tok)
		case "percent", "%":
			last := len(out) - 1
			if last < 0 {
				return "", fmt.Errorf("calculation: %q without a number", tok)
			}
			if _, err := strconv.ParseFloat(out[last], 64); err != nil {
				return "", fmt.Errorf("calculation: %q without a number", tok)
			}
			out[last] = "(" + out[last] + " / 100)"
			if next == "of" {
				out = append(out, "*")
				i++
			}
		default:
			return "", fmt.Errorf("calculation: unsupported token %q", tok)
		}
	}
	return strings.Join(out, " "), nil
}

// floatLiteral renders v so expr parses it as a float; integer literals
// would wrap on overflow instead of reaching Inf.
func floatLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// readNumber consumes one number from the head of toks: a digit literal or a
// run of number words such as "two hundred fifty". It returns the value and
// how many tokens were consumed.
func readNumber(toks []string) (float64, int, bool) {
	var total, current float64
	n := 0
	seen, digits := false, false
	for n < len(toks) {
		tok := toks[n]
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			if seen {
				break
			}
			current, seen, digits = v, true, true
			n++
			continue
		}
		if v, ok := cardinals[tok]; ok {
			if digits {
				break
			}
			current += v
			seen = true
			n++
			continue
		}
		if scale, ok := scales[tok]; ok {
			if !seen {
				current = 1
			}
			if scale == 100 {
				current *= scale
			} else {
				total += current * scale
				current = 0
			}
			seen = true
			n++
			continue
		}
		break
	}
	return total + current, n, seen
}

func expressionTokens(tokens []string) string {
	var kept []string
	for _, tok := range tokens {
		if _, ok := cardinals[tok]; ok {
			kept = append(kept, tok)
			continue
		}
		if _, ok := scales[tok]; ok {
			kept = append(kept, tok)
			continue
		}
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			kept = append(kept, tok)
			continue
		}
		switch tok {
		case "plus", "minus", "times", "x", "multiplied", "divided", "over", "percent", "of",
			"+", "-", "*", "/", "×", "÷", "%", "(", ")":
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}
