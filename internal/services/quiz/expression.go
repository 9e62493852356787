package quiz

import (
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/mcoot/iq180/internal/model"
)

// Evaluate computes the exact value of an expression given as tiles. Tiles
// are integers, the operators + - * / (x and ÷ are accepted as aliases) and
// parentheses. Multiplication and division bind tighter than addition and
// subtraction; operators of equal precedence associate left.
func Evaluate(tiles []string) (*big.Rat, error) {
	p := &parser{tokens: normalize(tiles)}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("%w: empty", model.ErrInvalidExpression)
	}
	v, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q", model.ErrInvalidExpression, p.tokens[p.pos])
	}
	return v, nil
}

// Check verifies an answer: every dealt number is used exactly once and
// the expression evaluates to the target
func Check(q model.Question, tiles []string) error {
	used, err := numbersIn(tiles)
	if err != nil {
		return err
	}
	dealt := slices.Clone(q.Numbers)
	slices.Sort(dealt)
	slices.Sort(used)
	if !slices.Equal(dealt, used) {
		return model.ErrTilesMismatch
	}

	v, err := Evaluate(tiles)
	if err != nil {
		return err
	}
	if v.Cmp(big.NewRat(int64(q.Target), 1)) != 0 {
		return fmt.Errorf("%w: got %s, want %d", model.ErrWrongAnswer, v.RatString(), q.Target)
	}
	return nil
}

func normalize(tiles []string) []string {
	tokens := make([]string, 0, len(tiles))
	for _, t := range tiles {
		t = strings.TrimSpace(t)
		switch t {
		case "":
			continue
		case "x", "X", "×":
			t = "*"
		case "÷":
			t = "/"
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func numbersIn(tiles []string) ([]int, error) {
	var numbers []int
	for _, t := range normalize(tiles) {
		if isOperator(t) {
			continue
		}
		n, ok := parseNumber(t)
		if !ok {
			return nil, fmt.Errorf("%w: unknown tile %q", model.ErrInvalidExpression, t)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// parseNumber accepts unsigned decimal integers only
func parseNumber(t string) (int, bool) {
	if t == "" || strings.TrimLeft(t, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(t)
	return n, err == nil
}

func isOperator(t string) bool {
	switch t {
	case "+", "-", "*", "/", "(", ")":
		return true
	}
	return false
}

// parser is a recursive descent parser over normalized tokens
type parser struct {
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

// expr := term { ("+" | "-") term }
func (p *parser) expr() (*big.Rat, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for op := p.peek(); op == "+" || op == "-"; op = p.peek() {
		p.pos++
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		if op == "+" {
			left.Add(left, right)
		} else {
			left.Sub(left, right)
		}
	}
	return left, nil
}

// term := factor { ("*" | "/") factor }
func (p *parser) term() (*big.Rat, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for op := p.peek(); op == "*" || op == "/"; op = p.peek() {
		p.pos++
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		if op == "*" {
			left.Mul(left, right)
			continue
		}
		if right.Sign() == 0 {
			return nil, model.ErrDivisionByZero
		}
		left.Quo(left, right)
	}
	return left, nil
}

// factor := number | "(" expr ")"
func (p *parser) factor() (*big.Rat, error) {
	tok := p.peek()
	switch tok {
	case "":
		return nil, fmt.Errorf("%w: unexpected end", model.ErrInvalidExpression)
	case "(":
		p.pos++
		v, err := p.expr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("%w: missing )", model.ErrInvalidExpression)
		}
		p.pos++
		return v, nil
	}

	n, ok := parseNumber(tok)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected %q", model.ErrInvalidExpression, tok)
	}
	p.pos++
	return new(big.Rat).SetInt64(int64(n)), nil
}
