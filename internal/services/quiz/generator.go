package quiz

import (
	"strconv"

	"github.com/mcoot/iq180/internal/dependencies/random"
	"github.com/mcoot/iq180/internal/model"
)

const (
	// NumberCount is how many number tiles are dealt per question
	NumberCount = 5
	MinNumber   = 1
	MaxNumber   = 9
)

var operators = []string{"+", "-", "*", "/"}

// Generate deals a question whose target is reachable using every dealt
// number exactly once
func Generate(r random.Random) model.Question {
	q, _ := deal(r)
	return q
}

// deal returns a question together with one expression that solves it.
// The target is built by folding the numbers left to right with random
// operators, substituting + for a subtraction that would not stay positive
// and * for a division that would not be exact.
func deal(r random.Random) (model.Question, []string) {
	numbers := make([]int, NumberCount)
	for i := range numbers {
		numbers[i] = MinNumber + r.Intn(MaxNumber-MinNumber+1)
	}

	acc := numbers[0]
	solution := []string{strconv.Itoa(numbers[0])}
	for _, n := range numbers[1:] {
		op := operators[r.Intn(len(operators))]
		switch {
		case op == "-" && acc-n <= 0:
			op = "+"
		case op == "/" && acc%n != 0:
			op = "*"
		}
		switch op {
		case "+":
			acc += n
		case "-":
			acc -= n
		case "*":
			acc *= n
		case "/":
			acc /= n
		}
		solution = append([]string{"("}, solution...)
		solution = append(solution, op, strconv.Itoa(n), ")")
	}

	return model.Question{Numbers: numbers, Target: acc}, solution
}
