package quizgen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/quizdrill/quizdrill/internal/domain"
)

func init() {
	Register(domain.TypeSimpleMath, simpleMathGenerator{})
	Register(domain.TypeRemainder, remainderGenerator{})
	Register(domain.TypeBodmas, bodmasGenerator{})
	Register(domain.TypeFactors, factorsGenerator{})
}

func intAnswer(n int) domain.Answer {
	return domain.Answer{Number: &n}
}

// simpleMathGenerator mixes addition and multiplication with operands in 1-9.
type simpleMathGenerator struct{}

func (simpleMathGenerator) Generate(count int) ([]domain.Question, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, count)
	for i := range questions {
		a := 1 + rand.Intn(9)
		b := 1 + rand.Intn(9)
		if rand.Intn(2) == 0 {
			questions[i] = domain.Question{
				Prompt: fmt.Sprintf("%d + %d", a, b),
				Answer: intAnswer(a + b),
			}
		} else {
			questions[i] = domain.Question{
				Prompt: fmt.Sprintf("%d x %d", a, b),
				Answer: intAnswer(a * b),
			}
		}
	}
	return questions, nil
}

func (simpleMathGenerator) ScoreOne(q domain.Question, submitted any) bool {
	return scoreNumeric(q, submitted)
}

// remainderGenerator produces division questions whose answer is the
// remainder, not the quotient. Divisor in [2,12], dividend in [1,100].
type remainderGenerator struct{}

func (remainderGenerator) Generate(count int) ([]domain.Question, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, count)
	for i := range questions {
		divisor := 2 + rand.Intn(11)
		dividend := 1 + rand.Intn(100)
		questions[i] = domain.Question{
			Prompt: fmt.Sprintf("%d / %d", dividend, divisor),
			Answer: intAnswer(dividend % divisor),
		}
	}
	return questions, nil
}

func (remainderGenerator) ScoreOne(q domain.Question, submitted any) bool {
	return scoreNumeric(q, submitted)
}

// bodmasGenerator builds three-operand expressions mixing +, - and x.
// Division is left out so every answer stays an exact integer.
type bodmasGenerator struct{}

var bodmasOps = []string{"+", "-", "x"}

func (bodmasGenerator) Generate(count int) ([]domain.Question, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, count)
	for i := range questions {
		operands := []int{1 + rand.Intn(9), 1 + rand.Intn(9), 1 + rand.Intn(9)}
		ops := []string{bodmasOps[rand.Intn(len(bodmasOps))], bodmasOps[rand.Intn(len(bodmasOps))]}
		questions[i] = domain.Question{
			Prompt: fmt.Sprintf("%d %s %d %s %d", operands[0], ops[0], operands[1], ops[1], operands[2]),
			Answer: intAnswer(evalExpression(operands, ops)),
		}
	}
	return questions, nil
}

func (bodmasGenerator) ScoreOne(q domain.Question, submitted any) bool {
	return scoreNumeric(q, submitted)
}

// evalExpression applies standard precedence: multiplication first, then
// addition and subtraction left to right.
func evalExpression(operands []int, ops []string) int {
	nums := append([]int(nil), operands...)
	rest := append([]string(nil), ops...)

	for i := 0; i < len(rest); {
		if rest[i] == "x" || rest[i] == "*" {
			nums[i] = nums[i] * nums[i+1]
			nums = append(nums[:i+1], nums[i+2:]...)
			rest = append(rest[:i], rest[i+1:]...)
			continue
		}
		i++
	}

	result := nums[0]
	for i, op := range rest {
		switch op {
		case "+":
			result += nums[i+1]
		case "-":
			result -= nums[i+1]
		}
	}
	return result
}

// ParseExpression splits a prompt like "3 + 4 x 2" back into operands and
// operators. Used by tests to recompute answers from the prompt alone.
func ParseExpression(prompt string) (operands []int, ops []string, err error) {
	fields := strings.Fields(prompt)
	for i, f := range fields {
		if i%2 == 0 {
			var n int
			if _, err := fmt.Sscanf(f, "%d", &n); err != nil {
				return nil, nil, fmt.Errorf("bad operand %q: %w", f, err)
			}
			operands = append(operands, n)
		} else {
			ops = append(ops, f)
		}
	}
	return operands, ops, nil
}

// EvalExpression is the exported form of the expression evaluator.
func EvalExpression(operands []int, ops []string) int {
	return evalExpression(operands, ops)
}

// factorsGenerator asks how many factors a number in [2,60] has.
type factorsGenerator struct{}

func (factorsGenerator) Generate(count int) ([]domain.Question, error) {
	if err := checkCount(count); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, count)
	for i := range questions {
		n := 2 + rand.Intn(59)
		questions[i] = domain.Question{
			Prompt: fmt.Sprintf("How many factors does %d have?", n),
			Answer: intAnswer(CountFactors(n)),
		}
	}
	return questions, nil
}

func (factorsGenerator) ScoreOne(q domain.Question, submitted any) bool {
	return scoreNumeric(q, submitted)
}

// CountFactors returns the number of positive divisors of n.
func CountFactors(n int) int {
	if n < 1 {
		return 0
	}
	count := 0
	for d := 1; d*d <= n; d++ {
		if n%d == 0 {
			count += 2
			if d*d == n {
				count--
			}
		}
	}
	return count
}
