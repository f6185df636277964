package answer

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core"
)

// value is the coerced form of an operand or submission: a number when
// it parses as one, text otherwise. One coercion function is applied
// to both sides of every comparison.
type value struct {
	num   float64
	text  string
	isNum bool
}

func coerce(s string) value {
	if num, err := strconv.ParseFloat(s, 64); err == nil {
		return value{num: num, text: s, isNum: true}
	}
	return value{text: s}
}

// Validator evaluates submitted answers against comparator rules.
// Validation is pure: no side effects, and malformed trainee input is
// simply incorrect, never an error. Only rule misconfiguration
// surfaces as ErrInvalidRule.
type Validator struct {
	trim bool
}

func NewValidator(conf *core.Config) *Validator {
	return &Validator{trim: conf.TrimAnswerWhitespace}
}

// Validate reports whether the submission satisfies the rule.
func (v *Validator) Validate(submission string, r Rule) (bool, error) {
	operand := r.Operand
	if v.trim {
		// stop trainees losing marks to incidental whitespace
		submission = strings.TrimSpace(submission)
		if r.Kind == KindEqualTo || r.Kind == KindContains {
			operand = strings.TrimSpace(operand)
		}
	}

	switch r.Kind {
	case KindEqualTo:
		sub, op := coerce(submission), coerce(operand)
		if sub.isNum && op.isNum {
			return sub.num == op.num, nil
		}
		return sub.text == op.text, nil

	case KindGreaterThan:
		op := coerce(strings.TrimSpace(operand))
		if !op.isNum {
			return false, errors.Wrapf(ErrInvalidRule, "greater-than operand %q is not numeric", r.Operand)
		}
		sub := coerce(submission)
		if !sub.isNum { // fail closed
			return false, nil
		}
		return sub.num > op.num, nil

	case KindBetween:
		min, max, err := r.bounds()
		if err != nil {
			return false, err
		}
		sub := coerce(submission)
		if !sub.isNum { // fail closed
			return false, nil
		}
		return min <= sub.num && sub.num <= max, nil

	case KindContains:
		return strings.Contains(strings.ToLower(submission), strings.ToLower(operand)), nil

	case KindMatchesPattern:
		re, err := r.pattern()
		if err != nil {
			return false, err
		}
		return re.MatchString(submission), nil
	}

	return false, errors.Wrapf(ErrInvalidRule, "unknown kind %q", r.Kind)
}
