package answer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Comparator kinds
const (
	KindEqualTo        = "equal-to"
	KindGreaterThan    = "greater-than"
	KindBetween        = "between"
	KindContains       = "contains"
	KindMatchesPattern = "matches-pattern"
)

var AllKinds = []string{KindEqualTo, KindGreaterThan, KindBetween, KindContains, KindMatchesPattern}

// ErrInvalidRule flags a misconfigured comparator rule: an unknown
// kind, a non-numeric operand on a numeric comparator, or an
// uncompilable pattern. This is an authoring defect, never trainee
// input, and must not masquerade as "trainee got it wrong".
var ErrInvalidRule = errors.New("invalid comparator rule")

// Rule is the stored definition of how a question's submitted answer
// is judged.
type Rule struct {
	Kind     string `json:"kind" validate:"required"`
	Operand  string `json:"operand"`
	Modifier string `json:"modifier"` // pattern flags, e.g. "i"
}

// ChoiceRule returns the equal-to rule judging a multiple-choice
// question against its designated correct option.
func ChoiceRule(correct string) Rule {
	return Rule{Kind: KindEqualTo, Operand: correct}
}

// bounds parses a between operand of the form "min,max".
func (r Rule) bounds() (min, max float64, err error) {
	parts := strings.Split(r.Operand, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Wrapf(ErrInvalidRule, "between operand %q is not of form \"min,max\"", r.Operand)
	}
	if min, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err != nil {
		return 0, 0, errors.Wrapf(ErrInvalidRule, "between operand %q: bad lower bound", r.Operand)
	}
	if max, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return 0, 0, errors.Wrapf(ErrInvalidRule, "between operand %q: bad upper bound", r.Operand)
	}
	return min, max, nil
}

// pattern compiles a matches-pattern operand, applying modifier flags.
func (r Rule) pattern() (*regexp.Regexp, error) {
	var flags strings.Builder
	for _, mod := range r.Modifier {
		switch mod {
		case 'i', 'm', 's':
			flags.WriteRune(mod)
		default:
			return nil, errors.Wrapf(ErrInvalidRule, "unknown pattern modifier %q", string(mod))
		}
	}

	body := r.Operand
	if flags.Len() > 0 {
		body = "(?" + flags.String() + ")" + body
	}
	re, err := regexp.Compile(body)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRule, "bad pattern %q", r.Operand)
	}
	return re, nil
}
