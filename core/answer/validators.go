package answer

import (
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mafunzo/core"
)

var (
	ruleKindTag  = "rulekind"
	ruleKindText = "unknown comparator kind"

	ruleNumTag  = "rulenum"
	ruleNumText = "operand must be numeric"

	ruleRangeTag  = "rulerange"
	ruleRangeText = `operand must be of form "min,max"`

	rulePatternTag  = "rulepattern"
	rulePatternText = "operand must be a valid pattern"
)

func init() {
	// register validators
	core.Validate.RegisterStructValidation(ruleStructValidation, Rule{})
	core.RegisterCustomTranslation(ruleKindTag, ruleKindText)
	core.RegisterCustomTranslation(ruleNumTag, ruleNumText)
	core.RegisterCustomTranslation(ruleRangeTag, ruleRangeText)
	core.RegisterCustomTranslation(rulePatternTag, rulePatternText)
}

// Validate surfaces rule misconfiguration at authoring time, so an
// administrator sees it on save rather than a trainee at scoring time.
func (r Rule) Validate() error {
	if err := core.Validate.Struct(r); err != nil {
		return core.NewValidationError(err, core.TranslateValidationErrors(err)...)
	}
	return nil
}

// ruleStructValidation checks kind-dependent operand requirements.
func ruleStructValidation(sl validator.StructLevel) {
	r, ok := sl.Current().Interface().(Rule)
	if !ok {
		return
	}

	switch r.Kind {
	case KindEqualTo, KindContains: // any operand goes
	case KindGreaterThan:
		if _, err := strconv.ParseFloat(strings.TrimSpace(r.Operand), 64); err != nil {
			sl.ReportError(r.Operand, "operand", "Operand", ruleNumTag, "")
		}
	case KindBetween:
		if _, _, err := r.bounds(); err != nil {
			sl.ReportError(r.Operand, "operand", "Operand", ruleRangeTag, "")
		}
	case KindMatchesPattern:
		if _, err := r.pattern(); err != nil {
			sl.ReportError(r.Operand, "operand", "Operand", rulePatternTag, "")
		}
	case "": // caught by the required tag
	default:
		sl.ReportError(r.Kind, "kind", "Kind", ruleKindTag, "")
	}
}
