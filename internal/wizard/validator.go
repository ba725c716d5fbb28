package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidStep is returned for a step index outside [1, StepCount].
var ErrInvalidStep = errors.New("invalid wizard step")

var validate = validator.New()

// Verdict is the outcome of a step gate. Missing lists the paths of fields
// that are empty or malformed, in form order.
type Verdict struct {
	Step    Step     `json:"step"`
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
}

// ValidateStep checks the fields step owns against d.
func ValidateStep(step Step, d *OrderDraft) (Verdict, error) {
	if !step.Valid() {
		return Verdict{}, fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}

	var missing []string
	for _, f := range Fields(step) {
		if f.Computed || !f.Required(d) {
			continue
		}
		if !fieldSatisfied(f, d) {
			missing = append(missing, f.Path)
		}
	}
	return Verdict{Step: step, Valid: len(missing) == 0, Missing: missing}, nil
}

// IsStepValid reports whether step's gate passes. Invalid steps never pass.
func IsStepValid(step Step, d *OrderDraft) bool {
	v, err := ValidateStep(step, d)
	return err == nil && v.Valid
}

// ValidateAll runs every gate in order and returns the first failing verdict,
// or a valid verdict for the terminal step.
func ValidateAll(d *OrderDraft) Verdict {
	for s := StepPersonalInfo; s <= StepSummary; s++ {
		v, _ := ValidateStep(s, d)
		if !v.Valid {
			return v
		}
	}
	return Verdict{Step: StepSummary, Valid: true}
}

func fieldSatisfied(f Field, d *OrderDraft) bool {
	if f.Repeated {
		values, _ := f.Value(d).([]string)
		for _, v := range values {
			if strings.TrimSpace(v) != "" {
				return true
			}
		}
		return false
	}

	s, ok := f.Value(d).(string)
	if !ok {
		// Bool fields are always "set".
		return true
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}

	switch f.Type {
	case FieldEmail:
		return validate.Var(s, "email") == nil
	case FieldEnum:
		opt, ok := f.Option(s)
		return ok && !opt.Disabled
	}
	return true
}
