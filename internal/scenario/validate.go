package scenario

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

//nolint:gochecknoglobals // validator caches struct metadata; one instance is shared.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks spec without building a Config. It returns nil or a
// *ConfigurationError listing every problem.
func Validate(spec Spec) error {
	_, err := New(spec)
	return err
}

// problemsFor runs struct-tag validation and domain checks on a normalised spec.
func problemsFor(s Spec) []Problem {
	var problems []Problem
	problems = append(problems, structProblems(s)...)
	problems = append(problems, modeProblems(s)...)
	problems = append(problems, s.WFH.Days.validate("wfh.days", s.Work.DaysPerWeek)...)
	problems = append(problems, workProblems(s.Work)...)
	if s.Heating != nil {
		problems = append(problems, heatingProblems(*s.Heating)...)
	}
	return problems
}

// sortProblems orders problems by field and drops exact duplicates.
func sortProblems(problems []Problem) []Problem {
	sort.SliceStable(problems, func(i, j int) bool {
		if problems[i].Field != problems[j].Field {
			return problems[i].Field < problems[j].Field
		}
		return problems[i].Message < problems[j].Message
	})
	return slices.Compact(problems)
}

func structProblems(s Spec) []Problem {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Problem{{Message: err.Error()}}
	}
	problems := make([]Problem, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, Problem{
			Field:   fieldPath(fe.Namespace()),
			Message: describeTag(fe),
		})
	}
	return problems
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func modeProblems(s Spec) []Problem {
	if len(s.Modes) == 0 {
		return nil
	}

	var problems []Problem
	names := make([]string, 0, len(s.Modes))
	for name := range s.Modes {
		names = append(names, name)
	}
	sort.Strings(names)

	shares := make([]float64, 0, len(names))
	for _, name := range names {
		m := s.Modes[name]
		field := "modes[" + name + "]"
		shares = append(shares, m.Share)

		if name == "" {
			problems = append(problems, Problem{Field: "modes", Message: "mode names must not be empty"})
		}

		switch {
		case m.Remote && m.Distance != nil:
			problems = append(problems, Problem{Field: field + ".distance", Message: "remote modes do not travel"})
		case m.Remote && len(m.Fuels) > 0:
			problems = append(problems, Problem{Field: field + ".fuels", Message: "remote modes have no vehicle"})
		case !m.Remote && !m.ZeroEmission && m.Distance == nil:
			problems = append(problems, Problem{Field: field + ".distance", Message: "is required for travelling modes"})
		}

		if m.Distance != nil {
			problems = append(problems, m.Distance.validate(field+".distance", math.Inf(1))...)
		}

		if len(m.Fuels) > 0 {
			fuelNames := make([]string, 0, len(m.Fuels))
			for fuel := range m.Fuels {
				fuelNames = append(fuelNames, fuel)
			}
			sort.Strings(fuelNames)
			fuelShares := make([]float64, len(fuelNames))
			for i, fuel := range fuelNames {
				if fuel == "" {
					problems = append(problems, Problem{Field: field + ".fuels", Message: "fuel names must not be empty"})
				}
				fuelShares[i] = m.Fuels[fuel]
			}
			problems = append(problems, validateShares(field+".fuels", fuelShares)...)
		}
	}

	problems = append(problems, validateShares("modes", shares)...)
	return problems
}

func workProblems(w WorkSpec) []Problem {
	var problems []Problem
	if days := w.DaysPerWeek * w.WeeksPerYear; w.LeaveDays > days {
		problems = append(problems, Problem{
			Field:   "work.leave_days",
			Message: fmt.Sprintf("%g exceeds the %g working days per year", w.LeaveDays, days),
		})
	}
	if w.PartTime != nil {
		problems = append(problems, w.PartTime.FTE.validate("work.part_time.fte", 1)...)
	}
	return problems
}

func heatingProblems(h HeatingSpec) []Problem {
	var problems []Problem
	problems = append(problems, categoricalProblems("heating.months", h.Months, monthScales)...)
	problems = append(problems, categoricalProblems("heating.extent", h.Extent, extentScales)...)
	return problems
}

func categoricalProblems(field string, shares map[string]float64, known map[string]float64) []Problem {
	if len(shares) == 0 {
		return nil
	}
	var problems []Problem
	keys := make([]string, 0, len(shares))
	for k := range shares {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]float64, len(keys))
	for i, k := range keys {
		if _, ok := known[k]; !ok {
			problems = append(problems, Problem{
				Field:   field,
				Message: fmt.Sprintf("unknown key %q, want one of %s", k, strings.Join(sortedKeys(known), ", ")),
			})
		}
		values[i] = shares[k]
	}
	problems = append(problems, validateShares(field, values)...)
	return problems
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
