package validation

import "fmt"

// Rule identifies one way a booking request can fail validation.
type Rule string

const (
	RequiredFieldsMissing Rule = "RequiredFieldsMissing"
	InvalidEmailFormat    Rule = "InvalidEmailFormat"
	MisalignedSlot        Rule = "MisalignedSlot"
	NotWeekday            Rule = "NotWeekday"
	OutsideBusinessHours  Rule = "OutsideBusinessHours"
	PastSlot              Rule = "PastSlot"
	SlotAlreadyBooked     Rule = "SlotAlreadyBooked"
)

// Violation is one failed rule. Validate reports each rule at most once; Details holds
// the per-field messages when a rule covers several fields.
type Violation struct {
	Rule    Rule
	Message string
	Details []string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

// Codes returns the rule codes of vs in order.
func Codes(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, string(v.Rule))
	}
	return out
}

// Messages returns the human readable messages of vs in order, expanding Details.
func Messages(vs []Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if len(v.Details) > 0 {
			out = append(out, v.Details...)
			continue
		}
		out = append(out, v.Message)
	}
	return out
}

// Has reports whether any violation in vs was raised by rule.
func Has(vs []Violation, rule Rule) bool {
	for _, v := range vs {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
