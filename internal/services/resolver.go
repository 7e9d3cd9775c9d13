package services

import (
	"github.com/shopspring/decimal"
	"github.com/soaringjerry/Encuesta/internal/models"
)

// AnswerSet is the dependency context of a submission, keyed by question id.
type AnswerSet map[string]*models.Answer

// ResolveActive reports whether q is currently visible and enforceable given
// the answers collected so far. A question whose parent is unanswered is inactive.
func ResolveActive(q *models.Question, answers AnswerSet) bool {
	dep := q.DependsOn
	if dep == nil {
		return true
	}
	parent, ok := answers[dep.ParentID]
	if !ok || parent == nil {
		return false
	}
	if dep.IsOptionBased() {
		return parent.HasOption(dep.OptionID)
	}
	v, ok := numericValue(parent)
	if !ok {
		return false
	}
	if dep.Min != nil && v.LessThan(*dep.Min) {
		return false
	}
	if dep.Max != nil && v.GreaterThan(*dep.Max) {
		return false
	}
	return true
}

func numericValue(a *models.Answer) (decimal.Decimal, bool) {
	switch {
	case a.Integer != nil:
		return decimal.NewFromInt(*a.Integer), true
	case a.Decimal != nil:
		return *a.Decimal, true
	}
	return decimal.Zero, false
}
