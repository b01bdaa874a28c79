package variable

import (
	"log/slog"

	"github.com/akashmane1598/hyperdash/model"
)

// Reference binds an expression to the location that receives its value.
type Reference struct {
	location  Location
	evaluator *Evaluator
	cleanup   model.Subscription
}

func newReference(
	expression string,
	loc Location,
	cleanup model.Subscription,
) *Reference {
	return &Reference{
		location:  loc,
		evaluator: NewEvaluator(expression),
		cleanup:   cleanup,
	}
}

// Location returns the location the reference writes to.
func (r *Reference) Location() Location { return r.location }

// Expression returns the expression string.
func (r *Reference) Expression() string { return r.evaluator.Source() }

// Resolve evaluates the expression against dict and writes the value into
// the location, even if evaluation failed (the value is then nil).
// The error is non-nil only if the location rejected the value.
func (r *Reference) Resolve(dict ResolveDictionary) (Result, error) {
	res := r.evaluator.Evaluate(dict)

	if err := r.location.Set(res.Value); err != nil {
		return res, ErrAssign.Wrap(err).With(
			slog.String("location", r.location.String()),
			slog.String("expression", r.Expression()),
		)
	}

	return res, nil
}

// Unresolve clears the dependency set of the evaluator.
func (r *Reference) Unresolve() Result { return r.evaluator.Unevaluate() }

func (r *Reference) cancel() {
	if r.cleanup != nil {
		r.cleanup.Unsubscribe()
	}
}
