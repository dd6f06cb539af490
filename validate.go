package esmerald

// SelfValidator is implemented by request types that validate themselves.
// It runs after binding and constraint checks.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request.
type Validator interface {
	Validate(req any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(req any) error

// Validate calls f(req).
func (f ValidatorFunc) Validate(req any) error { return f(req) }

// FieldError builds a 422 response body for a single failing field, for
// validators that want their failures rendered like binding failures.
func FieldError(msg, typ string, loc ...any) error {
	verr := &HTTPValidationError{}
	verr.add(nil, loc, typ, msg)
	return verr
}
