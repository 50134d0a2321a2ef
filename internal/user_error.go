package internal

// UserError is an error whose message is meant to be shown to the user
// as-is, without the "internal error" wrapping.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}
