package service

// NotFoundError reports a missing user, session or conversation.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// UnauthorizedError reports a session owned by a different user. The HTTP
// layer surfaces it exactly like a not-found, so a non-owner cannot confirm
// that the session exists.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}
