package app

import "seochat/internal/pkg/apperr"

var (
	ErrInvalidInput      = apperr.Validation("invalid input")
	ErrUsernameExists    = apperr.Conflict("username already exists")
	ErrEmailExists       = apperr.Conflict("email already exists")
	ErrInvalidCredential = apperr.Unauthorized("invalid login or password")
	ErrSessionInvalid    = apperr.Unauthorized("no valid session")
	ErrTooManyAttempts   = apperr.TooManyRequests("too many failed login attempts")
	ErrUserNotFound      = apperr.NotFound("user not found")
	ErrClientNotFound    = apperr.NotFound("client not found")
	ErrDocumentNotFound  = apperr.NotFound("no document found for this client")
	ErrNotPDF            = apperr.Validation("only PDF files are allowed")
	ErrChatForbidden     = apperr.Forbidden("chat log belongs to another client")
)
