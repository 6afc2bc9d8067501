// Package service implements the session capacity and attendance core:
// tenancy resolution, role resolution, admission control, attendance
// accounting, realtime token issuance and moderation.
package service

import "errors"

// Sentinel errors returned by the services.  Handlers map them to HTTP
// status codes; anything else is an internal error.
var (
	ErrMissingTenant     = errors.New("organization context required")
	ErrNotMember         = errors.New("not a member of this organization")
	ErrForbidden         = errors.New("forbidden")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionFull       = errors.New("session is full")
	ErrNotJoined         = errors.New("not joined")
	ErrPublishNotAllowed = errors.New("not allowed to publish")
	ErrDuplicateChannel  = errors.New("channel name already taken")
	ErrTransportConfig   = errors.New("realtime transport credentials missing")
	ErrInvalidInput      = errors.New("invalid input")
)
