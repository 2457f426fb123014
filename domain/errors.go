package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalid           ErrorCode = "INVALID"
	ErrCodeConflict          ErrorCode = "CONFLICT"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized      ErrorCode = "UNAUTHORIZED"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeSelfAssignment    ErrorCode = "SELF_ASSIGNMENT"
	ErrCodeInternal          ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrAccountNotFound       = NewError(ErrCodeNotFound, "account not found")
	ErrTaskNotFound          = NewError(ErrCodeNotFound, "task not found")
	ErrDisputeNotFound       = NewError(ErrCodeNotFound, "dispute not found")
	ErrFriendRequestNotFound = NewError(ErrCodeNotFound, "friend request not found")
	ErrFriendshipNotFound    = NewError(ErrCodeNotFound, "friendship not found")
	ErrConversationNotFound  = NewError(ErrCodeNotFound, "conversation not found")
	ErrSessionNotFound       = NewError(ErrCodeNotFound, "session not found")
	ErrUnauthorized          = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload        = NewError(ErrCodeInvalid, "invalid payload")

	ErrInvalidReward     = NewError(ErrCodeInvalid, "reward must be a positive number")
	ErrInvalidTitle      = NewError(ErrCodeInvalid, "title is required")
	ErrDeadlineInPast    = NewError(ErrCodeInvalid, "deadline must be in the future")
	ErrReasonRequired    = NewError(ErrCodeInvalid, "a reason is required to raise a dispute")
	ErrInvalidCloseness  = NewError(ErrCodeInvalid, "closeness out of range")
	ErrSelfFriendRequest = NewError(ErrCodeInvalid, "cannot send a friend request to yourself")

	ErrInsufficientFunds = NewError(ErrCodeInsufficientFunds, "insufficient points")
	ErrInvalidTransition = NewError(ErrCodeInvalidTransition, "operation not allowed in current task state")
	ErrSelfAssignment    = NewError(ErrCodeSelfAssignment, "cannot take your own task")
	ErrTaskAlreadyTaken  = NewError(ErrCodeConflict, "task was taken concurrently")
	ErrAccountExists     = NewError(ErrCodeConflict, "account already exists")
	ErrAlreadyFriends    = NewError(ErrCodeConflict, "already friends")

	ErrNotTaskCreator    = NewError(ErrCodeForbidden, "only the task creator can do this")
	ErrNotTaskAssignee   = NewError(ErrCodeForbidden, "only the task assignee can do this")
	ErrNotDisputeRaiser  = NewError(ErrCodeForbidden, "only the user who raised the dispute can withdraw it")
	ErrNotParticipant    = NewError(ErrCodeForbidden, "not a participant of this task")
	ErrNotRequestTarget  = NewError(ErrCodeForbidden, "friend request is addressed to another user")
	ErrNotEdgeEndpoint   = NewError(ErrCodeForbidden, "not an endpoint of this friendship")
	ErrEscrowUnavailable = NewError(ErrCodeInternal, "task reward is not held in escrow")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// CodeOf returns the classification of err, INTERNAL when it carries none.
func CodeOf(err error) ErrorCode {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}
