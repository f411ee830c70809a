package domain

import (
	"errors"
	"fmt"
)

// RejectionCode is the closed set of reasons Action Admission records on
// a rejected action event (§7). Rejections are never returned as Go
// errors — they are recorded in the log so replay reproduces them.
type RejectionCode string

const (
	ReasonMalformed       RejectionCode = "malformed"
	ReasonOffFeed         RejectionCode = "off_feed"
	ReasonDuplicateVote   RejectionCode = "duplicate_vote"
	ReasonNoSuchVote      RejectionCode = "no_such_vote"
	ReasonSelfFollow      RejectionCode = "self_follow"
	ReasonDuplicateFollow RejectionCode = "duplicate_follow"
	ReasonNoSuchFollow    RejectionCode = "no_such_follow"
	ReasonEmptyBody       RejectionCode = "empty_body"
)

// KernelErrorCode categorizes the fatal, non-rejection error kinds of §7.
type KernelErrorCode string

const (
	ErrCodeAlreadyInitialized KernelErrorCode = "ALREADY_INITIALIZED"
	ErrCodeUnknownAlgorithm   KernelErrorCode = "UNKNOWN_ALGORITHM"
	ErrCodeTickRegression     KernelErrorCode = "TICK_REGRESSION"
	ErrCodeStore              KernelErrorCode = "STORE_ERROR"
)

// KernelError is a structured fatal error. Fatal errors are never logged
// as events; they abort the caller's transaction and bubble to the
// driver with the log left consistent up to the last commit.
type KernelError struct {
	Code    KernelErrorCode
	Message string
	Err     error
}

func (e *KernelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *KernelError) Unwrap() error { return e.Err }

func NewKernelError(code KernelErrorCode, message string) *KernelError {
	return &KernelError{Code: code, Message: message}
}

func WrapKernelError(code KernelErrorCode, message string, err error) *KernelError {
	return &KernelError{Code: code, Message: message, Err: err}
}

// IsAlreadyInitialized reports whether err is an ALREADY_INITIALIZED
// KernelError, unwrapping as needed.
func IsAlreadyInitialized(err error) bool {
	var ke *KernelError
	return errors.As(err, &ke) && ke.Code == ErrCodeAlreadyInitialized
}
