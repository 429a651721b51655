// Package core provides the business logic for loading and editing users and
// statuses.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Error codes are grouped by category:
//
// # Feed Errors (FEED001-FEED099)
//
//	FEED001 - Feed unavailable: The feed file could not be opened or read
//	          Action: Check the path and file permissions
//	FEED002 - Feed too large: The feed exceeds LOAD_MAX_FEED_SIZE
//	          Action: Split the feed into smaller files
//	FEED003 - Invalid CSV: The feed is not well-formed CSV
//	          Action: Check quoting and delimiters around the reported line
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing field: A cell is empty or a column is missing
//	         Action: Fill in the reported field and load again
//	VAL002 - Unexpected column: The header names a column the feed does not use
//	         Action: Remove or rename the column
//	VAL003 - Invalid value: A field failed validation
//	         Action: Correct the reported value and load again
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists
//	        Action: Use update instead of add, or choose another ID
//	DB002 - Integrity: Referenced record does not exist
//	        Action: Load or add the users first
//	DB003 - Not found: No record has this ID
//	        Action: Check the ID and try again
//	DB004 - Connection refused: Unable to connect to database
//	        Action: Check DATABASE_URL and that the server is running
//	DB005 - Database busy: The database is locked by another process
//	        Action: Please try again
//	DB006 - Timeout: Operation timed out
//	        Action: Raise LOAD_TIMEOUT or load a smaller feed
//	DB007 - Cancelled: Operation was cancelled
//	        Action: Run the command again when ready
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Check the logs for the technical error
//
// # Matching
//
// Errors produced by this package are matched by kind with errors.Is. Other
// errors fall back to case-insensitive substring patterns; the first match
// wins.
package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgFeedUnavailable = UserMessage{
		Message: "The feed could not be opened",
		Action:  "Check the path and file permissions",
		Code:    "FEED001",
	}
	msgFeedTooLarge = UserMessage{
		Message: "The feed exceeds the maximum size",
		Action:  "Split the feed into smaller files",
		Code:    "FEED002",
	}
	msgInvalidCSV = UserMessage{
		Message: "The feed is not valid CSV",
		Action:  "Check quoting and delimiters around the reported line",
		Code:    "FEED003",
	}
	msgMissingField = UserMessage{
		Message: "A required field is empty",
		Action:  "Fill in the reported field and load again",
		Code:    "VAL001",
	}
	msgUnexpectedColumn = UserMessage{
		Message: "The feed contains an unexpected column",
		Action:  "Remove or rename the column",
		Code:    "VAL002",
	}
	msgValidation = UserMessage{
		Message: "A field has an invalid value",
		Action:  "Correct the reported value and load again",
		Code:    "VAL003",
	}
	msgDuplicateKey = UserMessage{
		Message: "A record with this ID already exists",
		Action:  "Use update instead of add, or choose another ID",
		Code:    "DB001",
	}
	msgIntegrity = UserMessage{
		Message: "Referenced record does not exist",
		Action:  "Load or add the users first",
		Code:    "DB002",
	}
	msgNotFound = UserMessage{
		Message: "No record has this ID",
		Action:  "Check the ID and try again",
		Code:    "DB003",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Raise LOAD_TIMEOUT or load a smaller feed",
		Code:    "DB006",
	}
	msgCancelled = UserMessage{
		Message: "Operation was cancelled",
		Action:  "Run the command again when ready",
		Code:    "DB007",
	}
)

// errorKinds is checked in order with errors.Is. More specific causes come
// before the kind they are wrapped in.
var errorKinds = []struct {
	target error
	msg    UserMessage
}{
	{ErrFeedTooLarge, msgFeedTooLarge},
	{context.DeadlineExceeded, msgTimeout},
	{context.Canceled, msgCancelled},
	{ErrFeedUnavailable, msgFeedUnavailable},
	{ErrMissingField, msgMissingField},
	{ErrUnexpectedColumn, msgUnexpectedColumn},
	{ErrValidation, msgValidation},
	{ErrDuplicateKey, msgDuplicateKey},
	{ErrStorageIntegrity, msgIntegrity},
	{ErrNotFound, msgNotFound},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers driver errors that reach the caller unwrapped.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the server is running",
			Code:    "DB004",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "The database is locked by another process",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "unique constraint", msg: msgDuplicateKey},
	{pattern: "foreign key", msg: msgIntegrity},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for the technical error",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. It returns the zero
// UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	// A malformed feed is reported as unavailable; the parse error is the
	// more useful message.
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return msgInvalidCSV
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
