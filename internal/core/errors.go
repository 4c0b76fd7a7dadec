package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/etltoolbox/internal/loader"
	"github.com/JonMunkholm/etltoolbox/internal/table"
)

// ErrFileTooLarge is returned when an input exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// sentinelMessages are checked with errors.Is before any string pattern,
// so wrapping never hides them.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{table.ErrLabelRowNotFound, UserMessage{
		Message: "Could not find the row holding the column labels",
		Action:  "Check that the profile lists the labels used in your file",
		Code:    "LBL001",
	}},
	{table.ErrInvalidThreshold, UserMessage{
		Message: "Label match threshold must be at least 1",
		Action:  "Fix match_threshold in the profile",
		Code:    "LBL002",
	}},
	{ErrUnknownProfile, UserMessage{
		Message: "Unknown cleaning profile",
		Action:  "Pick one of the profiles listed by /api/profiles",
		Code:    "PRF001",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{loader.ErrUnsupportedCharset, UserMessage{
		Message: "File uses an unsupported character set",
		Action:  "Use utf-8, utf-16, latin1 or windows-1252",
		Code:    "FILE003",
	}},
	{loader.ErrEmptyInput, UserMessage{
		Message: "File is empty",
		Action:  "Check that you selected the correct file",
		Code:    "FILE004",
	}},
	{ErrNoSink, UserMessage{
		Message: "Loading into a database is not enabled",
		Action:  "Set DATABASE_URL and SINK_TABLE",
		Code:    "DB005",
	}},
	{ErrTooManyCleans, UserMessage{
		Message: "Too many files are being cleaned right now",
		Action:  "Please wait a moment and try again",
		Code:    "RUN001",
	}},
	{context.Canceled, UserMessage{
		Message: "Cleaning was cancelled",
		Action:  "Start the clean again if this was not intended",
		Code:    "RUN002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Cleaning took too long",
		Action:  "Try a smaller file or try again later",
		Code:    "RUN003",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages. The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{"parse csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is delimited consistently and quotes are balanced",
		Code:    "FILE002",
	}},
	{"open workbook", UserMessage{
		Message: "File is not a readable Excel workbook",
		Action:  "Re-save the file as .xlsx and try again",
		Code:    "FILE005",
	}},
	{"read sheet", UserMessage{
		Message: "Worksheet not found in workbook",
		Action:  "Check the sheet name",
		Code:    "FILE005",
	}},
	{"json", UserMessage{
		Message: "File is not valid JSON table data",
		Action:  "Provide an array of arrays or an array of objects",
		Code:    "FILE006",
	}},
	{"gzip", UserMessage{
		Message: "Compressed file is corrupt",
		Action:  "Re-compress the file and try again",
		Code:    "FILE007",
	}},
	{"xz", UserMessage{
		Message: "Compressed file is corrupt",
		Action:  "Re-compress the file and try again",
		Code:    "FILE007",
	}},

	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB002",
	}},
	{"does not exist", UserMessage{
		Message: "Destination table or column does not exist",
		Action:  "Enable table creation or create the table first",
		Code:    "DB003",
	}},
	{"permission denied", UserMessage{
		Message: "Database user may not write to the destination table",
		Action:  "Grant INSERT on the table to the loader's user",
		Code:    "DB004",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
//	msg := MapError(fmt.Errorf("clean: %w", table.ErrLabelRowNotFound))
//	// msg.Code == "LBL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action"
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

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
