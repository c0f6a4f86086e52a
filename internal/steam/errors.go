package steam

import (
	"errors"
	"fmt"
)

// ValidationError is returned when a value object is constructed from data
// that does not satisfy its invariants.
type ValidationError struct {
	Field    string
	Expected string
	Got      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: expected %q, got %q", e.Field, e.Expected, e.Got)
}

// LoginError is returned when a step of the login handshake (or store
// session creation) does not yield the field it is expected to.
type LoginError struct {
	Step  string
	Cause error
}

func (e *LoginError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("login failed at %s", e.Step)
	}
	return fmt.Sprintf("login failed at %s: %s", e.Step, e.Cause.Error())
}

func (e *LoginError) Unwrap() error {
	return e.Cause
}

// InvalidTargetError means the provider rejected or does not know the
// requested identifier.
type InvalidTargetError struct {
	Target string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target: %s", e.Target)
}

// UnexpectedStatusError is returned for any non-2xx http response.
type UnexpectedStatusError struct {
	Url        string
	StatusCode int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.Url)
}

// ParseReason identifies which extraction of a parser failed.
type ParseReason string

const (
	ReasonMalformedJson      ParseReason = "malformed json"
	ReasonMalformedHtml      ParseReason = "malformed html"
	ReasonTotalMissing       ParseReason = "review total missing"
	ReasonTotalMalformed     ParseReason = "review total malformed"
	ReasonReviewId           ParseReason = "review id"
	ReasonUserId             ParseReason = "user id"
	ReasonRecommendation     ParseReason = "recommendation"
	ReasonDate               ParseReason = "date"
	ReasonSource             ParseReason = "review source"
	ReasonPlaytime           ParseReason = "playtime"
	ReasonNoReviewCards      ParseReason = "no review cards"
	ReasonAppIdMissing       ParseReason = "app id missing"
	ReasonPageVersion        ParseReason = "unexpected page version"
	ReasonPageType           ParseReason = "unexpected page type"
	ReasonAppName            ParseReason = "app name"
	ReasonTags               ParseReason = "tags"
	ReasonPrice              ParseReason = "price"
	ReasonReleaseDate        ParseReason = "release date"
	ReasonDeckCompatibility  ParseReason = "steam deck compatibility"
	ReasonReviewScore        ParseReason = "review score"
	ReasonEmbeddedData       ParseReason = "embedded data missing"
	ReasonQueryMissing       ParseReason = "query missing"
	ReasonProfilePrivate     ParseReason = "profile is private"
	ReasonGamesEmpty         ParseReason = "games list empty"
	ReasonUnexpectedResponse ParseReason = "unexpected response"
)

// ParseError is returned when a payload does not have the shape a parser expects.
type ParseError struct {
	Reason ParseReason
	Detail string
	Cause  error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse error: %s", e.Reason)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RecoverableMarkupError is a ParseError caused by expected markup being absent
// or empty, a caller may retry the whole page fetch when it sees one.
type RecoverableMarkupError struct {
	ParseError
}

func (e *RecoverableMarkupError) Unwrap() error {
	return &e.ParseError
}

// TotalMismatchError means the review stream could not be reconciled with
// the total the provider announced.
type TotalMismatchError struct {
	Expected int
	Got      int
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("total mismatch: Expected: %d, got: %d", e.Expected, e.Got)
}

func NewParseError(reason ParseReason, detail string, cause error) *ParseError {
	return &ParseError{Reason: reason, Detail: detail, Cause: cause}
}

func NewRecoverableMarkupError(reason ParseReason, detail string) *RecoverableMarkupError {
	return &RecoverableMarkupError{ParseError: ParseError{Reason: reason, Detail: detail}}
}

// IsRecoverable reports if err (or anything it wraps) is a RecoverableMarkupError.
func IsRecoverable(err error) bool {
	var recoverable *RecoverableMarkupError
	return errors.As(err, &recoverable)
}

// ParseReasonOf returns the reason of the first ParseError in err's chain.
func ParseReasonOf(err error) (ParseReason, bool) {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Reason, true
	}
	return "", false
}
