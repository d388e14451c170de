package gostatement

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StatementError is the error type returned by every operation of the
// library. Number is a stable machine-checkable code; Message is one of the
// fixed templates below, formatted with MessageArgs.
type StatementError struct {
	Number          int
	StatementID     string
	Message         string
	MessageArgs     []interface{}
	ServerErrorCode string
	RetryAfter      time.Duration
	cause           error
}

func (se *StatementError) Error() string {
	message := se.Message
	if len(se.MessageArgs) > 0 {
		message = fmt.Sprintf(se.Message, se.MessageArgs...)
	}
	if se.ServerErrorCode != "" {
		message = fmt.Sprintf("%s (%s)", message, se.ServerErrorCode)
	}
	if se.StatementID != "" {
		return fmt.Sprintf("%06d: %s: %s", se.Number, se.StatementID, message)
	}
	return fmt.Sprintf("%06d: %s", se.Number, message)
}

// Unwrap returns the underlying cause, if any.
func (se *StatementError) Unwrap() error {
	return se.cause
}

const (
	// usage

	// ErrCodeInvalidState is returned when a result is used before it reached
	// SUCCEEDED or lacks a manifest.
	ErrCodeInvalidState = 270001
	// ErrCodeUnsupportedFormat is returned for disposition/format combinations
	// an operation cannot handle.
	ErrCodeUnsupportedFormat = 270002
	// ErrCodeInvalidValueFormat is returned when a typed cell holds malformed JSON.
	ErrCodeInvalidValueFormat = 270003
	// ErrCodeMalformedResponse is returned when the service or a chunk body is
	// not shaped as expected.
	ErrCodeMalformedResponse = 270004

	// cancellation

	// ErrCodeAborted is returned when the caller's context ends an operation.
	ErrCodeAborted = 271001
	// ErrCodeStatementCanceled is returned when the service reports CANCELED.
	ErrCodeStatementCanceled = 271002

	// service

	// ErrCodeStatementFailed is returned when the service reports FAILED or CLOSED.
	ErrCodeStatementFailed = 272001
	// ErrCodeFailedToGetChunk is returned when a remote chunk cannot be fetched.
	ErrCodeFailedToGetChunk = 272002

	// transport

	// ErrCodeAuthentication is returned for HTTP 401 and 403 responses.
	ErrCodeAuthentication = 273001
	// ErrCodeRateLimited is returned when HTTP 429 persists after retries.
	ErrCodeRateLimited = 273002
	// ErrCodeHTTPStatus is returned for other non-success HTTP statuses.
	ErrCodeHTTPStatus = 273003
	// ErrCodeServiceUnavailable is returned when the service cannot be reached.
	ErrCodeServiceUnavailable = 273004

	// configuration

	// ErrCodeEmptyHost is returned when Config.Host is empty.
	ErrCodeEmptyHost = 274001
	// ErrCodeEmptyWarehouse is returned when no warehouse id can be determined.
	ErrCodeEmptyWarehouse = 274002
	// ErrCodeMissingCredentials is returned when no credentials are configured.
	ErrCodeMissingCredentials = 274003
	// ErrCodeFailedToFindDSNInToml is returned when connections.toml lacks the
	// requested connection.
	ErrCodeFailedToFindDSNInToml = 274004
	// ErrCodeTomlFileParsingFailed is returned when a connections.toml value
	// has the wrong type.
	ErrCodeTomlFileParsingFailed = 274005
	// ErrCodeInvalidFilePermission is returned when connections.toml is
	// writable by others.
	ErrCodeInvalidFilePermission = 274006
	// ErrCodeExpiredToken is returned when a JWT access token has expired.
	ErrCodeExpiredToken = 274007
	// ErrCodeUnknownAuthType is returned for an unsupported AuthType.
	ErrCodeUnknownAuthType = 274008
)

const (
	errMsgNonSucceededStatement     = "Cannot fetch from non-succeeded statement: %v"
	errMsgNoManifest                = "Statement result has no manifest"
	errMsgInlineStream              = "Cannot stream inline result data"
	errMsgRowStreamFormat           = "Row streaming only supports JSON_ARRAY format, got %v"
	errMsgMergeFormat               = "Cannot merge chunks of format %v"
	errMsgExternalLinksInInline     = "Chunk %v returned external links for an INLINE result"
	errMsgFailedToParseValue        = "Failed to parse %v value: %v"
	errMsgStatementCanceled         = "Statement was canceled"
	errMsgStatementFailed           = "Statement failed"
	errMsgAborted                   = "Operation aborted"
	errMsgFailedToGetChunk          = "failed to get chunk %v. HTTP: %v, URL: %v"
	errMsgMalformedResponse         = "malformed response: %v"
	errMsgMalformedRow              = "row %v is not a JSON array"
	errMsgHTTPStatus                = "HTTP %v %v: %v"
	errMsgAuthentication            = "authentication failed. HTTP %v: %v"
	errMsgRateLimited               = "rate limited by the service"
	errMsgServiceUnavailable        = "service unavailable: %v"
	errMsgEmptyHost                 = "host is empty"
	errMsgEmptyWarehouse            = "warehouse id is empty and cannot be derived from the http path %q"
	errMsgMissingCredentials        = "no token or credentials configured"
	errMsgFailedToFindDSNInTomlFile = "failed to find the connection %q in the toml file"
	errMsgFailedToParseTomlFile     = "failed to parse the toml file. key: %v, value: %v"
	errMsgInvalidWritablePermission = "file %v is accessible by group or others"
	errMsgExpiredToken              = "access token expired at %v"
	errMsgUnknownAuthType           = "unknown auth type: %v"
)

// IsCancellation reports whether err is an abort of the local operation or
// a server-side statement cancellation.
func IsCancellation(err error) bool {
	var se *StatementError
	if errors.As(err, &se) {
		return se.Number == ErrCodeAborted || se.Number == ErrCodeStatementCanceled
	}
	return false
}

// errAborted wraps the context error so errors.Is(err, context.Canceled)
// keeps working.
func errAborted(statementID string, cause error) *StatementError {
	return &StatementError{
		Number:      ErrCodeAborted,
		StatementID: statementID,
		Message:     errMsgAborted,
		cause:       cause,
	}
}

func errNonSucceeded(result *StatementResult) *StatementError {
	return &StatementError{
		Number:      ErrCodeInvalidState,
		StatementID: result.StatementID,
		Message:     errMsgNonSucceededStatement,
		MessageArgs: []interface{}{result.Status.State},
	}
}

func errNoManifest(statementID string) *StatementError {
	return &StatementError{
		Number:      ErrCodeInvalidState,
		StatementID: statementID,
		Message:     errMsgNoManifest,
	}
}

func errMalformed(statementID string, cause error) *StatementError {
	return &StatementError{
		Number:      ErrCodeMalformedResponse,
		StatementID: statementID,
		Message:     errMsgMalformedResponse,
		MessageArgs: []interface{}{cause},
		cause:       cause,
	}
}

// abortOr lets a done context win over whatever error an operation observed.
func abortOr(ctx context.Context, statementID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if IsCancellation(err) {
			return err
		}
		return errAborted(statementID, ctxErr)
	}
	return err
}
