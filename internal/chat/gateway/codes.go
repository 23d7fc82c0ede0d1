package gateway

import (
	"errors"
	"fmt"
)

// ProtocolVersion is negotiated by clients through version_chk.
const ProtocolVersion = "0.1.7.7"

// Code is a status code. Codes are append-only; never renumber or reword an
// existing entry.
type Code int

const (
	CodeInvalidPassword Code = iota
	Code2FAOnly
	CodeMissingPermissions
	CodeBanned
	CodeIllegalChars
	CodeKicked
	CodeOK
	CodeSyntax
	CodeDatatype
	CodeIDNotFound
	CodeInternal
	CodeLoop
	CodeRateLimit
	CodeTooLarge
	CodeDisabled
	CodeInvalid
	CodeUnauthenticated
	CodeAlreadyAuthenticated
	CodeSuspended
)

var catalog = [...]string{
	CodeInvalidPassword:      "I:011 | Invalid Password",
	Code2FAOnly:              "I:016 | 2FA Required",
	CodeMissingPermissions:   "I:017 | Missing permissions",
	CodeBanned:               "E:018 | Account Banned",
	CodeIllegalChars:         "E:019 | Illegal characters detected",
	CodeKicked:               "E:020 | Kicked",
	CodeOK:                   "I:100 | OK",
	CodeSyntax:               "E:101 | Syntax",
	CodeDatatype:             "E:102 | Datatype",
	CodeIDNotFound:           "E:103 | ID not found",
	CodeInternal:             "E:104 | Internal",
	CodeLoop:                 "E:105 | Loop detected",
	CodeRateLimit:            "E:106 | Too many requests",
	CodeTooLarge:             "E:107 | Packet too large",
	CodeDisabled:             "E:122 | Command disabled by sysadmin",
	CodeInvalid:              "E:123 | Invalid command",
	CodeUnauthenticated:      "E:124 | Not authenticated",
	CodeAlreadyAuthenticated: "E:125 | Already authenticated",
	CodeSuspended:            "E:126 | Account suspended",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(catalog) {
		return catalog[CodeInternal]
	}
	return catalog[c]
}

// StatusError is returned by handlers to reply with a specific code.
type StatusError struct {
	Code Code
	Err  error
}

func Status(code Code) *StatusError { return &StatusError{Code: code} }

func Statusf(code Code, err error) *StatusError { return &StatusError{Code: code, Err: err} }

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code.String()
}

func (e *StatusError) Unwrap() error { return e.Err }

// statusOf maps a handler error to the code sent back. ok is false for
// errors that are not a StatusError.
func statusOf(err error) (Code, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return CodeInternal, false
}
