// Copyright The Draconis Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs carries the error-kind taxonomy used across draconis. Go has
// no sum types, so Result<T> from the originating design becomes an
// ordinary (T, error) return, and the kind becomes metadata attached to an
// *Error that callers can recover with errors.As.
package errs

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies the nature of a failure, mirroring the taxonomy used
// throughout the host-probing and plugin layers.
type Kind int

const (
	Other Kind = iota
	NotFound
	PermissionDenied
	PermissionRequired
	NotSupported
	UnavailableFeature
	ApiUnavailable
	PlatformSpecific
	ParseError
	CorruptedData
	ConfigurationError
	InvalidArgument
	IoError
	NetworkError
	Timeout
	ResourceExhausted
	OutOfMemory
	InternalError
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case PermissionRequired:
		return "PermissionRequired"
	case NotSupported:
		return "NotSupported"
	case UnavailableFeature:
		return "UnavailableFeature"
	case ApiUnavailable:
		return "ApiUnavailable"
	case PlatformSpecific:
		return "PlatformSpecific"
	case ParseError:
		return "ParseError"
	case CorruptedData:
		return "CorruptedData"
	case ConfigurationError:
		return "ConfigurationError"
	case InvalidArgument:
		return "InvalidArgument"
	case IoError:
		return "IoError"
	case NetworkError:
		return "NetworkError"
	case Timeout:
		return "Timeout"
	case ResourceExhausted:
		return "ResourceExhausted"
	case OutOfMemory:
		return "OutOfMemory"
	case InternalError:
		return "InternalError"
	default:
		return "Other"
	}
}

// Error is the concrete error type carrying a Kind plus an optional wrapped
// cause and the call site that produced it.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	file    string
	line    int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Location reports the file:line where the error was constructed, useful
// for log output without requiring a full stack trace.
func (e *Error) Location() string {
	return fmt.Sprintf("%s:%d", e.file, e.line)
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
	e.file, e.line = caller()
	return e
}

// Wrap attaches a Kind to an existing error, preserving it as the cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	e := &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
	e.file, e.line = caller()
	return e
}

func caller() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown", 0
	}
	return file, line
}

// KindOf extracts the Kind from err, returning Other if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Is reports whether err is a draconis *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
