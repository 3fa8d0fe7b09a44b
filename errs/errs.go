// Copyright 2024 Arbornet, Inc.
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

// Package errs defines the error kinds surfaced by the core. Every
// recoverable failure in the codecs and engines is one of these;
// constructors that have an underlying cause wrap it with
// github.com/pkg/errors so callers can unwrap back to it.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// FormatError signals malformed bytes seen by a codec: bad magic, a
// missing field, a non-numeric value where a number is required, a
// leading zero, an unterminated string, or disordered dict keys.
type FormatError struct {
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("format error: %s: %v", e.Reason, e.cause)
	}
	return fmt.Sprintf("format error: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

// NewFormatError builds a FormatError with the given reason.
func NewFormatError(reason string) error {
	return &FormatError{Reason: reason}
}

// WrapFormatError builds a FormatError wrapping cause.
func WrapFormatError(cause error, reason string) error {
	return &FormatError{Reason: reason, cause: errors.WithStack(cause)}
}

// DirstateCorruptError signals a packed dirstate record that failed
// its integrity checks, naming the offending state object.
type DirstateCorruptError struct {
	StateObject string
	Reason      string
	cause       error
}

func (e *DirstateCorruptError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("dirstate corrupt in %s: %s: %v", e.StateObject, e.Reason, e.cause)
	}
	return fmt.Sprintf("dirstate corrupt in %s: %s", e.StateObject, e.Reason)
}

func (e *DirstateCorruptError) Unwrap() error { return e.cause }

func NewDirstateCorruptError(stateObject, reason string) error {
	return &DirstateCorruptError{StateObject: stateObject, Reason: reason}
}

// WrapDirstateCorruptError builds a DirstateCorruptError wrapping cause.
func WrapDirstateCorruptError(cause error, stateObject, reason string) error {
	return &DirstateCorruptError{StateObject: stateObject, Reason: reason, cause: errors.WithStack(cause)}
}

// RevisionNotPresentError signals the annotator was asked for a key
// absent from the versioned-file store.
type RevisionNotPresentError struct {
	Key fmt.Stringer
}

func (e *RevisionNotPresentError) Error() string {
	return fmt.Sprintf("revision not present: %s", e.Key)
}

func NewRevisionNotPresentError(key fmt.Stringer) error {
	return &RevisionNotPresentError{Key: key}
}

// GraphCycleError signals that topological sort could not drain the
// graph; it carries the residual (unvisited) node keys.
type GraphCycleError struct {
	Residual []fmt.Stringer
}

func (e *GraphCycleError) Error() string {
	return fmt.Sprintf("graph cycle: %d node(s) could not be ordered", len(e.Residual))
}

func NewGraphCycleError(residual []fmt.Stringer) error {
	return &GraphCycleError{Residual: residual}
}

// TooDeeplyNestedError signals the BEncode decoder exceeded its
// configured recursion budget.
type TooDeeplyNestedError struct {
	Limit int
}

func (e *TooDeeplyNestedError) Error() string {
	return fmt.Sprintf("too deeply nested: exceeded limit of %d", e.Limit)
}

func NewTooDeeplyNestedError(limit int) error {
	return &TooDeeplyNestedError{Limit: limit}
}

// TypeError signals the BEncode encoder received an unsupported value
// kind, naming that kind.
type TypeError struct {
	Kind string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: unsupported value kind %q", e.Kind)
}

func NewTypeError(kind string) error {
	return &TypeError{Kind: kind}
}

// OutOfMemoryError is fatal: allocation of the interned-tuple table
// failed.
type OutOfMemoryError struct {
	Reason string
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("out of memory: %s", e.Reason)
}

func NewOutOfMemoryError(reason string) error {
	return &OutOfMemoryError{Reason: reason}
}
