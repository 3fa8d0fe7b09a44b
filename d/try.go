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

// Package d holds small panic-based assertion helpers for invariants
// that are programming errors rather than recoverable conditions:
// callers that mutate a structure while iterating it, or an allocator
// that runs out of memory. Recoverable failures use package errs
// instead.
package d

import "fmt"

type wrappedError struct {
	msg   string
	cause error
}

func (w wrappedError) Error() string { return w.msg }

func (w wrappedError) Unwrap() error { return w.cause }

// Wrap attaches msg as context to cause, preserving cause for Unwrap.
func Wrap(cause error, msg string) error {
	return wrappedError{msg, cause}
}

// Unwrap returns the wrapped cause of err, or err itself if it does
// not wrap anything.
func Unwrap(err error) error {
	if w, ok := err.(wrappedError); ok {
		return w.cause
	}
	return err
}

// PanicIfError panics with err if it is non-nil.
func PanicIfError(err error) {
	if err != nil {
		panic(err)
	}
}

// PanicIfTrue panics with msg if b is true.
func PanicIfTrue(b bool, msg ...interface{}) {
	if b {
		panic(fmt.Sprint(msg...))
	}
}

// PanicIfFalse panics with msg if b is false.
func PanicIfFalse(b bool, msg ...interface{}) {
	if !b {
		panic(fmt.Sprint(msg...))
	}
}

// Chk panics with a formatted message if b is false. It is the
// variant used for hot-path invariant checks where the message is
// built lazily via fmt.Sprintf-style arguments.
func Chk(b bool, format string, args ...interface{}) {
	if !b {
		panic(fmt.Sprintf(format, args...))
	}
}
