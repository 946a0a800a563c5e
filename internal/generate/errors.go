/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package generate

import (
	"errors"
	"fmt"
)

// Kind classifies a generation failure.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindStatus
	KindMalformed
	KindTimeout
	KindSuperseded
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	case KindTimeout:
		return "timeout"
	case KindSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

var (
	// ErrTimeout matches any *Error of KindTimeout.
	ErrTimeout = errors.New("generation timed out")
	// ErrSuperseded matches any *Error of KindSuperseded: a newer request
	// replaced this one before it completed.
	ErrSuperseded = errors.New("generation superseded by a newer request")
)

// Error is returned by every failing Client call.
type Error struct {
	Kind      Kind
	Status    int    // HTTP status for KindStatus
	Detail    string // server supplied detail, if any
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	msg := "generate " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTimeout) and errors.Is(err, ErrSuperseded) work
// regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrSuperseded:
		return e.Kind == KindSuperseded
	}
	return false
}

// IsKind reports whether err is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == k
}
