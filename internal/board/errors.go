/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package board

import (
	"errors"
	"fmt"

	"moodboard/internal/domain"
)

var (
	// ErrNoHistory is returned by Undo/Redo at a history boundary. It is informational:
	// callers use it to disable the corresponding action.
	ErrNoHistory = errors.New("no history")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failure")
	// ErrNoGesture is returned when a gesture call arrives without BeginGesture.
	ErrNoGesture = errors.New("no gesture in progress")
)

// ValidationError explains why a command was rejected. The board is unchanged.
type ValidationError struct {
	Op     string
	Item   domain.ItemID
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	var where string
	if e.Item != 0 {
		where = fmt.Sprintf(" item %d", e.Item)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s%s: %s: %s", e.Op, where, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s%s: %s", e.Op, where, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(op string, id domain.ItemID, reason string) error {
	return &ValidationError{Op: op, Item: id, Reason: reason}
}

// invalidField converts a domain.FieldError into a ValidationError.
func invalidField(op string, id domain.ItemID, err error) error {
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Op: op, Item: id, Field: fe.Field, Reason: fe.Reason}
	}
	return &ValidationError{Op: op, Item: id, Reason: err.Error()}
}
