package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMessageIDRequired   = errors.New("message id is required")
	ErrConsumedUntriggered = errors.New("consumed requires didProcessTrigger")
	ErrUnknownTrigger      = errors.New("unknown trigger kind")
	ErrDuplicateMessage    = errors.New("duplicate message id")
	ErrNilMessage          = errors.New("message is nil")
)

// MessageError is one failed check on one message. Index is the message's
// position in a validated set, or -1 when a single message was checked.
type MessageError struct {
	Index     int    `json:"index"`
	MessageID string `json:"message_id,omitempty"`
	Field     string `json:"field,omitempty"`
	Err       error  `json:"-"`
}

func (e MessageError) Error() string {
	var b strings.Builder
	switch {
	case e.Index >= 0:
		b.WriteString("messages[" + strconv.Itoa(e.Index) + "]")
		if e.Field != "" {
			b.WriteString("." + e.Field)
		}
	case e.Field != "":
		b.WriteString(e.Field)
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e MessageError) Unwrap() error { return e.Err }

// ValidationErrors collects every failed check of a message or message set.
type ValidationErrors struct {
	Errors []MessageError `json:"errors"`
}

func (v *ValidationErrors) add(index int, m *Message, field string, err error) {
	e := MessageError{Index: index, Field: field, Err: err}
	if m != nil {
		e.MessageID = m.ID
	}
	v.Errors = append(v.Errors, e)
}

// Err returns nil when nothing failed.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Errors) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	if v == nil || len(v.Errors) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Unwrap exposes each cause to errors.Is and errors.As.
func (v *ValidationErrors) Unwrap() []error {
	if v == nil {
		return nil
	}
	errs := make([]error, 0, len(v.Errors))
	for _, e := range v.Errors {
		errs = append(errs, e)
	}
	return errs
}

func checkMessage(errs *ValidationErrors, index int, m *Message) {
	if m == nil {
		errs.add(index, nil, "", ErrNilMessage)
		return
	}
	if strings.TrimSpace(m.ID) == "" {
		errs.add(index, m, "messageId", ErrMessageIDRequired)
	}
	if m.Consumed && !m.DidProcessTrigger {
		errs.add(index, m, "consumed", ErrConsumedUntriggered)
	}
	switch m.Trigger {
	case TriggerImmediate, TriggerEvent, TriggerNever:
	default:
		errs.add(index, m, "trigger", fmt.Errorf("%w %q", ErrUnknownTrigger, m.Trigger))
	}
}

// Validate checks the invariants a stored message must hold.
func (m *Message) Validate() error {
	var errs ValidationErrors
	checkMessage(&errs, -1, m)
	return errs.Err()
}

// ValidateMessages checks every message of a set and that ids are unique.
// Failures carry the message's index in the set.
func ValidateMessages(messages []*Message) error {
	var errs ValidationErrors
	seen := make(map[string]int, len(messages))
	for i, m := range messages {
		checkMessage(&errs, i, m)
		if m == nil || m.ID == "" {
			continue
		}
		if first, ok := seen[m.ID]; ok {
			errs.add(i, m, "messageId", fmt.Errorf("%w: first seen at messages[%d]", ErrDuplicateMessage, first))
			continue
		}
		seen[m.ID] = i
	}
	return errs.Err()
}
