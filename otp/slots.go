package otp

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrValueTooLong    = errors.New("slot value must be at most one character")
	ErrIndexOutOfRange = errors.New("slot index out of range")
)

// Listener is notified about slot changes. SlotFilled is sent after a single
// character is typed into a slot: for index < Length-1 focus should move to
// index+1, for the last slot the keyboard should be dismissed. It precedes
// the Changed notification for the same edit.
type Listener interface {
	SlotFilled(index int)
	Changed(digits [Length]string)
}

// Slots holds the six single-character entries of an OTP form.
// It is not safe for concurrent use.
type Slots struct {
	digits   [Length]string
	listener Listener
}

// NewSlots returns empty slots. listener may be nil.
func NewSlots(listener Listener) *Slots {
	return &Slots{listener: listener}
}

// FillFrom copies the characters of candidate into the slots from the left.
// Slots past the end of candidate keep their value. An empty candidate is a
// no-op.
func (s *Slots) FillFrom(candidate string) {
	if candidate == "" {
		return
	}

	i := 0
	for _, r := range candidate {
		if i >= Length {
			break
		}

		s.digits[i] = string(r)
		i++
	}

	s.changed()
}

// SetSlot stores value at index. Values longer than one character are
// rejected and the slot is left unchanged.
func (s *Slots) SetSlot(index int, value string) error {
	if index < 0 || index >= Length {
		return ErrIndexOutOfRange
	}

	if utf8.RuneCountInString(value) > 1 {
		return ErrValueTooLong
	}

	s.digits[index] = value

	if value != "" && s.listener != nil {
		s.listener.SlotFilled(index)
	}

	s.changed()
	return nil
}

// Clear empties every slot.
func (s *Slots) Clear() {
	s.digits = [Length]string{}
	s.changed()
}

// Joined concatenates the slots in order. Empty slots contribute nothing.
func (s *Slots) Joined() string {
	return strings.Join(s.digits[:], "")
}

func (s *Slots) Digits() [Length]string {
	return s.digits
}

// Full reports whether every slot holds a character.
func (s *Slots) Full() bool {
	for _, d := range s.digits {
		if d == "" {
			return false
		}
	}

	return true
}

func (s *Slots) changed() {
	if s.listener != nil {
		s.listener.Changed(s.digits)
	}
}
