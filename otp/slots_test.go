package otp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	filled  []int
	changes int
	last    [Length]string
}

func (r *recorder) SlotFilled(index int) { r.filled = append(r.filled, index) }

func (r *recorder) Changed(digits [Length]string) {
	r.changes++
	r.last = digits
}

func TestSlots_FillFromEmpty(t *testing.T) {
	for _, c := range []string{"1", "12", "123", "1234", "12345", "123456"} {
		s := NewSlots(nil)
		s.FillFrom(c)
		assert.Equal(t, c, s.Joined())
	}
}

func TestSlots_FillFromKeepsRemainingSlots(t *testing.T) {
	s := NewSlots(nil)
	s.FillFrom("999999")
	s.FillFrom("12")

	assert.Equal(t, "129999", s.Joined())
}

func TestSlots_FillFromTruncates(t *testing.T) {
	s := NewSlots(nil)
	s.FillFrom("12345678")

	assert.Equal(t, "123456", s.Joined())
	assert.True(t, s.Full())
}

func TestSlots_FillFromAbsentIsNoop(t *testing.T) {
	rec := &recorder{}
	s := NewSlots(rec)
	require.NoError(t, s.SetSlot(2, "7"))
	before := s.Digits()
	changes := rec.changes

	s.FillFrom("")

	assert.Equal(t, before, s.Digits())
	assert.Equal(t, changes, rec.changes)
}

func TestSlots_SetSlot(t *testing.T) {
	rec := &recorder{}
	s := NewSlots(rec)

	require.NoError(t, s.SetSlot(0, "4"))
	require.NoError(t, s.SetSlot(5, "2"))
	assert.Equal(t, "42", s.Joined())
	assert.Equal(t, []int{0, 5}, rec.filled)
	assert.Equal(t, [Length]string{"4", "", "", "", "", "2"}, rec.last)

	// Clearing a slot changes state but is not a fill.
	require.NoError(t, s.SetSlot(0, ""))
	assert.Equal(t, []int{0, 5}, rec.filled)
	assert.Equal(t, "2", s.Joined())
}

func TestSlots_SetSlotAllowsNonDigits(t *testing.T) {
	s := NewSlots(nil)
	require.NoError(t, s.SetSlot(1, "x"))
	assert.Equal(t, "x", s.Joined())
}

func TestSlots_SetSlotRejectsLongValue(t *testing.T) {
	for _, prior := range []string{"", "3"} {
		rec := &recorder{}
		s := NewSlots(rec)
		require.NoError(t, s.SetSlot(3, prior))
		changes := rec.changes
		filled := len(rec.filled)

		err := s.SetSlot(3, "ab")

		assert.ErrorIs(t, err, ErrValueTooLong)
		assert.Equal(t, prior, s.Digits()[3])
		assert.Equal(t, changes, rec.changes)
		assert.Len(t, rec.filled, filled)
	}
}

func TestSlots_SetSlotIndexOutOfRange(t *testing.T) {
	s := NewSlots(nil)
	assert.ErrorIs(t, s.SetSlot(-1, "1"), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetSlot(Length, "1"), ErrIndexOutOfRange)
	assert.Equal(t, "", s.Joined())
}

func TestSlots_Clear(t *testing.T) {
	s := NewSlots(nil)
	s.FillFrom("123456")
	s.Clear()

	assert.Equal(t, "", s.Joined())
	assert.False(t, s.Full())
}
