package trip

import (
	"errors"
	"strconv"
	"strings"
)

// MaxDay caps user-assigned trip day numbers
const MaxDay = 999

// ErrDayIndexOutOfRange rejects a day edit for a segment index that does
// not exist
var ErrDayIndexOutOfRange = errors.New("segment index out of range")

// SanitizeDays enforces the day invariants in place: days[0] >= 1 and every
// later day is at least its predecessor. The cascade is forward-only; a
// raised day pulls all following days up, never down.
func SanitizeDays(days []int) []int {
	for i := range days {
		if i == 0 {
			if days[i] < 1 {
				days[i] = 1
			}
			continue
		}
		if days[i] < days[i-1] {
			days[i] = days[i-1]
		}
	}
	return days
}

// SyncDays produces a segmentDays array matching segmentCount. A same-length
// existing array is reused so user assignments survive recalculations that
// keep the segment count; otherwise values carry over by index and
// genuinely new positions get sequential days starting at 1. The result is
// always sanitized.
func SyncDays(existing []int, segmentCount int) []int {
	if segmentCount == 0 {
		return []int{}
	}
	if len(existing) == segmentCount {
		out := make([]int, segmentCount)
		copy(out, existing)
		return SanitizeDays(out)
	}

	out := make([]int, segmentCount)
	for i := 0; i < segmentCount; i++ {
		if i < len(existing) {
			out[i] = existing[i]
		} else {
			out[i] = i + 1
		}
	}
	return SanitizeDays(out)
}

// SetDay applies a user edit to one segment's day. The requested value is
// clamped to [previous day (or 1), MaxDay], then the forward cascade pulls
// all later segments up to at least the new value.
func SetDay(days []int, index, value int) error {
	if index < 0 || index >= len(days) {
		return ErrDayIndexOutOfRange
	}

	floor := 1
	if index > 0 {
		floor = days[index-1]
	}
	if value < floor {
		value = floor
	}
	if value > MaxDay {
		value = MaxDay
	}

	days[index] = value
	SanitizeDays(days[index:])
	return nil
}

// SetDayNote stores a note for a trip day in the sparse notes map. Blank
// text deletes the key instead of storing whitespace.
func SetDayNote(notes map[string]string, day int, text string) {
	key := strconv.Itoa(day)
	if strings.TrimSpace(text) == "" {
		delete(notes, key)
		return
	}
	notes[key] = text
}
