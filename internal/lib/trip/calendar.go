package trip

import (
	"fmt"
	"strconv"
	"time"
)

// bufferDayCount is the fixed number of calendar days shown before and
// after the trip's day range for loading/packing context
const bufferDayCount = 2

const dateLayout = "2006-01-02"

// DayEntry is one row of the derived calendar view
type DayEntry struct {
	DayNumber      int    `json:"dayNumber,omitempty"` // 0 for buffer days
	Label          string `json:"label,omitempty"`     // "before trip" / "after trip"
	Date           string `json:"date,omitempty"`      // YYYY-MM-DD, only when a start date is set
	SegmentIndexes []int  `json:"segmentIndexes"`
	RestDay        bool   `json:"restDay,omitempty"`
	Note           string `json:"note,omitempty"`
}

// BuildCalendar derives the ordered day-entry list from segment day
// assignments. Every day from 1 to the highest assigned day appears; a day
// with no segments is a legitimate rest day. When startDate (YYYY-MM-DD) is
// set, trip day d carries the date startDate+(d-1) and buffer days bracket
// the range; when unset, entries are day-number-only.
func BuildCalendar(segmentDays []int, startDate string, notes map[string]string) ([]DayEntry, error) {
	maxDay := 0
	for _, d := range segmentDays {
		if d > maxDay {
			maxDay = d
		}
	}
	if maxDay == 0 {
		return []DayEntry{}, nil
	}

	var start time.Time
	hasDate := startDate != ""
	if hasDate {
		var err error
		start, err = time.Parse(dateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid trip start date %q: %w", startDate, err)
		}
	}

	byDay := make(map[int][]int)
	for i, d := range segmentDays {
		byDay[d] = append(byDay[d], i)
	}

	var entries []DayEntry

	if hasDate {
		for i := bufferDayCount; i > 0; i-- {
			entries = append(entries, DayEntry{
				Label:          "before trip",
				Date:           start.AddDate(0, 0, -i).Format(dateLayout),
				SegmentIndexes: []int{},
			})
		}
	}

	for d := 1; d <= maxDay; d++ {
		segs := byDay[d]
		if segs == nil {
			segs = []int{}
		}
		entry := DayEntry{
			DayNumber:      d,
			SegmentIndexes: segs,
			RestDay:        len(segs) == 0,
			Note:           notes[strconv.Itoa(d)],
		}
		if hasDate {
			entry.Date = start.AddDate(0, 0, d-1).Format(dateLayout)
		}
		entries = append(entries, entry)
	}

	if hasDate {
		for i := 1; i <= bufferDayCount; i++ {
			entries = append(entries, DayEntry{
				Label:          "after trip",
				Date:           start.AddDate(0, 0, maxDay-1+i).Format(dateLayout),
				SegmentIndexes: []int{},
			})
		}
	}

	return entries, nil
}
