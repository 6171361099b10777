package availability

import (
	"slices"
	"sort"
)

// Compute merges exceptions, templates and booked counts into open slots.
// All inputs must already be narrowed to one date and to the branch and
// service being queried; booked maps a time label to the number of
// non-cancelled reservations starting at it.
//
// A closing exception yields no slots. Otherwise a replacement exception
// yields its labels with capacity 1 each and templates are ignored.
// Otherwise each template is walked from start in steps of its slot
// duration, never emitting a slot that would run past the end; capacities of
// templates landing on the same label add up, booked counts are subtracted
// and labels left with no capacity are dropped.
func Compute(exceptions []Exception, templates []Template, booked map[string]int) []Slot {
	var replacement []string
	for _, e := range exceptions {
		if e.Closed {
			return []Slot{}
		}
		replacement = append(replacement, e.Slots...)
	}
	if len(replacement) > 0 {
		return replacementSlots(replacement)
	}

	capacity := make(map[string]int)
	for i := range templates {
		walkTemplate(&templates[i], func(label string) {
			capacity[label] += templates[i].Capacity
		})
	}

	slots := make([]Slot, 0, len(capacity))
	for label, c := range capacity {
		remaining := c - booked[label]
		if remaining <= 0 {
			continue
		}
		slots = append(slots, Slot{Time: label, RemainingCapacity: remaining})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })
	return slots
}

func replacementSlots(labels []string) []Slot {
	labels = slices.Clone(labels)
	slices.Sort(labels)
	labels = slices.Compact(labels)
	slots := make([]Slot, 0, len(labels))
	for _, l := range labels {
		slots = append(slots, Slot{Time: l, RemainingCapacity: 1})
	}
	return slots
}

// walkTemplate calls fn for every whole slot in the template window.
// Malformed templates produce nothing.
func walkTemplate(t *Template, fn func(label string)) {
	start, err := ParseClock(t.StartTime)
	if err != nil {
		return
	}
	end, err := ParseClock(t.EndTime)
	if err != nil || t.SlotMinutes <= 0 {
		return
	}
	for at := start; at+t.SlotMinutes <= end; at += t.SlotMinutes {
		fn(FormatClock(at))
	}
}

// Labels returns the slot labels a single template produces.
func (t *Template) Labels() []string {
	var out []string
	walkTemplate(t, func(label string) { out = append(out, label) })
	return out
}
