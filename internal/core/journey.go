package core

// Stations holds the station lists that drive journey flagging.
type Stations struct {
	// Checkpoints mark a round trip as relevant for the declaration.
	Checkpoints []string
	// TripEndBoundaries stop the backward search for the start of a trip.
	TripEndBoundaries []string
	// TripStartBoundaries stop the forward search for the end of a trip.
	TripStartBoundaries []string
}

type stationSet map[string]struct{}

func newStationSet(names []string) stationSet {
	s := make(stationSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s stationSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// FlagJourneys selects every event that belongs to a round trip touching a
// checkpoint station and returns the number of selected events.
//
// A round trip is the contiguous run of same-day events around a checkpoint.
// Walking backward it ends at a trip-end boundary station (included) or before
// the first event of another day; walking forward it ends at a trip-start
// boundary station (included) or before the first event of another day.
// Trips are assumed not to cross midnight.
//
// Events are mutated in place and never unselected, so flagging the same
// sequence twice selects the same events.
func FlagJourneys(events []Event, st Stations) int {
	checkpoints := newStationSet(st.Checkpoints)
	tripEnds := newStationSet(st.TripEndBoundaries)
	tripStarts := newStationSet(st.TripStartBoundaries)

	i := 0
	for i < len(events) {
		if !checkpoints.has(events[i].Station) {
			i++
			continue
		}
		events[i].Selected = true
		day := events[i].EventDate

		for back := i - 1; back >= 0; back-- {
			prev := &events[back]
			if prev.EventDate != day {
				break
			}
			prev.Selected = true
			if tripEnds.has(prev.Station) {
				break
			}
		}

		// next is where the outer scan resumes: one past the last event
		// selected going forward, which is the first event of the next day
		// when the expansion ran into a date change.
		next := i + 1
		for fwd := i + 1; fwd < len(events); fwd++ {
			ev := &events[fwd]
			if ev.EventDate != day {
				next = fwd
				break
			}
			ev.Selected = true
			next = fwd + 1
			if tripStarts.has(ev.Station) {
				break
			}
		}
		i = next
	}

	return len(Selected(events))
}
