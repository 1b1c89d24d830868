// Package collision implements the continuous gathering-event resolver: for
// every gatherer's last->current segment, find every item it sweeps close
// enough to collect, ordered by time of closest approach.
package collision

import (
	"sort"

	"github.com/wricardo/scavenger-game-server/internal/geom"
)

// Gatherer is a moving actor (a dog) whose last->current segment is tested
// against every item.
type Gatherer struct {
	Last, Current geom.Point
	Radius        float64
}

// Item is a stationary pickup target (loot or an office).
type Item struct {
	Position geom.Point
	Radius   float64
}

// Event records one gatherer coming within collection range of one item.
type Event struct {
	GathererIdx int
	ItemIdx     int
	SqDistance  float64
	Time        float64 // fractional position along the gatherer's segment, in [0,1]
}

// FindGatherEvents examines every (gatherer, item) pair and returns those
// whose closest approach falls within the sum of their radii, in ascending
// Time order, ties broken by (GathererIdx, ItemIdx).
func FindGatherEvents(gatherers []Gatherer, items []Item) []Event {
	var events []Event
	for gi, g := range gatherers {
		for ii, it := range items {
			t, sq := geom.ClosestApproach(g.Last, g.Current, it.Position)
			radiusSum := g.Radius + it.Radius
			if sq <= radiusSum*radiusSum {
				events = append(events, Event{
					GathererIdx: gi,
					ItemIdx:     ii,
					SqDistance:  sq,
					Time:        t,
				})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		if events[i].GathererIdx != events[j].GathererIdx {
			return events[i].GathererIdx < events[j].GathererIdx
		}
		return events[i].ItemIdx < events[j].ItemIdx
	})
	return events
}
