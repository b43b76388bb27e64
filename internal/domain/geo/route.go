package geo

import "sort"

// Route is the ordered sequence of Samples recorded for one trip.
// Insertion order is temporal order; the accumulator enforces a
// non-decreasing CapturedAtMillis across appends.
type Route []Sample

// Tail returns the last sample of the route, if any.
func (route Route) Tail() (Sample, bool) {
	if len(route) == 0 {
		return Sample{}, false
	}
	return route[len(route)-1], true
}

// Ordered reports whether the route timestamps are non-decreasing.
func (route Route) Ordered() bool {
	for i := 1; i < len(route); i++ {
		if route[i].CapturedAtMillis < route[i-1].CapturedAtMillis {
			return false
		}
	}
	return true
}

// SortByCapture re-sorts the route in place by capture time.
// Used by the RESORT ingestion policy; the REJECT policy never needs it.
func (route Route) SortByCapture() {
	sort.SliceStable(route, func(i, j int) bool {
		return route[i].CapturedAtMillis < route[j].CapturedAtMillis
	})
}

// DistanceKm returns the cumulative great-circle length of the route.
func (route Route) DistanceKm() float64 {
	return RouteDistanceKm(route)
}
