// Package progress derives completion percentage and health buckets for a
// key result from its current and target values. All functions are pure.
package progress

type Health string

const (
	HealthNoTarget   Health = "no_target"
	HealthNoCheckins Health = "no_checkins"
	HealthOffTrack   Health = "off_track"
	HealthAtRisk     Health = "at_risk"
	HealthOnTrack    Health = "on_track"
)

// Pct returns the completion percentage clamped to [0,100], or nil when no
// positive target exists. A missing current value counts as 0.
func Pct(current, target *float64) *float64 {
	if target == nil || *target <= 0 {
		return nil
	}
	if current == nil {
		zero := 0.0
		return &zero
	}
	pct := (*current / *target) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return &pct
}

// Bands: [0,40) off_track, [40,70) at_risk, [70,100] on_track.
func Classify(current, target *float64) Health {
	if target == nil || *target <= 0 {
		return HealthNoTarget
	}
	if current == nil {
		return HealthNoCheckins
	}
	pct := 0.0
	if p := Pct(current, target); p != nil {
		pct = *p
	}
	if pct < 40 {
		return HealthOffTrack
	}
	if pct < 70 {
		return HealthAtRisk
	}
	return HealthOnTrack
}
