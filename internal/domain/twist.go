package domain

import (
	"math"
	"time"
)

// Priority orders command sources. Higher values win; zero means no authority.
type Priority int

const (
	PriorityMin Priority = 0
	PriorityMax Priority = 255
)

// Twist is an instantaneous velocity command for a mobile base.
type Twist struct {
	LinearX  float64 `json:"linear_x"`
	LinearY  float64 `json:"linear_y"`
	LinearZ  float64 `json:"linear_z"`
	AngularX float64 `json:"angular_x"`
	AngularY float64 `json:"angular_y"`
	AngularZ float64 `json:"angular_z"`
}

// Header carries the timestamp and frame of a stamped message. The arbiter
// never reads it; freshness is judged by arrival instant.
type Header struct {
	Stamp   time.Time `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// StampedTwist bundles a Twist with a header.
type StampedTwist struct {
	Header Header `json:"header"`
	Twist  Twist  `json:"twist"`
}

// HasIncreasedAbsVelocity reports whether next commands a larger absolute
// linear.x or angular.z than prev. Used to veto speed-ups on authority
// handover; slowing or reversing always passes.
func HasIncreasedAbsVelocity(prev, next Twist) bool {
	return math.Abs(prev.LinearX) < math.Abs(next.LinearX) ||
		math.Abs(prev.AngularZ) < math.Abs(next.AngularZ)
}
