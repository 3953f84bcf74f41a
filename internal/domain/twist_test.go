package domain

import (
	"testing"
	"time"
)

func TestConvertMatrix(t *testing.T) {
	tw := Twist{LinearX: 0.4, AngularZ: -0.2}
	stamped := StampedTwist{
		Header: Header{Stamp: time.Unix(100, 0), FrameID: "base_link"},
		Twist:  tw,
	}

	cases := []struct {
		name      string
		in        Message
		out       Shape
		wantShape Shape
	}{
		{"plain to plain", NewPlain(tw), ShapePlain, ShapePlain},
		{"plain to stamped", NewPlain(tw), ShapeStamped, ShapeStamped},
		{"stamped to plain", NewStamped(stamped), ShapePlain, ShapePlain},
		{"stamped to stamped", NewStamped(stamped), ShapeStamped, ShapeStamped},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Convert(tc.out)
			if got.Shape() != tc.wantShape {
				t.Fatalf("expected shape %s, got %s", tc.wantShape, got.Shape())
			}
			if got.Twist() != tw {
				t.Fatalf("velocity components changed during conversion: %+v", got.Twist())
			}
		})
	}
}

func TestConvertWrapUsesZeroHeader(t *testing.T) {
	got := NewPlain(Twist{LinearX: 1}).Convert(ShapeStamped).Stamped()
	if !got.Header.Stamp.IsZero() || got.Header.FrameID != "" {
		t.Fatalf("expected zero header after wrapping, got %+v", got.Header)
	}
}

func TestConvertStampedForwardKeepsHeader(t *testing.T) {
	stamped := StampedTwist{
		Header: Header{Stamp: time.Unix(42, 0), FrameID: "odom"},
		Twist:  Twist{AngularZ: 0.7},
	}
	got := NewStamped(stamped).Convert(ShapeStamped).Stamped()
	if got.Header != stamped.Header {
		t.Fatalf("expected header preserved, got %+v", got.Header)
	}
}

func TestShapeRoundTrip(t *testing.T) {
	stamped := StampedTwist{
		Header: Header{Stamp: time.Unix(7, 0), FrameID: "base_link"},
		Twist:  Twist{LinearX: 0.5, AngularZ: 0.1},
	}

	// Stamped input through a plain output, then back to stamped: velocity
	// components survive, the header does not.
	back := NewStamped(stamped).Convert(ShapePlain).Convert(ShapeStamped)
	if back.Twist() != stamped.Twist {
		t.Fatalf("expected twist %+v, got %+v", stamped.Twist, back.Twist())
	}
	if !back.Stamped().Header.Stamp.IsZero() {
		t.Fatalf("expected header dropped by plain hop")
	}
}

func TestHasIncreasedAbsVelocity(t *testing.T) {
	cases := []struct {
		name string
		prev Twist
		next Twist
		want bool
	}{
		{"slower linear", Twist{LinearX: 0.5}, Twist{LinearX: 0.3}, false},
		{"equal", Twist{LinearX: 0.5}, Twist{LinearX: 0.5}, false},
		{"faster linear", Twist{LinearX: 0.5}, Twist{LinearX: 0.7}, true},
		{"faster reverse", Twist{LinearX: 0.5}, Twist{LinearX: -0.7}, true},
		{"reversing slower", Twist{LinearX: 0.5}, Twist{LinearX: -0.3}, false},
		{"faster angular only", Twist{LinearX: 0.5, AngularZ: 0.1}, Twist{LinearX: 0.2, AngularZ: 0.4}, true},
		{"both slower", Twist{LinearX: 0.5, AngularZ: 0.4}, Twist{LinearX: 0.1, AngularZ: 0.2}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasIncreasedAbsVelocity(tc.prev, tc.next); got != tc.want {
				t.Fatalf("HasIncreasedAbsVelocity(%+v, %+v) = %t, want %t", tc.prev, tc.next, got, tc.want)
			}
		})
	}
}
