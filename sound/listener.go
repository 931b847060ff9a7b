// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"math"

	"github.com/ik5/soundsys/backend"
)

type Vector3 struct {
	X, Y, Z float32
}

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Dot(o Vector3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Normalize returns the unit vector, or the zero vector unchanged.
func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return Vector3{v.X / l, v.Y / l, v.Z / l}
}

// ListenerData is the virtual observer. Angle is the yaw in radians last
// set through SetAngle.
type ListenerData struct {
	Position Vector3
	LookAt   Vector3
	Up       Vector3
	Velocity Vector3
	Angle    float32
}

// NewListenerData returns a listener at the origin looking down -Z.
func NewListenerData() ListenerData {
	return ListenerData{
		LookAt: Vector3{0, 0, -1},
		Up:     Vector3{0, 1, 0},
	}
}

// SetAngle turns the listener around the vertical axis. Only the X and Z
// components of LookAt change.
func (l *ListenerData) SetAngle(angle float32) {
	l.Angle = angle
	l.LookAt.X = -float32(math.Sin(float64(angle)))
	l.LookAt.Z = -float32(math.Cos(float64(angle)))
}

// mirror writes l into st field by field.
func (l *ListenerData) mirror(st *backend.ListenerState) {
	st.Position = [3]float32{l.Position.X, l.Position.Y, l.Position.Z}
	st.Orientation = [6]float32{l.LookAt.X, l.LookAt.Y, l.LookAt.Z, l.Up.X, l.Up.Y, l.Up.Z}
	st.Velocity = [3]float32{l.Velocity.X, l.Velocity.Y, l.Velocity.Z}
}
