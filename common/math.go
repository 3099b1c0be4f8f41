package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis. The ground plane is XZ.
var Up = mgl64.Vec3{0, 1, 0}

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func Clamp01(v float64) float64 {
	return mgl64.Clamp(v, 0, 1)
}

// Flatten projects v onto the ground plane.
func Flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// Forward returns the unit ground-plane direction for a yaw in radians.
// Yaw 0 faces +Z.
func Forward(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(yaw), 0, math.Cos(yaw)}
}

// YawOf returns the yaw that faces dir on the ground plane.
func YawOf(dir mgl64.Vec3) float64 {
	return math.Atan2(dir.X(), dir.Z())
}

// NormalizeAngle wraps a radians value into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// AngleBetween returns the unsigned angle in degrees between two vectors.
func AngleBetween(a, b mgl64.Vec3) float64 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	cos := mgl64.Clamp(a.Dot(b)/(la*lb), -1, 1)
	return mgl64.RadToDeg(math.Acos(cos))
}

// RotateTowards turns yaw toward target by at most maxStep radians.
func RotateTowards(yaw, target, maxStep float64) float64 {
	diff := NormalizeAngle(target - yaw)
	if math.Abs(diff) <= maxStep {
		return NormalizeAngle(target)
	}
	if diff < 0 {
		return NormalizeAngle(yaw - maxStep)
	}
	return NormalizeAngle(yaw + maxStep)
}

// SafeNormalize returns v normalized, or fallback when v is (near) zero.
func SafeNormalize(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if v.Len() < 1e-9 {
		return fallback
	}
	return v.Normalize()
}
