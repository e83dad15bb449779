package mathutil

// Epsilon is the length below which vectors are treated as degenerate.
const Epsilon = 1e-12

// Preview camera orientations.
var (
	// DefaultView looks slightly down onto the model from the front-right: Rx(25°) @ Ry(-35°)
	DefaultView = Mat3Mul(RotX(Deg2Rad(25)), RotY(Deg2Rad(-35)))

	// TopView looks straight down the -Y axis; +Y faces the camera.
	TopView = RotX(Deg2Rad(90))

	// FrontView is the identity camera (looking down -Z).
	FrontView = Mat3Identity()
)

// ViewByName returns a named preview orientation; unknown names yield DefaultView.
func ViewByName(name string) Mat3 {
	switch name {
	case "top":
		return TopView
	case "front":
		return FrontView
	}
	return DefaultView
}
