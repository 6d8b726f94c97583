package common

// Key codes delivered by the window key callbacks.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeySpace      = 32  // pause/resume the wall clock source
	KeyMinus      = 45  // shrink the smoke grid
	KeyEqual      = 61  // grow the smoke grid ('+' without shift)
	KeyR          = 82  // log the CPU reference field statistics
	KeyEsc        = 256 // quit
	KeyKPSubtract = 333 // keypad '-'
	KeyKPAdd      = 334 // keypad '+'
)
