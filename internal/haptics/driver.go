package haptics

// gpioDriver is the minimal interface haptics needs from a GPIO backend.
//
// A backend may leave either line unwired, in which case the setter is a
// no-op. Close must leave every requested line low.
type gpioDriver interface {
	SetMotor(on bool) error
	SetLED(on bool) error
	Close() error
}
