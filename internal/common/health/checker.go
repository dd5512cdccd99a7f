package health

// Checker is implemented by anything that can report on the health of some part of the application.
// Check returns nil if healthy.
type Checker interface {
	Check() error
}
