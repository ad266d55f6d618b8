package ports

// EventPublisher pushes UI events (the desktop shell's window messages).
//
// NOTE: defined here rather than in notify to avoid an import cycle between
// services and the control plane.
type EventPublisher interface {
	Publish(kind string, payload any)
}

// Waker wakes a sleeping loop early.
type Waker interface {
	Wake()
}
