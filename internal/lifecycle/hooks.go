package lifecycle

import "context"

// Phase orders shutdown hooks. Lower phases finish before higher ones start.
type Phase int

const (
	// PhaseIntake stops accepting updates and marks the process not ready.
	PhaseIntake Phase = iota
	// PhaseWorkers drains background loops and the delivery queue.
	PhaseWorkers
	// PhaseStorage closes connections that earlier phases still used.
	PhaseStorage
)

func (p Phase) String() string {
	switch p {
	case PhaseIntake:
		return "intake"
	case PhaseWorkers:
		return "workers"
	case PhaseStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
