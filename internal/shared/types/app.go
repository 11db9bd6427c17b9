package types

import "time"

// State represents app lifecycle states
type State string

const (
	StateSpawning   State = "spawning"
	StateActive     State = "active"
	StateBackground State = "background"
	StateSuspended  State = "suspended"
	StateDestroyed  State = "destroyed"
)

// App represents an application instance started on behalf of an owner
type App struct {
	ID        string    `json:"id"`
	Owner     OwnerID   `json:"owner"`
	Target    string    `json:"target"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ResumedAt time.Time `json:"resumed_at,omitempty"`
	Launches  int       `json:"launches"`
	OSPID     *int      `json:"os_pid,omitempty"` // Actual OS process ID if spawned
}

// Stats contains app manager statistics
type Stats struct {
	TotalApps      int `json:"total_apps"`
	ActiveApps     int `json:"active_apps"`
	BackgroundApps int `json:"background_apps"`
}
