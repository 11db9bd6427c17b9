/*
Package resilience guards launch targets with circuit breakers.

A target whose launches keep failing is short-circuited for a cool-down
period instead of being spawned on every incoming signal. Breakers are kept
per target in a Group and created on first use.

# Usage

	group := resilience.NewGroup(resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	err := group.Do("com.example.mail", func() error {
		return spawner.Spawn(ctx, req)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// target is cooling down
	}

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                         Open
*/
package resilience
