package http

import (
	"crypto/subtle"
	"fmt"

	"github.com/GriffinCanCode/AgentOS/push/internal/transport"
)

// Grants decides which schemes interactive callers may register
type Grants struct {
	restricted map[string]bool
	token      string
}

// NewGrants restricts schemes to callers presenting token. With an empty
// token restricted schemes cannot be registered over the API at all.
func NewGrants(restricted []string, token string) *Grants {
	g := &Grants{restricted: make(map[string]bool, len(restricted)), token: token}
	for _, s := range restricted {
		g.restricted[s] = true
	}
	return g
}

// Check returns the permission callback for a caller presenting grant
func (g *Grants) Check(grant string) transport.PermissionFunc {
	return func(scheme, connection string) error {
		if !g.restricted[scheme] {
			return nil
		}
		if g.token != "" && subtle.ConstantTimeCompare([]byte(grant), []byte(g.token)) == 1 {
			return nil
		}
		return fmt.Errorf("%w: scheme %s requires a grant", transport.ErrPermission, scheme)
	}
}
