// Package policy holds the request gate and the reply filters applied around
// the LLM provider.
package policy

import (
	"crypto/subtle"
	"strings"
)

// SecretHeader carries the shared proxy secret.
const SecretHeader = "X-Proxy-Secret"

// Decision is the outcome of a gate check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Gate compares a provided secret with the configured one. An empty
// configured secret disables the gate.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(strings.TrimSpace(secret))}
}

// Enabled reports whether a secret is configured.
func (g *Gate) Enabled() bool {
	return g != nil && len(g.secret) > 0
}

// Authorize allows the request when the gate is disabled or the provided
// secret matches exactly.
func (g *Gate) Authorize(provided string) Decision {
	if !g.Enabled() {
		return Allow
	}
	if subtle.ConstantTimeCompare([]byte(provided), g.secret) == 1 {
		return Allow
	}
	return Deny
}

// Authorize is the stateless form of Gate.Authorize.
func Authorize(configured, provided string) Decision {
	return NewGate(configured).Authorize(provided)
}
