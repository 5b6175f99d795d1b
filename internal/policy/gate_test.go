package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateDisabledAllowsEverything(t *testing.T) {
	g := NewGate("")
	assert.False(t, g.Enabled())
	for _, provided := range []string{"", "S", "anything"} {
		assert.Equal(t, Allow, g.Authorize(provided), "provided=%q", provided)
	}
}

func TestGateEnabled(t *testing.T) {
	g := NewGate("S")
	assert.True(t, g.Enabled())
	assert.Equal(t, Allow, g.Authorize("S"))
	assert.Equal(t, Deny, g.Authorize(""))
	assert.Equal(t, Deny, g.Authorize("s"))
	assert.Equal(t, Deny, g.Authorize("S "))
	assert.Equal(t, Deny, g.Authorize("SS"))
}

func TestAuthorize(t *testing.T) {
	assert.Equal(t, Allow, Authorize("", "x"))
	assert.Equal(t, Deny, Authorize("secret", "x"))
	assert.Equal(t, "deny", Deny.String())
	assert.Equal(t, "allow", Allow.String())
}
