// Package vault tracks the unlock state of the gated document view. The
// unlock is scoped to the current viewing context: it lives only in memory
// and is revoked whenever the selected patient changes.
package vault

import (
	"context"

	"github.com/vanguard-health/pulse/pkg/common/logger"
	"github.com/vanguard-health/pulse/pkg/notify"
	"github.com/vanguard-health/pulse/pkg/otp"
)

type State string

const (
	StateLocked           State = "LOCKED"
	StateChallengePending State = "CHALLENGE_PENDING"
	StateUnlocked         State = "UNLOCKED"
)

// Challenge describes an issued verification challenge. ExpiresInMinutes is
// advisory display metadata; verification never enforces it.
type Challenge struct {
	ExpiresInMinutes int `json:"expires_in_minutes"`
}

// Gate is the per-session unlock state machine. It is not safe for
// concurrent use; the coordinator serializes access as the sole caller.
type Gate struct {
	codes         *otp.Service
	channel       notify.Channel
	recipient     string
	expiryMinutes int

	state    State
	expected string
}

func NewGate(codes *otp.Service, channel notify.Channel, recipient string, expiryMinutes int) *Gate {
	return &Gate{
		codes:         codes,
		channel:       channel,
		recipient:     recipient,
		expiryMinutes: expiryMinutes,
		state:         StateLocked,
	}
}

func (g *Gate) State() State {
	return g.state
}

func (g *Gate) Unlocked() bool {
	return g.state == StateUnlocked
}

// Request opens a challenge: a fresh code is generated, handed to the
// delivery channel and held until the challenge resolves. Requesting while a
// challenge is already pending reissues the code; requesting while unlocked
// is a no-op.
func (g *Gate) Request(ctx context.Context) (Challenge, bool) {
	if g.state == StateUnlocked {
		return Challenge{}, false
	}

	g.expected = g.codes.Generate()
	g.state = StateChallengePending

	if err := g.channel.DeliverCode(ctx, g.recipient, g.expected); err != nil {
		// The challenge stands even when delivery fails; the clinician can
		// cancel and retry.
		logger.Log.WithError(err).Warn("code delivery failed")
	}

	return Challenge{ExpiresInMinutes: g.expiryMinutes}, true
}

// Submit resolves a pending challenge. A correct code unlocks the gate and
// clears the held value. A wrong code keeps the challenge pending so the
// clinician can retry without a new code.
func (g *Gate) Submit(code string) bool {
	if g.state != StateChallengePending {
		return false
	}

	if !g.codes.Verify(code, g.expected) {
		return false
	}

	g.state = StateUnlocked
	g.expected = ""
	return true
}

// Cancel abandons a pending challenge and returns to LOCKED.
func (g *Gate) Cancel() {
	if g.state == StateChallengePending {
		g.state = StateLocked
		g.expected = ""
	}
}

// Revoke forces the gate back to LOCKED regardless of state. Called on every
// patient-selection change; the unlock never survives one.
func (g *Gate) Revoke() {
	g.state = StateLocked
	g.expected = ""
}
