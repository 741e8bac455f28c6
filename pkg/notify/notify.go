// Package notify carries issued access codes to the clinician out of band,
// standing in for an SMS or pager gateway.
package notify

import (
	"context"

	"github.com/vanguard-health/pulse/pkg/common/logger"
)

// Channel delivers a freshly generated access code. Delivery is
// fire-and-forget from the vault's perspective; a failed delivery never
// blocks the challenge.
type Channel interface {
	DeliverCode(ctx context.Context, recipient, code string) error
}

// LogChannel writes the code to the structured log. It is the default
// channel for local development, where no SMS gateway is reachable.
type LogChannel struct{}

func NewLogChannel() *LogChannel {
	return &LogChannel{}
}

func (c *LogChannel) DeliverCode(_ context.Context, recipient, code string) error {
	logger.Log.WithFields(map[string]interface{}{
		"recipient": recipient,
		"code":      code,
	}).Info("Access code issued")
	return nil
}
