package chat

import (
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono/pkg/types"
)

// Dispatcher fans an outbound event out to every live connection of a user
// on a listing. Connections that fail a write are pruned after the fan-out.
type Dispatcher struct {
	registry *Registry
	logger   types.Logger
}

// NewDispatcher creates a Dispatcher over registry.
func NewDispatcher(registry *Registry, logger types.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// SendTo delivers event to every connection of (listingID, userID) and
// returns how many writes succeeded. No connections is not an error.
func (d *Dispatcher) SendTo(listingID, userID int64, event any) (int, error) {
	return d.SendToUsers(listingID, event, userID)
}

// SendToUsers serializes event once and delivers it to each distinct user.
func (d *Dispatcher) SendToUsers(listingID int64, event any, userIDs ...int64) (int, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to encode event: %w", err)
	}

	delivered := 0
	seen := make(map[int64]bool, len(userIDs))
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		delivered += d.deliver(listingID, userID, payload)
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(listingID, userID int64, payload []byte) int {
	conns := d.registry.ConnectionsFor(listingID, userID)
	if len(conns) == 0 {
		return 0
	}

	var dead []*Connection
	delivered := 0
	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			d.logger.Debug("Delivery failed, pruning connection",
				"listingID", listingID, "userID", userID, "connID", c.ID, "error", err)
			dead = append(dead, c)
			continue
		}
		delivered++
	}

	for _, c := range dead {
		d.registry.Remove(listingID, userID, c)
		c.Close()
	}
	return delivered
}
