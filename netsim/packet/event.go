// SPDX-License-Identifier: GPL-3.0-or-later

package packet

// Well-known [Event] locations. Events emitted at a router
// use the router name as their location.
const (
	LocationClient      = "Client"
	LocationDNSResolver = "DNS Resolver"
	LocationNetwork     = "Network"
	LocationSimulation  = "Simulation"
	LocationDestination = "Destination"
	LocationGateway     = "Gateway"
)

// Event is a single step of a packet trace.
type Event struct {
	// Location is where the event happened.
	Location string `json:"location"`

	// Action describes what happened.
	Action string `json:"action"`
}

// NewEvent creates a new [Event].
func NewEvent(location, action string) Event {
	return Event{Location: location, Action: action}
}
