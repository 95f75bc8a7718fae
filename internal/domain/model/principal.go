package model

// Capability is what an authenticated caller is allowed to do.
type Capability string

const (
	CapabilitySubscriber Capability = "subscriber"
	CapabilityReviewer   Capability = "reviewer"
	CapabilitySystem     Capability = "system"
)

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	switch c {
	case CapabilitySubscriber, CapabilityReviewer, CapabilitySystem:
		return true
	}
	return false
}

// Principal is the authenticated caller of an engine operation.
type Principal struct {
	ID         string
	Capability Capability
}

// Has reports whether p holds any of caps.
func (p Principal) Has(caps ...Capability) bool {
	for _, c := range caps {
		if p.Capability == c {
			return true
		}
	}
	return false
}
