package indexer

import "slices"

type Capability string

const (
	CapabilityQuery      Capability = "query"
	CapabilityUnique     Capability = "unique"
	CapabilityWrite      Capability = "write"
	CapabilityNotify     Capability = "notify"
	CapabilityPersistent Capability = "persistent"
	CapabilityAtomic     Capability = "atomic"
)

// Capabilities describes what a backend supports
type Capabilities struct {
	Capabilities []Capability `json:"capabilities"`
}

func NewCapabilities(caps ...Capability) *Capabilities {
	return &Capabilities{Capabilities: caps}
}

// Contains checks if a capability is supported
func (c *Capabilities) Contains(cap Capability) bool {
	return c != nil && slices.Contains(c.Capabilities, cap)
}
