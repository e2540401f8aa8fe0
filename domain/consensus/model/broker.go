package model

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BrokerConfig declares how many of the G*G chains the local broker owns:
// brokerNum brokers collectively cover every chain, and this broker owns the
// contiguous group slice [BrokerID*groups/BrokerNum, (BrokerID+1)*groups/BrokerNum).
type BrokerConfig struct {
	Groups    int
	BrokerNum int
	BrokerID  int
}

// Validate checks that this BrokerConfig tiles the group space exactly:
// BrokerNum must divide Groups, and BrokerID must be in range.
func (c BrokerConfig) Validate() error {
	if err := ValidateGroupCount(c.Groups); err != nil {
		return err
	}
	if c.BrokerNum <= 0 {
		return errors.Errorf("brokerNum must be positive, got %d", c.BrokerNum)
	}
	if c.Groups%c.BrokerNum != 0 {
		return errors.Errorf("brokerNum %d does not evenly divide groups %d", c.BrokerNum, c.Groups)
	}
	if c.BrokerID < 0 || c.BrokerID >= c.BrokerNum {
		return errors.Errorf("brokerID %d out of range [0,%d)", c.BrokerID, c.BrokerNum)
	}
	return nil
}

// GroupsPerBroker returns how many groups this broker owns.
func (c BrokerConfig) GroupsPerBroker() int {
	return c.Groups / c.BrokerNum
}

// OwnsGroup reports whether this broker owns group g, i.e. mines and stores
// every chain (g, *).
func (c BrokerConfig) OwnsGroup(g GroupIndex) bool {
	perBroker := c.GroupsPerBroker()
	lo := c.BrokerID * perBroker
	hi := lo + perBroker
	return int(g) >= lo && int(g) < hi
}

// OwnedGroups returns the contiguous slice of groups this broker owns.
func (c BrokerConfig) OwnedGroups() []GroupIndex {
	perBroker := c.GroupsPerBroker()
	lo := c.BrokerID * perBroker
	groups := make([]GroupIndex, perBroker)
	for i := range groups {
		groups[i] = GroupIndex(lo + i)
	}
	return groups
}

// OwnsChain reports whether this broker stores chain c, i.e. owns c.From.
// A broker stores every chain originating from one of its owned groups,
// regardless of the destination group, since it must mine on that chain.
func (c BrokerConfig) OwnsChain(chain ChainIndex) bool {
	return c.OwnsGroup(chain.From)
}

// CliqueID identifies a clique, the set of brokers collectively covering all
// G*G chains.
type CliqueID uuid.UUID

// String renders the clique ID in canonical UUID form.
func (id CliqueID) String() string {
	return uuid.UUID(id).String()
}

// NewCliqueID generates a fresh, random clique identifier.
func NewCliqueID() CliqueID {
	return CliqueID(uuid.New())
}

// BrokerInfo is the address+ownership tuple a broker advertises to peers in
// its Hello handshake payload.
type BrokerInfo struct {
	CliqueID CliqueID
	Config   BrokerConfig
	Address  string
}
