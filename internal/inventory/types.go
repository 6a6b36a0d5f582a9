package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/inels-core/internal/inels"
)

// Record is one configured device definition.
type Record struct {
	// Key is the stable address key, see inels.Address.Key.
	Key string

	Name     string
	NodeID   string
	DeviceID string
	Type     inels.DeviceType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord validates and normalises a device definition.
func NewRecord(name, nodeID, deviceID, typ string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	t, err := inels.ParseDeviceType(typ)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	addr, err := inels.ParseAddress(nodeID, deviceID, t)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return Record{
		Key:      addr.Key(),
		Name:     name,
		NodeID:   addr.NodeID,
		DeviceID: addr.DeviceID,
		Type:     t,
	}, nil
}

// Address returns the parsed device address.
func (r Record) Address() (inels.Address, error) {
	return inels.ParseAddress(r.NodeID, r.DeviceID, r.Type)
}

// sameDefinition reports whether two records describe the same device.
func (r Record) sameDefinition(o Record) bool {
	return r.Key == o.Key && r.Name == o.Name
}

// SyncResult summarises a Registry.Sync.
type SyncResult struct {
	Added     int
	Updated   int
	Removed   int
	Unchanged int
}
