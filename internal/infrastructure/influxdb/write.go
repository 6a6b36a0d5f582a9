package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/inels-core/internal/inels"
)

// measurementFleet holds periodic snapshots of the fleet protocol counters.
const measurementFleet = "inels_fleet"

// WritePoint writes a point stamped now. Dropped silently when closed.
//
// Devices use it to record protocol events:
//
//	client.WritePoint("inels_protocol",
//	    map[string]string{"key": "AA:BB:CC:DD:EE:FF/05/001122", "event": "link_up"},
//	    map[string]interface{}{"count": 1})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// WriteFleetStats records a snapshot of the summed device counters along
// with how many devices are online.
func (c *Client) WriteFleetStats(stats inels.Stats, devices, online int) {
	c.WritePoint(measurementFleet, nil, fleetFields(stats, devices, online))
}

func fleetFields(stats inels.Stats, devices, online int) map[string]interface{} {
	return map[string]interface{}{
		"devices":            devices,
		"online":             online,
		"status_updates":     stats.StatusUpdates,
		"decode_errors":      stats.DecodeErrors,
		"connection_changes": stats.ConnectionChanges,
		"commands_published": stats.CommandsPublished,
		"commands_rejected":  stats.CommandsRejected,
	}
}
