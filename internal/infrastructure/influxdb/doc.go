// Package influxdb records iNELS protocol telemetry in InfluxDB v2.
//
// Two measurements are written:
//   - inels_protocol: one point per protocol event (command published or
//     rejected, status decode failure, link up/down), tagged by device
//   - inels_fleet: periodic snapshots of the summed device counters
//
// Decoded status values are deliberately absent; this is an operational
// view of the RF link, not a status history.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	dimmer, _ := inels.NewDimmer(bus, node, dev, inels.Options{Telemetry: client})
package influxdb
