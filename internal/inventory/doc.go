// Package inventory stores the configured iNELS device definitions in SQLite
// and builds the runtime fleet from them.
//
// Each record holds a device's name, node id, device id and type. The YAML
// config is authoritative; Registry.Sync reconciles the stored table with
// it at startup so other tools can read the inventory from the database.
// Device status is never persisted.
package inventory
