// Package bridge exposes the device fleet as JSON over MQTT.
//
// Commands arrive on {prefix}/command/inels/{device-key}:
//
//	{"id": "c-42", "command": "set_brightness", "parameters": {"brightness": 40}}
//
// Every command naming a device is acknowledged on
// {prefix}/ack/inels/{device-key} with status accepted, failed or timeout.
// Commands without an id get a generated UUID so acks can still be
// correlated from logs.
//
// Devices that report status have their decoded status republished, retained,
// on {prefix}/state/inels/{device-key} each time it changes.
package bridge
