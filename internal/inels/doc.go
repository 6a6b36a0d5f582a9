// Package inels implements the iNELS RF device protocol over MQTT.
//
// Every device is addressed by a node identifier (six colon-separated hex
// octets), a six-hex-digit device identifier and a two-digit type tag. Three
// topics derive from that address:
//
//	inels/status/<node>/<type>/<device>     device -> core, binary status
//	inels/set/<node>/<type>/<device>        core -> device, opcode + params
//	inels/connected/<node>/<type>/<device>  device -> core, liveness
//
// A Device subscribes its connected and status topics on Start. Listener
// goroutines apply messages in arrival order: the connected flag gates every
// publish, and status payloads are decoded by the type's Codec. Readers wait
// for new status with AwaitStatusVersion, which any number of goroutines may
// call at once.
//
// Supported types:
//
//	02  switching actuator  status + set
//	03  shutter actuator    set
//	05  dimmer              status + set
//	09, 10, 12, 19          addressable, no payload support yet
//
// Types 03, 10 and 12 do report status on the wire, but their byte layouts
// are not known. Their status topics are left unsubscribed rather than
// decoded by guesswork.
//
// A status payload that cannot be decoded is logged, counted and skipped;
// the previous status stays in place.
package inels
