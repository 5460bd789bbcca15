// Package relay mirrors resilience log entries to a NATS subject so other
// processes can follow recoveries as they happen.
//
// Each recorded event becomes one message encoded as CBOR (deterministic
// core encoding) or JSON. Relaying is best effort: publish failures are
// logged and counted, never returned to the code that recorded the event.
package relay
