// Package bus provides the in-process message broker that connects the
// research agents.
//
// The bus is an explicit owned object: the session constructs one and hands
// it to every agent, which registers callbacks against it. Delivery is
// synchronous and inline on the publisher's call path. A panicking
// subscriber is an isolation boundary, not a delivery failure: the panic is
// recovered and logged, and dispatch continues with the remaining
// subscribers. Delivery is at-most-once per subscriber per message and is
// never retried.
package bus
