/*
Package observability provides tools for monitoring the Arbor engine.

It subscribes to the event bus: Metrics exports Prometheus counters and gauges for
every published event, and Audit writes a structured log line per event.
*/
package observability
