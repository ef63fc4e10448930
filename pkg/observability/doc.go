/*
Package observability turns session command events into Prometheus metrics
and log records.

Every command a Session dispatches is reported through augeas.Hooks. Metrics
counts commands by outcome, counts failures by error kind and times each
operation. LogHooks writes the same events to a slog.Logger, and Chain
combines several hook sets into one.
*/
package observability
