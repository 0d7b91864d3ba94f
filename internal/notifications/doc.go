// Package notifications carries clip lifecycle envelopes from the auto-clip
// manager and queue processor to subscribers.
//
// Producers depend only on the Sink interface. Hub fans envelopes out to
// in-process subscribers such as the SSE endpoint, Webhook POSTs them to an
// external push transport, and Multi combines several sinks. Nop discards
// everything and is the default when nothing is wired.
package notifications
