// Package proxy relays camera endpoints of registered devices to clients.
//
// A relay request moves through Resolving, Connecting and Relaying before it
// ends Closed, or Failed from any of those states:
//
//   - Resolving looks the device up and refuses offline devices without
//     dialing them.
//   - Connecting opens the upstream request under a bounded timeout.
//   - Relaying copies upstream bytes to the client unmodified, flushing
//     after every chunk.
//
// The upstream request is bound to the client's request context, so a
// client disconnect tears the upstream connection down immediately.
// Every exit path closes the upstream body and records a relay session.
package proxy
