// Package televoodoo streams 6-DoF pose samples from a mobile controller
// to a host process over BLE, gates the link behind a one-time session
// code, and re-expresses every pose in a configurable output coordinate
// frame before publishing it as a structured event stream.
//
// # Architecture
//
// The pipeline is fixed and short:
//
//	transport (peripheral) -> dispatch -> transform -> event sinks
//
// A peripheral backend (BLE GATT server, or a simulator) delivers raw
// byte buffers tagged by characteristic identity. The dispatcher
// classifies each buffer as Auth, Control, Pose or Heartbeat traffic,
// decodes it, and converts pose samples through the transform engine
// into output events. Events fan out to whatever sinks the host process
// composed at construction: console JSON lines, NATS subjects, WebSocket
// viewer clients, or an MQTT topic.
//
// # Packages
//
//   - session: one-time session identity and auth code checking
//   - dispatch: characteristic demux, decode, latest-output slot
//   - pose, transform: pose model and the frame transform engine
//   - heartbeat: 1 Hz wrapping liveness counter
//   - peripheral: backend contract, BLE and simulation backends
//   - event: event model and sinks
//   - output/natspub, output/wsviewer, output/mqttpub: network sinks
//   - output/filelog: JSONL event log for offline replay
//   - component, errors, metric, config, pkg/retry: runtime plumbing
//
// The core holds almost no state: a one-shot origin latch inside the
// transformer and a latest-output slot for polling consumers. Everything
// else is pure, synchronous and bounded-time, so every dispatcher entry
// point is safe to call from transport callback threads concurrently
// with the heartbeat ticker.
package televoodoo
