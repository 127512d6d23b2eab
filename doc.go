// Package emotionsbridge drives the motors of a robot face from emotion
// changes.
//
// The face is a microcontroller on a serial link that accepts JSON frames.
// The bridge first sends the pin of every motor, then for each emotion the
// value of every motor, and waits for {"response":"success"} after each
// frame, resending it a bounded number of times.
//
// # Installation
//
//	go install github.com/fbot/emotions-bridge/cmd/emotions-bridge@latest
//
// # Usage
//
// Pick the serial port and parameter file:
//
//	emotions-bridge setup
//
// Then run the bridge, reading emotion names from stdin, redis, a websocket
// or the demo cycle:
//
//	emotions-bridge run --source redis --listen :9100
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/emotions-bridge: CLI with run, send, emotions, ports, setup and publish commands
//   - pkg/head: motor registry, parameter file and configuration
//   - pkg/protocol: frame encoding and acknowledgement decoding
//   - pkg/handshake: write-then-acknowledge exchanges with retries
//   - pkg/bridge: startup sequence and coalescing emotion dispatcher
//   - pkg/events: emotion notification sources
//   - pkg/serialport: serial port drivers
//   - pkg/sim: simulated face board
//   - pkg/metrics: Prometheus metrics
package emotionsbridge
