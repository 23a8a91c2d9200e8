// Package relay implements the sync-session message hub for BlueMe.
//
// Participants join named sync rooms and the hub relays playback control
// events (play, pause, seek, volume) to the other members of the room,
// excluding the sender. Device-facing events (discover, connect,
// disconnect, play sync) additionally drive the shared device registry,
// and device status updates fan out to every participant because device
// state is global to the process, not per room.
//
// The hub is transport-agnostic: connections implement the Conn interface,
// so the WebSocket layer and the test suite plug in the same way. Failures
// are always reported to the initiating caller only.
package relay
