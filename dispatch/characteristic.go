// Package dispatch demultiplexes inbound characteristic traffic by
// logical channel and routes each buffer to the correct decoder,
// independent of the transport that delivered it.
package dispatch

import "strings"

// GATT identities of the peripheral service. Shared across every
// transport backend; the core is agnostic to which advertising
// technology carries them.
const (
	ServiceUUID       = "1C8FD138-FC18-4846-954D-E509366AEF61"
	ControlCharUUID   = "1C8FD138-FC18-4846-954D-E509366AEF62"
	AuthCharUUID      = "1C8FD138-FC18-4846-954D-E509366AEF63"
	PoseCharUUID      = "1C8FD138-FC18-4846-954D-E509366AEF64"
	HeartbeatCharUUID = "1C8FD138-FC18-4846-954D-E509366AEF65"
)

// Characteristic identifies a logical channel of the peripheral
type Characteristic int

// Channels of the peripheral service
const (
	CharUnknown Characteristic = iota
	CharControl
	CharAuth
	CharPose
	CharHeartbeat
)

// String returns the channel name
func (c Characteristic) String() string {
	switch c {
	case CharControl:
		return "control"
	case CharAuth:
		return "auth"
	case CharPose:
		return "pose"
	case CharHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// UUID returns the characteristic UUID for the channel, empty for
// unknown channels.
func (c Characteristic) UUID() string {
	switch c {
	case CharControl:
		return ControlCharUUID
	case CharAuth:
		return AuthCharUUID
	case CharPose:
		return PoseCharUUID
	case CharHeartbeat:
		return HeartbeatCharUUID
	default:
		return ""
	}
}

// FromUUID resolves a characteristic UUID to its channel,
// case-insensitively. Unrecognized UUIDs map to CharUnknown.
func FromUUID(uuid string) Characteristic {
	switch strings.ToUpper(uuid) {
	case ControlCharUUID:
		return CharControl
	case AuthCharUUID:
		return CharAuth
	case PoseCharUUID:
		return CharPose
	case HeartbeatCharUUID:
		return CharHeartbeat
	default:
		return CharUnknown
	}
}
