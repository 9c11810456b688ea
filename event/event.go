// Package event defines the structured event stream emitted by the
// peripheral session: session identity, advertising state, auth
// results, control commands, transformed poses, heartbeats and errors.
//
// Events fan out through an explicit Sink passed at construction.
// Multiplexing to several destinations (console, NATS, WebSocket
// viewers) is the caller's composition via Multi; components never hold
// a global callback registry.
package event

// Type identifies the kind of an event
type Type string

// Event types emitted by the peripheral session
const (
	TypeSession             Type = "session"
	TypeAdvertising         Type = "ble_advertising"
	TypeAdvertisingStarted  Type = "ble_advertising_started"
	TypeServiceAdded        Type = "ble_service_added"
	TypeAuthOK              Type = "ble_auth_ok"
	TypeAuthFailed          Type = "ble_auth_failed"
	TypeControl             Type = "ble_control"
	TypePose                Type = "pose"
	TypeHeartbeat           Type = "heartbeat"
	TypeSubscribe           Type = "ble_subscribe"
	TypeUnsubscribe         Type = "ble_unsubscribe"
	TypeError               Type = "error"
	TypeWarn                Type = "warn"
)

// Event is one occurrence on the stream. Field presence follows the
// wire contract: only the fields belonging to the event type are set,
// everything else is omitted from the JSON encoding.
type Event struct {
	Type    Type           `json:"type"`
	Name    string         `json:"name,omitempty"`
	Code    string         `json:"code,omitempty"`
	Cmd     string         `json:"cmd,omitempty"`
	Char    string         `json:"char,omitempty"`
	UUID    string         `json:"uuid,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Session reports the generated session identity and code
func Session(name, code string) Event {
	return Event{Type: TypeSession, Name: name, Code: code}
}

// Advertising reports that advertising was registered under name
func Advertising(name string) Event {
	return Event{Type: TypeAdvertising, Name: name}
}

// AdvertisingStarted reports that the advertisement is live
func AdvertisingStarted() Event {
	return Event{Type: TypeAdvertisingStarted}
}

// ServiceAdded reports GATT service registration
func ServiceAdded(uuid string) Event {
	return Event{Type: TypeServiceAdded, UUID: uuid}
}

// AuthOK reports a successful auth write
func AuthOK() Event {
	return Event{Type: TypeAuthOK}
}

// AuthFailed reports an auth write that did not match the session code
func AuthFailed() Event {
	return Event{Type: TypeAuthFailed}
}

// Control reports a control command, verbatim and uninterpreted
func Control(cmd string) Event {
	return Event{Type: TypeControl, Cmd: cmd}
}

// Pose carries one transformed output event
func Pose(data map[string]any) Event {
	return Event{Type: TypePose, Data: data}
}

// Heartbeat reports one liveness tick; the counter value is read
// separately from the heartbeat characteristic.
func Heartbeat() Event {
	return Event{Type: TypeHeartbeat}
}

// Subscribe reports a notification subscription on a characteristic
func Subscribe(char string) Event {
	return Event{Type: TypeSubscribe, Char: char}
}

// Unsubscribe reports a dropped notification subscription
func Unsubscribe(char string) Event {
	return Event{Type: TypeUnsubscribe, Char: char}
}

// Error reports a non-fatal per-sample or bring-up failure
func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

// Warn reports a degraded but non-failing condition
func Warn(message string) Event {
	return Event{Type: TypeWarn, Message: message}
}
