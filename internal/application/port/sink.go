package port

// Broadcaster pushes a serialized payload to all connected dashboard clients.
// The transport (websocket hub) lives in the interfaces layer.
type Broadcaster interface {
	Broadcast(payload []byte)
}
