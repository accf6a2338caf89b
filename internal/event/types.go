package event

// Message is anything that can be published on the Bus.
type Message interface {
	// Topic is the literal subscription key.
	Topic() string

	// DeviceUUID identifies the device the message belongs to, or "" for
	// process-wide messages.
	DeviceUUID() string

	// Body is the JSON-serialisable payload delivered to the UI.
	Body() map[string]any
}

// TopicUIMessage carries user-facing notifications.
const TopicUIMessage = "ui:message"

// Notice is a user-facing notification rendered by the UI message channel.
type Notice struct {
	UUID     string
	Message  string
	Type     string // "info", "warning", "error"
	Duration int    // milliseconds, 0 keeps it open until dismissed
	Closable bool
}

// Topic implements Message.
func (Notice) Topic() string { return TopicUIMessage }

// DeviceUUID implements Message.
func (n Notice) DeviceUUID() string { return n.UUID }

// Body implements Message.
func (n Notice) Body() map[string]any {
	return map[string]any{
		"message":  n.Message,
		"type":     n.Type,
		"duration": n.Duration,
		"closable": n.Closable,
	}
}
