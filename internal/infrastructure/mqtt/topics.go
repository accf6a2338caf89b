package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
const (
	// TopicPrefix is the root of every maa-core topic.
	TopicPrefix = "maa"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"

	// noDevice stands in for the uuid segment of process-wide events.
	noDevice = "_"
)

// Topics provides builders for maa-core MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Event("dev1", "StartUp:Start:StartToWakeUp")
//	// Returns: "maa/event/dev1/StartUp:Start:StartToWakeUp"
type Topics struct{}

// Event returns the mirror topic for a bus event.
//
// Example: maa/event/dev1/10002
func (Topics) Event(uuid, topic string) string {
	return fmt.Sprintf("%s/event/%s/%s", TopicPrefix, segment(uuid), segment(topic))
}

// Command returns the topic for a remote device command.
//
// Example: maa/command/dev1/start
func (Topics) Command(uuid, action string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, segment(uuid), segment(action))
}

// SystemStatus returns the system status topic carrying online/offline and LWT.
//
// Example: maa/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllEvents returns a pattern matching every mirrored event.
//
// Pattern: maa/event/+/+
func (Topics) AllEvents() string {
	return TopicPrefix + "/event/+/+"
}

// AllCommands returns a pattern matching every device command.
//
// Pattern: maa/command/+/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+/+"
}

// ParseCommand splits a command topic into uuid and action.
func (Topics) ParseCommand(topic string) (uuid, action string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "command" || parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%w: %q is not a command topic", ErrInvalidTopic, topic)
	}
	return parts[2], parts[3], nil
}

// segment makes s safe as a single topic level.
func segment(s string) string {
	if s == "" {
		return noDevice
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
