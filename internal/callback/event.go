package callback

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/maa-core/internal/taskchain"
)

// Event is a translated engine message, published under Name.
type Event struct {
	Code       Code
	Family     Family
	Name       string
	UUID       string
	Chain      string // slug, e.g. "startup"
	ChainToken string // engine token, e.g. "StartUp"
	SubTask    string
	ExecTimes  int
	Detail     map[string]any
	Payload    map[string]any
}

// Topic implements event.Message.
func (e Event) Topic() string { return e.Name }

// DeviceUUID implements event.Message.
func (e Event) DeviceUUID() string { return e.UUID }

// Body implements event.Message.
func (e Event) Body() map[string]any { return e.Payload }

// Translate derives the topic and payload for m.
func Translate(m Message) (Event, error) {
	switch m := m.(type) {
	case GlobalMessage:
		// InternalError carries no device in its payload.
		payload := map[string]any{"name": int(m.Code)}
		if m.Code != InternalError {
			payload["uuid"] = m.UUID
		}
		return Event{
			Code:    m.Code,
			Family:  FamilyGlobal,
			Name:    strconv.Itoa(int(m.Code)),
			UUID:    m.UUID,
			Detail:  m.Detail,
			Payload: payload,
		}, nil

	case ConnectionMessage:
		payload := map[string]any{"name": m.What, "address": m.Address}
		if m.What == "UuidGetted" {
			payload["uuid"] = m.DeviceUUID
		}
		return Event{
			Code:    ConnectionInfo,
			Family:  FamilyGlobal,
			Name:    m.What,
			UUID:    m.UUID,
			Detail:  m.Detail,
			Payload: payload,
		}, nil

	case TaskChainMessage:
		slug, err := taskchain.Translate(m.Token)
		if err != nil {
			return Event{}, fmt.Errorf("translating %s: %w", m.Code, err)
		}
		return Event{
			Code:       m.Code,
			Family:     FamilyTaskChain,
			Name:       strconv.Itoa(int(m.Code)),
			UUID:       m.UUID,
			Chain:      slug,
			ChainToken: m.Token,
			Detail:     m.Detail,
			Payload:    map[string]any{"name": int(m.Code), "task": slug, "uuid": m.UUID},
		}, nil

	case SubTaskMessage:
		slug, err := taskchain.Translate(m.Token)
		if err != nil {
			return Event{}, fmt.Errorf("translating %s: %w", m.Code, err)
		}

		var name string
		switch m.Code {
		case SubTaskStart:
			name = m.Token + ":Start:" + m.SubTask
		case SubTaskCompleted:
			name = m.Token + ":Completed:" + m.SubTask
		case SubTaskExtraInfo:
			name = m.Token + ":Extra:" + m.What
		default:
			name = m.Token + ":" + m.SubTask
		}

		payload := make(map[string]any, len(m.Detail)+4)
		for k, v := range m.Detail {
			payload[k] = v
		}
		payload["name"] = name
		payload["uuid"] = m.UUID
		payload["task"] = slug
		if m.Code == SubTaskStart {
			payload["execTimes"] = m.ExecTimes
		}

		return Event{
			Code:       m.Code,
			Family:     FamilySubTask,
			Name:       name,
			UUID:       m.UUID,
			Chain:      slug,
			ChainToken: m.Token,
			SubTask:    m.SubTask,
			ExecTimes:  m.ExecTimes,
			Detail:     m.Detail,
			Payload:    payload,
		}, nil

	default:
		return Event{}, fmt.Errorf("%w: %T", ErrUnknownCode, m)
	}
}
