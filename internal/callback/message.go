package callback

import (
	"encoding/json"
	"fmt"
)

// Message is a decoded engine message. It is implemented only by
// GlobalMessage, ConnectionMessage, TaskChainMessage and SubTaskMessage.
type Message interface {
	MessageCode() Code
	message()
}

// GlobalMessage covers InternalError, InitFailed and AllTasksCompleted.
type GlobalMessage struct {
	Code   Code
	UUID   string
	Detail map[string]any
}

// ConnectionMessage is a ConnectionInfo report. What is the sub-kind, such
// as "UuidGetted" or "ConnectFailed".
type ConnectionMessage struct {
	UUID    string
	What    string
	Address string

	// DeviceUUID is the uuid the engine read from the device, set for
	// "UuidGetted".
	DeviceUUID string

	Detail map[string]any
}

// TaskChainMessage reports a task chain transition.
type TaskChainMessage struct {
	Code   Code
	UUID   string
	Token  string
	Detail map[string]any
}

// SubTaskMessage reports an atomic step within a task chain.
type SubTaskMessage struct {
	Code      Code
	UUID      string
	Token     string
	SubTask   string
	What      string
	ExecTimes int
	Detail    map[string]any
}

func (m GlobalMessage) MessageCode() Code  { return m.Code }
func (ConnectionMessage) MessageCode() Code { return ConnectionInfo }
func (m TaskChainMessage) MessageCode() Code { return m.Code }
func (m SubTaskMessage) MessageCode() Code  { return m.Code }

func (GlobalMessage) message()     {}
func (ConnectionMessage) message() {}
func (TaskChainMessage) message()  {}
func (SubTaskMessage) message()    {}

// Decode parses a raw engine message into its variant.
func Decode(code int, detail string) (Message, error) {
	c := Code(code)
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(detail), &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedDetail, c, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: %s: not an object", ErrMalformedDetail, c)
	}

	uuid := stringField(fields, "uuid")
	details, _ := fields["details"].(map[string]any)

	switch c.Family() {
	case FamilyGlobal:
		if c != ConnectionInfo {
			return GlobalMessage{Code: c, UUID: uuid, Detail: fields}, nil
		}
		what := stringField(fields, "what")
		if what == "" {
			return nil, fmt.Errorf("%w: %s: missing what", ErrMalformedDetail, c)
		}
		return ConnectionMessage{
			UUID:       uuid,
			What:       what,
			Address:    stringField(details, "address"),
			DeviceUUID: stringField(details, "uuid"),
			Detail:     fields,
		}, nil

	case FamilyTaskChain:
		token := stringField(fields, "taskchain")
		if token == "" {
			return nil, fmt.Errorf("%w: %s: missing taskchain", ErrMalformedDetail, c)
		}
		return TaskChainMessage{Code: c, UUID: uuid, Token: token, Detail: fields}, nil

	default:
		token := stringField(fields, "taskchain")
		if token == "" {
			return nil, fmt.Errorf("%w: %s: missing taskchain", ErrMalformedDetail, c)
		}
		m := SubTaskMessage{
			Code:      c,
			UUID:      uuid,
			Token:     token,
			SubTask:   stringField(details, "task"),
			What:      stringField(fields, "what"),
			ExecTimes: intField(details, "exec_times"),
			Detail:    fields,
		}
		if c == SubTaskExtraInfo {
			if m.What == "" {
				return nil, fmt.Errorf("%w: %s: missing what", ErrMalformedDetail, c)
			}
		} else if m.SubTask == "" {
			return nil, fmt.Errorf("%w: %s: missing details.task", ErrMalformedDetail, c)
		}
		return m, nil
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// intField reads a JSON number. encoding/json decodes numbers as float64.
func intField(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}
