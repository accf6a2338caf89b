package task

// Status is the execution state of a task descriptor.
type Status string

// Task statuses.
const (
	StatusIdle       Status = "idle"
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusException  Status = "exception"
	StatusStopped    Status = "stopped"
)

// AllStatuses returns every valid status.
func AllStatuses() []Status {
	return []Status{
		StatusIdle,
		StatusWaiting,
		StatusProcessing,
		StatusSuccess,
		StatusException,
		StatusStopped,
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range AllStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// UnassignedTaskID marks a descriptor that has not been appended to the engine.
const UnassignedTaskID = -1

// Descriptor is one entry of a device task list.
// JSON names match the format persisted and consumed by the UI.
type Descriptor struct {
	Name           string         `json:"name"` // task kind, e.g. "fight"
	TaskID         int            `json:"taskid"`
	Title          string         `json:"title"`
	Status         Status         `json:"status"`
	Enabled        bool           `json:"enable"`
	Configurations map[string]any `json:"configurations"`
	Results        map[string]any `json:"results"`
	StartTime      int64          `json:"startTime"` // unix milliseconds
	EndTime        int64          `json:"endTime"`   // unix milliseconds
	Progress       int            `json:"progress"`
}

// DeepCopy returns a copy sharing no maps or slices with d.
func (d Descriptor) DeepCopy() Descriptor {
	cpy := d
	cpy.Configurations = deepCopyMap(d.Configurations)
	cpy.Results = deepCopyMap(d.Results)
	return cpy
}

func copyList(list []Descriptor) []Descriptor {
	if list == nil {
		return nil
	}
	out := make([]Descriptor, len(list))
	for i := range list {
		out[i] = list[i].DeepCopy()
	}
	return out
}

// deepCopyMap creates a deep copy of a map[string]any.
// Nested maps and slices are recursively copied.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cpy := make(map[string]any, len(m))
	for k, v := range m {
		cpy[k] = deepCopyValue(v)
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	case []string:
		cpy := make([]string, len(val))
		copy(cpy, val)
		return cpy
	default:
		return v
	}
}
