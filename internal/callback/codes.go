package callback

import "strconv"

// Code is a native engine message code.
type Code int

// Message codes defined by the engine ABI.
const (
	InternalError     Code = 0
	InitFailed        Code = 1
	ConnectionInfo    Code = 2
	AllTasksCompleted Code = 3

	TaskChainError     Code = 10000
	TaskChainStart     Code = 10001
	TaskChainCompleted Code = 10002
	TaskChainExtraInfo Code = 10003

	SubTaskError     Code = 20000
	SubTaskStart     Code = 20001
	SubTaskCompleted Code = 20002
	SubTaskExtraInfo Code = 20003
)

// Family groups message codes by range.
type Family int

// Message families.
const (
	FamilyUnknown Family = iota
	FamilyGlobal
	FamilyTaskChain
	FamilySubTask
)

var codeNames = map[Code]string{
	InternalError:      "InternalError",
	InitFailed:         "InitFailed",
	ConnectionInfo:     "ConnectionInfo",
	AllTasksCompleted:  "AllTasksCompleted",
	TaskChainError:     "TaskChainError",
	TaskChainStart:     "TaskChainStart",
	TaskChainCompleted: "TaskChainCompleted",
	TaskChainExtraInfo: "TaskChainExtraInfo",
	SubTaskError:       "SubTaskError",
	SubTaskStart:       "SubTaskStart",
	SubTaskCompleted:   "SubTaskCompleted",
	SubTaskExtraInfo:   "SubTaskExtraInfo",
}

// Valid reports whether c is one of the ABI message codes.
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

// Family returns the family c belongs to.
func (c Code) Family() Family {
	if !c.Valid() {
		return FamilyUnknown
	}
	switch {
	case c < TaskChainError:
		return FamilyGlobal
	case c < SubTaskError:
		return FamilyTaskChain
	default:
		return FamilySubTask
	}
}

// String returns the ABI name of c, or its decimal value when unknown.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// String returns the family name.
func (f Family) String() string {
	switch f {
	case FamilyGlobal:
		return "global"
	case FamilyTaskChain:
		return "taskchain"
	case FamilySubTask:
		return "subtask"
	default:
		return "unknown"
	}
}
