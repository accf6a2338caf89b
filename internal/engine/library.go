package engine

// Library is the set of native entry points exported by the engine library.
//
// Argument order and types follow the native ABI. The production
// implementation is bound with purego; tests substitute a fake.
type Library interface {
	LoadResource(path string) bool
	Create() uintptr
	CreateEx(callback, customArg uintptr) uintptr
	Destroy(handle uintptr)
	Connect(handle uintptr, adbPath, address, config string) bool
	AppendTask(handle uintptr, taskType, params string) int32
	SetTaskParams(handle uintptr, taskID int32, params string) bool
	Start(handle uintptr) bool
	Stop(handle uintptr) bool
	CtrlerClick(handle uintptr, x, y int32, block bool) bool
	GetImage(handle uintptr, buf []byte) uint64
	GetVersion() string
	Log(level, message string)

	// Close releases the dependency libraries, then the primary library.
	Close() error
}
