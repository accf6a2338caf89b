package task

import (
	"encoding/json"
	"fmt"
)

// canonicalJSON is the default task list. Decoding it from JSON gives the
// templates the same dynamic types a restored list has.
const canonicalJSON = `[
  {"name": "emulator", "title": "Start emulator", "enable": false,
   "configurations": {"commandLine": "", "delay": 300}},
  {"name": "game", "title": "Start game client", "enable": false,
   "configurations": {"commandLine": "", "delay": 300}},
  {"name": "startup", "title": "Start client and wake up", "enable": true,
   "configurations": {"client_type": "Official", "start_game_enable": true}},
  {"name": "fight", "title": "Combat", "enable": true,
   "configurations": {"stage": "", "medicine": 0, "stone": 0, "times": 0, "drops": {},
     "report_to_penguin": true, "server": "CN", "client_type": "Official"}},
  {"name": "recruit", "title": "Auto recruit", "enable": true,
   "configurations": {"refresh": false, "select": [3, 4], "confirm": [3, 4], "times": 0,
     "set_time": true, "expedite": false, "expedite_times": 0, "skip_robot": true}},
  {"name": "infrast", "title": "Base shift change", "enable": true,
   "configurations": {"mode": 0,
     "facility": ["Mfg", "Trade", "Power", "Control", "Reception", "Office", "Dorm"],
     "drones": "_NotUse", "threshold": 0.3, "replenish": false, "drone_usage": "None",
     "mood_limit": 6}},
  {"name": "visit", "title": "Visit friends", "enable": true,
   "configurations": {}},
  {"name": "mall", "title": "Collect credits and shop", "enable": true,
   "configurations": {"shopping": true, "buy_first": ["龙门币", "招聘许可", "赤金"],
     "blacklist": ["家具零件", "加急许可"]}},
  {"name": "award", "title": "Collect daily rewards", "enable": true,
   "configurations": {}},
  {"name": "rogue", "title": "Integrated strategies", "enable": true,
   "configurations": {"mode": 0}},
  {"name": "shutdown", "title": "Shut down computer or emulator", "enable": false,
   "configurations": {"option": "shutdownComputer", "delay": 300}}
]`

var (
	canonical      []Descriptor
	canonicalIndex map[string]int
)

func init() {
	if err := json.Unmarshal([]byte(canonicalJSON), &canonical); err != nil {
		panic(fmt.Sprintf("task: invalid canonical templates: %v", err))
	}
	canonicalIndex = make(map[string]int, len(canonical))
	for i := range canonical {
		d := &canonical[i]
		d.TaskID = UnassignedTaskID
		d.Status = StatusIdle
		d.Results = map[string]any{}
		canonicalIndex[d.Name] = i
	}
}

// Kinds returns the canonical task kinds in canonical order.
func Kinds() []string {
	kinds := make([]string, len(canonical))
	for i, d := range canonical {
		kinds[i] = d.Name
	}
	return kinds
}

// Template returns a deep copy of the canonical descriptor for kind.
func Template(kind string) (Descriptor, bool) {
	i, ok := canonicalIndex[kind]
	if !ok {
		return Descriptor{}, false
	}
	return canonical[i].DeepCopy(), true
}

// DefaultList returns a deep copy of the canonical task list.
func DefaultList() []Descriptor {
	return copyList(canonical)
}

// sameKeys reports whether a and b have identical key sets.
func sameKeys(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
