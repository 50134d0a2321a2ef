package toolchain

import (
	"fmt"
	"sort"
	"strings"
)

// Settings is the bag of toolchain settings a test accumulates before
// building. It mirrors into compiler flags: a value of 1 becomes -sKEY,
// a list becomes -sKEY=a,b,c and anything else becomes -sKEY=VALUE.
type Settings struct {
	mods map[string]interface{}
}

func NewSettings() *Settings {
	return &Settings{mods: map[string]interface{}{}}
}

// Set records a setting. A nil value clears it.
func (s *Settings) Set(key string, value interface{}) {
	if value == nil {
		s.Clear(key)
		return
	}
	s.mods[key] = value
}

// Enable is shorthand for Set(key, 1).
func (s *Settings) Enable(key string) {
	s.Set(key, 1)
}

func (s *Settings) Clear(key string) {
	delete(s.mods, key)
}

// Get returns the recorded value, or def if the setting was never changed.
func (s *Settings) Get(key string, def interface{}) interface{} {
	if v, ok := s.mods[key]; ok {
		return v
	}
	return def
}

// Changed reports whether the setting was explicitly set.
func (s *Settings) Changed(key string) bool {
	_, ok := s.mods[key]
	return ok
}

// Clone returns an independent copy.
func (s *Settings) Clone() *Settings {
	out := NewSettings()
	for k, v := range s.mods {
		out.mods[k] = v
	}
	return out
}

// Serialize renders the settings as compiler flags, in sorted key order so
// build commands are reproducible.
func (s *Settings) Serialize() []string {
	keys := make([]string, 0, len(s.mods))
	for k := range s.mods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]string, 0, len(keys))
	for _, key := range keys {
		switch value := s.mods[key].(type) {
		case int:
			if value == 1 {
				args = append(args, "-s"+key)
			} else {
				args = append(args, fmt.Sprintf("-s%s=%d", key, value))
			}
		case []string:
			args = append(args, fmt.Sprintf("-s%s=%s", key, strings.Join(value, ",")))
		default:
			args = append(args, fmt.Sprintf("-s%s=%v", key, value))
		}
	}
	return args
}
