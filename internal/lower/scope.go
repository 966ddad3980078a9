// Package lower translates an internal/ast.Program into the internal/ir
// representation, following the lowering rules of spec.md §4.2.
package lower

import "github.com/foundryc/ssair/internal/ir"

// scope is the symbol table spec.md §4.2 calls for: enter()/exit() push and
// pop a frame, push binds a name in the current frame, find searches
// outward through enclosing frames. Every bound value is the storage
// location for that name (a GlobalVariable or an alloca Instruction), never
// the value currently held in it — reads always go through an explicit load.
type scope struct {
	frames []map[string]ir.Value
}

func newScope() *scope {
	return &scope{frames: []map[string]ir.Value{{}}}
}

func (s *scope) enter() {
	s.frames = append(s.frames, map[string]ir.Value{})
}

func (s *scope) exit() {
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *scope) push(name string, val ir.Value) {
	s.frames[len(s.frames)-1][name] = val
}

func (s *scope) find(name string) ir.Value {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v
		}
	}
	return nil
}
