package ir

// GlobalVariable is a module-scoped storage location, always of pointer
// type, always zero-initialized (spec.md §4.1: the language has no global
// initializer syntax).
type GlobalVariable struct {
	def
	Name string
	Elem Type // the pointee type; def.typ is Pointer(Elem)
	Init *ConstantZero
}

// NewGlobalVariable builds a global of type pointer-to-elem.
func NewGlobalVariable(interner *TypeInterner, name string, elem Type) *GlobalVariable {
	return &GlobalVariable{
		def:  def{typ: interner.Pointer(elem)},
		Name: name,
		Elem: elem,
		Init: NewConstantZero(elem),
	}
}

// Module is the top-level compilation unit: a type interner plus every
// global variable and function it owns (spec.md §4.1).
type Module struct {
	Types     *TypeInterner
	Globals   []*GlobalVariable
	Functions []*Function
}

// NewModule creates an empty module with a fresh type interner.
func NewModule() *Module {
	return &Module{Types: NewTypeInterner()}
}

// AddGlobal appends g to the module's global list.
func (m *Module) AddGlobal(g *GlobalVariable) { m.Globals = append(m.Globals, g) }

// AddFunction appends fn to the module's function list and sets its parent.
func (m *Module) AddFunction(fn *Function) {
	fn.Parent = m
	m.Functions = append(m.Functions, fn)
}

// FindFunction returns the function named name, or nil.
func (m *Module) FindFunction(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// FindGlobal returns the global variable named name, or nil.
func (m *Module) FindGlobal(name string) *GlobalVariable {
	for _, g := range m.Globals {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// RemoveFunction splices fn out of the module's function list. DeadCode's
// global sweep calls this for every function other than main whose use list
// is empty (spec.md §4.4); it does not unlink fn's own internal use-def graph, since a deleted
// function's blocks are simply discarded along with it.
func (m *Module) RemoveFunction(fn *Function) {
	for i, f := range m.Functions {
		if f == fn {
			m.Functions = append(m.Functions[:i], m.Functions[i+1:]...)
			return
		}
	}
}
