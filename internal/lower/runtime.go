package lower

import "github.com/foundryc/ssair/internal/ir"

// runtimeIntrinsics is the fixed set of externally linked runtime helpers
// spec.md §4.5 names as never eligible for inlining. A program's AST never
// declares them (they have no body anywhere in this translation unit); a
// CallExpr naming one of them is lowered against a lazily-created
// declaration with the runtime's documented signature instead of being
// treated as a call to an undefined function.
var runtimeIntrinsics = map[string]func(l *Lowerer) *ir.FuncType{
	"getint":   func(l *Lowerer) *ir.FuncType { return l.mod.Types.Func(l.mod.Types.I32(), nil) },
	"getch":    func(l *Lowerer) *ir.FuncType { return l.mod.Types.Func(l.mod.Types.I32(), nil) },
	"getfloat": func(l *Lowerer) *ir.FuncType { return l.mod.Types.Func(l.mod.Types.F32(), nil) },
	"getarray": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.I32(), []ir.Type{l.mod.Types.Pointer(l.mod.Types.I32())})
	},
	"getfarray": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.I32(), []ir.Type{l.mod.Types.Pointer(l.mod.Types.F32())})
	},
	"putint":  func(l *Lowerer) *ir.FuncType { return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.I32()}) },
	"putch":   func(l *Lowerer) *ir.FuncType { return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.I32()}) },
	"putfloat": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.F32()})
	},
	"putarray": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.I32(), l.mod.Types.Pointer(l.mod.Types.I32())})
	},
	"putfarray": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.I32(), l.mod.Types.Pointer(l.mod.Types.F32())})
	},
	"memset_int": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.Pointer(l.mod.Types.I32()), l.mod.Types.I32(), l.mod.Types.I32()})
	},
	"memset_float": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.Pointer(l.mod.Types.F32()), l.mod.Types.F32(), l.mod.Types.I32()})
	},
	"_sysy_starttime": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.I32()})
	},
	"_sysy_stoptime": func(l *Lowerer) *ir.FuncType {
		return l.mod.Types.Func(l.mod.Types.Void(), []ir.Type{l.mod.Types.I32()})
	},
}

// lookupOrDeclareRuntime returns the module-level declaration for a runtime
// intrinsic, creating it (with no body, same as neg_idx_except) the first
// time it is referenced.
func (l *Lowerer) lookupOrDeclareRuntime(name string) *ir.Function {
	sigFn, ok := runtimeIntrinsics[name]
	if !ok {
		return nil
	}
	if fn, ok := l.funcs[name]; ok {
		return fn
	}
	fn := ir.NewFunction(name, sigFn(l))
	l.mod.AddFunction(fn)
	l.funcs[name] = fn
	return fn
}
