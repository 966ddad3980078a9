package lower

import (
	"github.com/pkg/errors"

	"github.com/foundryc/ssair/internal/ast"
	"github.com/foundryc/ssair/internal/ir"
)

// Lowerer drives a single Builder across an entire program, translating one
// internal/ast.Program into one ir.Module per the rules of spec.md §4.2. It
// is not meant to be reused across programs.
type Lowerer struct {
	mod          *ir.Module
	b            *ir.Builder
	sc           *scope
	funcs        map[string]*ir.Function
	negIdxExcept *ir.Function
	curFn        *ir.Function
}

// Lower translates prog into a fresh Module. Callers should run
// internal/validator over prog first; Lower trusts its input and only
// returns an error for conditions the validator cannot see in advance (a
// call to a name that validated as a function but somehow isn't one, etc).
func Lower(prog *ast.Program) (*ir.Module, error) {
	l := &Lowerer{funcs: map[string]*ir.Function{}}
	l.mod = ir.NewModule()
	l.b = ir.NewBuilder(l.mod.Types)
	l.sc = newScope()

	// neg_idx_except is an external runtime helper: a declaration with no
	// body that the negative-index guard branches to (spec.md §4.2, the
	// "negative-index runtime check" rule).
	voidSig := l.mod.Types.Func(l.mod.Types.Void(), nil)
	l.negIdxExcept = ir.NewFunction("neg_idx_except", voidSig)
	l.mod.AddFunction(l.negIdxExcept)

	for _, d := range prog.Decls {
		switch decl := d.(type) {
		case *ast.VarDecl:
			elem := l.mapValueType(decl.Type)
			if decl.ArrayLen > 0 {
				elem = l.mod.Types.Array(elem, decl.ArrayLen)
			}
			g := ir.NewGlobalVariable(l.mod.Types, decl.Name, elem)
			l.mod.AddGlobal(g)
			l.sc.push(decl.Name, g)
		case *ast.FuncDecl:
			fn := ir.NewFunction(decl.Name, l.funcSignature(decl))
			l.mod.AddFunction(fn)
			l.funcs[decl.Name] = fn
		default:
			return nil, errors.Errorf("lower: unknown top-level declaration %T", d)
		}
	}

	for _, d := range prog.Decls {
		fdecl, ok := d.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if err := l.lowerFunc(fdecl); err != nil {
			return nil, errors.Wrapf(err, "function %s", fdecl.Name)
		}
	}
	return l.mod, nil
}

func (l *Lowerer) mapValueType(t ast.ValueType) ir.Type {
	switch t {
	case ast.Int:
		return l.mod.Types.I32()
	case ast.Float:
		return l.mod.Types.F32()
	default:
		return l.mod.Types.Void()
	}
}

func (l *Lowerer) funcSignature(decl *ast.FuncDecl) *ir.FuncType {
	params := make([]ir.Type, len(decl.Params))
	for i, p := range decl.Params {
		t := l.mapValueType(p.Type)
		if p.IsArray {
			t = l.mod.Types.Pointer(t)
		}
		params[i] = t
	}
	return l.mod.Types.Func(l.mapValueType(decl.Returns), params)
}

func (l *Lowerer) lowerFunc(decl *ast.FuncDecl) error {
	fn := l.funcs[decl.Name]
	l.curFn = fn

	entry := ir.NewBasicBlock(l.mod.Types.Label(), "entry", fn)
	fn.AppendBlock(entry)
	l.b.SetInsertPoint(entry)

	l.sc.enter()
	defer l.sc.exit()

	for i, p := range decl.Params {
		arg := fn.Args[i]
		slot := l.b.CreateAlloca(arg.Type())
		l.b.CreateStore(arg, slot)
		l.sc.push(p.Name, slot)
	}

	if err := l.lowerCompound(decl.Body); err != nil {
		return err
	}

	if !l.b.InsertBlock().IsTerminated() {
		l.emitDefaultReturn()
	}
	return nil
}

// emitDefaultReturn emits the implicit terminator a function whose body
// falls off the end needs: ret void, ret 0.0, or ret 0, chosen by the
// current function's return type (spec.md §4.2).
func (l *Lowerer) emitDefaultReturn() {
	switch l.curFn.ReturnType().Kind() {
	case ir.KindVoid:
		l.b.CreateRet(nil)
	case ir.KindF32:
		l.b.CreateRet(ir.NewConstantFP(l.mod.Types.F32(), 0))
	default:
		l.b.CreateRet(ir.NewConstantInt(l.mod.Types.I32(), 0))
	}
}

func (l *Lowerer) lowerCompound(c *ast.CompoundStmt) error {
	l.sc.enter()
	defer l.sc.exit()

	for _, decl := range c.Locals {
		elem := l.mapValueType(decl.Type)
		if decl.ArrayLen > 0 {
			elem = l.mod.Types.Array(elem, decl.ArrayLen)
		}
		slot := l.b.CreateAlloca(elem)
		l.sc.push(decl.Name, slot)
	}

	for _, stmt := range c.Stmts {
		if l.b.InsertBlock().IsTerminated() {
			break
		}
		if err := l.lowerStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lowerer) lowerStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.CompoundStmt:
		return l.lowerCompound(s)
	case *ast.IfStmt:
		return l.lowerIf(s)
	case *ast.WhileStmt:
		return l.lowerWhile(s)
	case *ast.ReturnStmt:
		return l.lowerReturn(s)
	case *ast.ExprStmt:
		_, err := l.lowerExpr(s.X, false)
		return err
	default:
		return errors.Errorf("lower: unknown statement %T", stmt)
	}
}

func (l *Lowerer) newBlock(prefix string) *ir.BasicBlock {
	return ir.NewBasicBlock(l.mod.Types.Label(), l.curFn.FreshName(prefix), l.curFn)
}

// truthValue compares v against its type's zero so it can drive a cond_br:
// f32 values compare `!= 0.0`, everything else compares `!= 0` (spec.md
// §4.2's if/while condition rule).
func (l *Lowerer) truthValue(v ir.Value) ir.Value {
	if v.Type().Kind() == ir.KindF32 {
		return l.b.CreateFCmp(ir.PredNE, v, ir.NewConstantFP(l.mod.Types.F32(), 0))
	}
	return l.b.CreateICmp(ir.PredNE, v, ir.NewConstantInt(l.mod.Types.I32(), 0))
}

func (l *Lowerer) lowerIf(s *ast.IfStmt) error {
	cond, err := l.lowerExpr(s.Cond, false)
	if err != nil {
		return err
	}
	truth := l.truthValue(cond)

	thenBB := l.newBlock("then")
	endBB := l.newBlock("end")
	var elseBB *ir.BasicBlock
	if s.Else != nil {
		elseBB = l.newBlock("else")
		l.b.CreateCondBr(truth, thenBB, elseBB)
	} else {
		l.b.CreateCondBr(truth, thenBB, endBB)
	}

	l.curFn.AppendBlock(thenBB)
	l.b.SetInsertPoint(thenBB)
	if err := l.lowerCompound(s.Then); err != nil {
		return err
	}
	if !l.b.InsertBlock().IsTerminated() {
		l.b.CreateBr(endBB)
	}

	if s.Else != nil {
		l.curFn.AppendBlock(elseBB)
		l.b.SetInsertPoint(elseBB)
		if err := l.lowerCompound(s.Else); err != nil {
			return err
		}
		if !l.b.InsertBlock().IsTerminated() {
			l.b.CreateBr(endBB)
		}
	}

	l.curFn.AppendBlock(endBB)
	l.b.SetInsertPoint(endBB)
	return nil
}

func (l *Lowerer) lowerWhile(s *ast.WhileStmt) error {
	condBB := l.newBlock("cond")
	bodyBB := l.newBlock("body")
	endBB := l.newBlock("end")

	l.b.CreateBr(condBB)

	l.curFn.AppendBlock(condBB)
	l.b.SetInsertPoint(condBB)
	cond, err := l.lowerExpr(s.Cond, false)
	if err != nil {
		return err
	}
	truth := l.truthValue(cond)
	l.b.CreateCondBr(truth, bodyBB, endBB)

	l.curFn.AppendBlock(bodyBB)
	l.b.SetInsertPoint(bodyBB)
	if err := l.lowerCompound(s.Body); err != nil {
		return err
	}
	if !l.b.InsertBlock().IsTerminated() {
		l.b.CreateBr(condBB)
	}

	l.curFn.AppendBlock(endBB)
	l.b.SetInsertPoint(endBB)
	return nil
}

func (l *Lowerer) lowerReturn(s *ast.ReturnStmt) error {
	if s.Value == nil {
		l.b.CreateRet(nil)
		return nil
	}
	v, err := l.lowerExpr(s.Value, false)
	if err != nil {
		return err
	}
	v = l.convertTo(v, l.curFn.ReturnType())
	l.b.CreateRet(v)
	return nil
}

// convertTo inserts sitofp/fptosi when v's type disagrees with target,
// leaving v untouched otherwise (target is always a scalar slot: a return
// type, an assignment's pointee type, or a call's declared parameter type).
func (l *Lowerer) convertTo(v ir.Value, target ir.Type) ir.Value {
	if v.Type() == target {
		return v
	}
	switch {
	case target.Kind() == ir.KindF32 && v.Type().Kind() == ir.KindI32:
		return l.b.CreateSIToFP(v)
	case target.Kind() == ir.KindI32 && v.Type().Kind() == ir.KindF32:
		return l.b.CreateFPToSI(v)
	default:
		return v
	}
}

func (l *Lowerer) lowerExpr(e ast.Expr, isLval bool) (ir.Value, error) {
	switch expr := e.(type) {
	case *ast.IntLit:
		return ir.NewConstantInt(l.mod.Types.I32(), expr.Val), nil
	case *ast.FloatLit:
		return ir.NewConstantFP(l.mod.Types.F32(), expr.Val), nil
	case *ast.VarExpr:
		return l.lowerVar(expr, isLval)
	case *ast.AssignExpr:
		return l.lowerAssign(expr)
	case *ast.BinaryExpr:
		return l.lowerBinary(expr)
	case *ast.CallExpr:
		return l.lowerCall(expr)
	default:
		return nil, errors.Errorf("lower: unknown expression %T", e)
	}
}

func (l *Lowerer) lowerVar(e *ast.VarExpr, isLval bool) (ir.Value, error) {
	storage := l.sc.find(e.Name)
	if storage == nil {
		return nil, errors.Errorf("lower: undefined variable %q", e.Name)
	}

	if e.Index == nil {
		if isLval {
			return storage, nil
		}
		pt := ir.AsPointer(storage.Type())
		if pt.Elem.Kind() == ir.KindArray {
			zero := ir.NewConstantInt(l.mod.Types.I32(), 0)
			return l.b.CreateGEP(storage, []ir.Value{zero, zero}), nil
		}
		return l.b.CreateLoad(storage), nil
	}

	idx, err := l.lowerExpr(e.Index, false)
	if err != nil {
		return nil, err
	}
	if idx.Type().Kind() == ir.KindF32 {
		idx = l.b.CreateFPToSI(idx)
	}

	exceptBB := l.newBlock("neg_idx")
	condBB := l.newBlock("idx_ok")
	isNeg := l.b.CreateICmp(ir.PredLT, idx, ir.NewConstantInt(l.mod.Types.I32(), 0))
	l.b.CreateCondBr(isNeg, exceptBB, condBB)

	l.curFn.AppendBlock(exceptBB)
	l.b.SetInsertPoint(exceptBB)
	l.b.CreateCall(l.negIdxExcept, nil)
	l.emitDefaultReturn()

	l.curFn.AppendBlock(condBB)
	l.b.SetInsertPoint(condBB)

	pt := ir.AsPointer(storage.Type())
	var elemPtr ir.Value
	switch pt.Elem.Kind() {
	case ir.KindPointer:
		arrBase := l.b.CreateLoad(storage)
		elemPtr = l.b.CreateGEP(arrBase, []ir.Value{idx})
	case ir.KindArray:
		zero := ir.NewConstantInt(l.mod.Types.I32(), 0)
		elemPtr = l.b.CreateGEP(storage, []ir.Value{zero, idx})
	default:
		elemPtr = l.b.CreateGEP(storage, []ir.Value{idx})
	}

	if isLval {
		return elemPtr, nil
	}
	return l.b.CreateLoad(elemPtr), nil
}

func (l *Lowerer) lowerAssign(e *ast.AssignExpr) (ir.Value, error) {
	rhs, err := l.lowerExpr(e.Value, false)
	if err != nil {
		return nil, err
	}
	ptr, err := l.lowerExpr(e.Target, true)
	if err != nil {
		return nil, err
	}
	pt := ir.AsPointer(ptr.Type())
	rhs = l.convertTo(rhs, pt.Elem)
	l.b.CreateStore(rhs, ptr)
	return rhs, nil
}

var binaryPreds = map[ast.BinaryOp]ir.Predicate{
	ast.Eq: ir.PredEQ,
	ast.Ne: ir.PredNE,
	ast.Lt: ir.PredLT,
	ast.Le: ir.PredLE,
	ast.Gt: ir.PredGT,
	ast.Ge: ir.PredGE,
}

func (l *Lowerer) lowerBinary(e *ast.BinaryExpr) (ir.Value, error) {
	lhs, err := l.lowerExpr(e.Left, false)
	if err != nil {
		return nil, err
	}
	rhs, err := l.lowerExpr(e.Right, false)
	if err != nil {
		return nil, err
	}
	if lhs.Type().Kind() != rhs.Type().Kind() {
		if lhs.Type().Kind() == ir.KindI32 {
			lhs = l.b.CreateSIToFP(lhs)
		} else {
			rhs = l.b.CreateSIToFP(rhs)
		}
	}
	isFloat := lhs.Type().Kind() == ir.KindF32

	if pred, ok := binaryPreds[e.Op]; ok {
		var cmp *ir.Instruction
		if isFloat {
			cmp = l.b.CreateFCmp(pred, lhs, rhs)
		} else {
			cmp = l.b.CreateICmp(pred, lhs, rhs)
		}
		return l.b.CreateZExt(cmp), nil
	}

	switch e.Op {
	case ast.Add:
		if isFloat {
			return l.b.CreateFAdd(lhs, rhs), nil
		}
		return l.b.CreateAdd(lhs, rhs), nil
	case ast.Sub:
		if isFloat {
			return l.b.CreateFSub(lhs, rhs), nil
		}
		return l.b.CreateSub(lhs, rhs), nil
	case ast.Mul:
		if isFloat {
			return l.b.CreateFMul(lhs, rhs), nil
		}
		return l.b.CreateMul(lhs, rhs), nil
	case ast.Div:
		if isFloat {
			return l.b.CreateFDiv(lhs, rhs), nil
		}
		return l.b.CreateSDiv(lhs, rhs), nil
	default:
		return nil, errors.Errorf("lower: unknown binary operator %v", e.Op)
	}
}

func (l *Lowerer) lowerCall(e *ast.CallExpr) (ir.Value, error) {
	fn, ok := l.funcs[e.Name]
	if !ok {
		fn = l.lookupOrDeclareRuntime(e.Name)
	}
	if fn == nil {
		return nil, errors.Errorf("lower: call to undefined function %q", e.Name)
	}
	params := fn.Signature().Params
	args := make([]ir.Value, len(e.Args))
	for i, a := range e.Args {
		v, err := l.lowerExpr(a, false)
		if err != nil {
			return nil, err
		}
		if i < len(params) && v.Type().Kind() != ir.KindPointer {
			v = l.convertTo(v, params[i])
		}
		args[i] = v
	}
	return l.b.CreateCall(fn, args), nil
}
