// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package synth

import (
	"fmt"

	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/vm"
)

// Lower a single bytecode instruction.
func (p *MethodSynth) synthInsn(insn vm.Insn) {
	switch insn := insn.(type) {
	case *vm.Nop:
		// nothing
	case *vm.Num:
		p.synthNum(insn)
	case *vm.Assign:
		p.synthAssign(insn)
	case *vm.BinOp:
		p.synthBinOp(insn)
	case *vm.Shift:
		p.synthShift(insn)
	case *vm.Concat:
		p.synthConcat(insn)
	case *vm.BitRange:
		p.synthBitRange(insn)
	case *vm.BitInv:
		p.genNeg(p.FindLocalVarRegister(insn.Source), p.FindLocalVarRegister(insn.Target))
	case *vm.PreIncDec:
		p.synthPreIncDec(insn)
	case *vm.LoadObj:
		p.LoadObj(insn)
	case *vm.MemberRead:
		p.synthMemberAccess(insn, insn.Label, insn.Target, false)
	case *vm.MemberWrite:
		p.synthMemberAccess(insn, insn.Label, insn.Source, true)
	case *vm.ArrayRead:
		p.synthArrayAccess(p.GetObjByReg(insn.Object), insn.Index, insn.Target, false)
	case *vm.ArrayWrite:
		p.synthArrayAccess(p.GetObjByReg(insn.Object), insn.Index, insn.Source, true)
	case *vm.MemoryRead:
		p.synthMemoryAccess(insn.Index, insn.Target, false)
	case *vm.MemoryWrite:
		p.synthMemoryAccess(insn.Index, insn.Source, true)
	case *vm.ChannelRead:
		p.synthChannelAccess(p.GetObjByReg(insn.Object), insn.Target, false)
	case *vm.ChannelWrite:
		p.synthChannelAccess(p.GetObjByReg(insn.Object), insn.Source, true)
	case *vm.Funcall:
		p.synthFuncall(insn)
	case *vm.FuncallDone:
		p.synthFuncallDone(insn)
	case *vm.If:
		p.synthIf(insn)
	case *vm.Goto:
		sw := p.AllocState()
		sw.Insn = insn
	default:
		panic("unknown instruction encountered")
	}
}

func (p *MethodSynth) synthNum(insn *vm.Num) {
	src := p.method.Register(insn.Source)
	//
	if src == nil || src.Kind != vm.NUM {
		panic(fmt.Sprintf("num from non-numeric register %d", insn.Source))
	}
	//
	p.localRegs[insn.Target] = iroha.AllocConstNum(p.tab, src.Width, src.Initial)
}

func (p *MethodSynth) synthAssign(insn *vm.Assign) {
	lhs := p.FindLocalVarRegister(insn.Target)
	rhs := p.FindLocalVarRegister(insn.Source)
	sw := p.AllocState()
	assign := iroha.NewInsn(p.res.AssignResource())
	assign.Inputs = []*iroha.Register{rhs}
	assign.Outputs = []*iroha.Register{lhs}
	sw.State.Add(assign)
}

// Binary operators are implemented by the resource classes below.  Less-than
// swaps its operands to use greater-than, whilst the remaining comparisons
// additionally negate the result.
func (p *MethodSynth) synthBinOp(insn *vm.BinOp) {
	var (
		vt  = p.getValueType(insn)
		res = p.res.GetOpResource(binOpClass(insn.Op), vt)
		lhs = p.FindLocalVarRegister(insn.Left)
		rhs = p.FindLocalVarRegister(insn.Right)
	)
	//
	if insn.Op == vm.LT || insn.Op == vm.GTE {
		lhs, rhs = rhs, lhs
	}
	//
	op := iroha.NewInsn(res)
	op.Inputs = []*iroha.Register{lhs, rhs}
	sw := p.AllocState()
	dst := p.FindLocalVarRegister(insn.Target)
	//
	switch insn.Op {
	case vm.LTE, vm.GTE, vm.NE:
		tmp := p.thread.AllocRegister("t_", iroha.ValueType{})
		op.Outputs = []*iroha.Register{tmp}
		p.genNeg(tmp, dst)
	default:
		op.Outputs = []*iroha.Register{dst}
	}
	//
	sw.State.Add(op)
}

// Determine the operand type of a binary operator.  Comparisons take their
// type from the operands, whilst other operators take it from the result.
func (p *MethodSynth) getValueType(insn *vm.BinOp) iroha.ValueType {
	var id = insn.Target
	//
	if insn.Op.IsComparison() {
		id = insn.Left
	}
	//
	if reg := p.method.Register(id); reg != nil && reg.Kind == vm.NUM {
		return iroha.ValueType{Width: reg.Width}
	}
	//
	return iroha.ValueType{}
}

func binOpClass(op vm.BinaryOp) string {
	switch op {
	case vm.ADD:
		return iroha.ADD
	case vm.SUB:
		return iroha.SUB
	case vm.MUL:
		return iroha.MUL
	case vm.EQ, vm.NE:
		return iroha.EQ
	case vm.GT, vm.LT, vm.GTE, vm.LTE:
		return iroha.GT
	case vm.AND, vm.LAND:
		return iroha.AND
	case vm.OR, vm.LOR:
		return iroha.OR
	case vm.XOR:
		return iroha.XOR
	}
	//
	panic(fmt.Sprintf("unknown binary operator %s", op.String()))
}

func (p *MethodSynth) synthShift(insn *vm.Shift) {
	var (
		amount  = p.constRegister(insn.Amount, "shift amount")
		src     = p.FindLocalVarRegister(insn.Source)
		res     = p.res.GetOpResource(iroha.SHIFT, iroha.ValueType{})
		operand = iroha.OPERAND_LEFT
	)
	//
	if insn.Right {
		operand = iroha.OPERAND_RIGHT
	}
	//
	sw := p.AllocState()
	shift := iroha.NewInsn(res)
	shift.Operand = operand
	shift.Inputs = []*iroha.Register{src, iroha.AllocConstNum(p.tab, 32, amount)}
	shift.Outputs = []*iroha.Register{p.FindLocalVarRegister(insn.Target)}
	sw.State.Add(shift)
}

func (p *MethodSynth) synthConcat(insn *vm.Concat) {
	lhs := p.FindLocalVarRegister(insn.Left)
	rhs := p.FindLocalVarRegister(insn.Right)
	sw := p.AllocState()
	concat := iroha.NewInsn(p.res.GetOpResource(iroha.BIT_CONCAT, iroha.ValueType{}))
	concat.Inputs = []*iroha.Register{lhs, rhs}
	concat.Outputs = []*iroha.Register{p.FindLocalVarRegister(insn.Target)}
	sw.State.Add(concat)
}

func (p *MethodSynth) synthBitRange(insn *vm.BitRange) {
	var (
		msb = p.constRegister(insn.Msb, "bit range msb")
		lsb = p.constRegister(insn.Lsb, "bit range lsb")
		src = p.FindLocalVarRegister(insn.Source)
		res = p.res.GetOpResource(iroha.BIT_SEL, iroha.ValueType{})
	)
	//
	sw := p.AllocState()
	sel := iroha.NewInsn(res)
	sel.Inputs = []*iroha.Register{src, iroha.AllocConstNum(p.tab, 32, msb), iroha.AllocConstNum(p.tab, 32, lsb)}
	sel.Outputs = []*iroha.Register{p.FindLocalVarRegister(insn.Target)}
	sw.State.Add(sel)
}

func (p *MethodSynth) synthPreIncDec(insn *vm.PreIncDec) {
	var (
		class = iroha.ADD
		vt    iroha.ValueType
	)
	//
	if insn.Decrement {
		class = iroha.SUB
	}
	//
	if reg := p.method.Register(insn.Operand); reg != nil {
		vt.Width = reg.Width
	}
	//
	reg := p.FindLocalVarRegister(insn.Operand)
	sw := p.AllocState()
	op := iroha.NewInsn(p.res.GetOpResource(class, vt))
	op.Inputs = []*iroha.Register{reg, iroha.AllocConstNum(p.tab, vt.Width, 1)}
	op.Outputs = []*iroha.Register{reg}
	sw.State.Add(op)
}

// Emit a state which negates a given register into another.
func (p *MethodSynth) genNeg(src *iroha.Register, dst *iroha.Register) {
	sw := p.AllocState()
	inv := iroha.NewInsn(p.res.GetOpResource(iroha.BIT_INV, iroha.ValueType{}))
	inv.Inputs = []*iroha.Register{src}
	inv.Outputs = []*iroha.Register{dst}
	sw.State.Add(inv)
}

// Member accesses are lowered according to the kind of member.  Constant
// members become constant registers, object members need nothing (since the
// walker binds them), whilst other members are either held in a register of
// this thread, or in a shared register when accessed by several threads.
func (p *MethodSynth) synthMemberAccess(insn vm.Insn, label string, reg vm.RegisterId, write bool) {
	owner := p.MaybeLoadMemberObject(insn)
	value, ok := owner.Lookup(label)
	//
	switch {
	case !ok:
		p.fail(fmt.Errorf("member not found: %s.%s", owner.Name, label))
	case value.Kind == vm.OBJECT:
		if write {
			panic(fmt.Sprintf("write to object member %s.%s", owner.Name, label))
		}
	case value.Kind == vm.METHOD:
		panic(fmt.Sprintf("access to method member %s.%s", owner.Name, label))
	case value.Const:
		if write {
			panic(fmt.Sprintf("write to constant member %s.%s", owner.Name, label))
		}
		//
		p.localRegs[reg] = iroha.AllocConstNum(p.tab, valueWidth(value), value.Num)
	case p.owners.GetBySlotName(owner.Id(), label).NumAccessors() > 1:
		p.synthMemberSharedRegAccess(SharedKey{owner.Id(), label}, value, reg, write)
	default:
		p.synthMemberRegAccess(SharedKey{owner.Id(), label}, value, reg, write)
	}
}

func (p *MethodSynth) synthMemberRegAccess(key SharedKey, value vm.Value, reg vm.RegisterId, write bool) {
	var (
		member = p.thread.MemberRegister(key, value)
		local  = p.FindLocalVarRegister(reg)
		assign = iroha.NewInsn(p.res.AssignResource())
	)
	//
	if write {
		assign.Inputs = []*iroha.Register{local}
		assign.Outputs = []*iroha.Register{member}
	} else {
		assign.Inputs = []*iroha.Register{member}
		assign.Outputs = []*iroha.Register{local}
	}
	//
	sw := p.AllocState()
	sw.State.Add(assign)
}

func (p *MethodSynth) synthMemberSharedRegAccess(key SharedKey, value vm.Value, reg vm.RegisterId, write bool) {
	var (
		ownership = p.owners.GetBySlotName(key.Object, key.Member)
		res       *iroha.Resource
	)
	//
	if ownership.IsOwner(p.thread.Id()) {
		res = p.res.GetMemberSharedReg(key, true, write)
		res.Params.SetWidth(valueWidth(value))
		p.linker.AddOwnerResource(key, res)
	} else {
		res = p.res.GetMemberSharedReg(key, false, write)
		p.linker.AddAccessorResource(key, res)
	}
	//
	access := iroha.NewInsn(res)
	//
	if write {
		access.Inputs = []*iroha.Register{p.FindLocalVarRegister(reg)}
	} else {
		access.Outputs = []*iroha.Register{p.FindLocalVarRegister(reg)}
	}
	//
	sw := p.AllocState()
	sw.State.Add(access)
}

// Arrays accessed by a single thread are implemented within that thread's
// table.  Arrays accessed by several threads, or transferred over AXI, are
// implemented as shared memories owned by one thread.
func (p *MethodSynth) synthArrayAccess(array *vm.Object, index vm.RegisterId, reg vm.RegisterId, write bool) {
	if array == nil || !array.IsIntArray() {
		panic(fmt.Sprintf("array access on non-array in %s.%s", p.obj.Name, p.method.Name))
	}
	//
	var (
		ownership = p.owners.GetByObj(array.Id())
		key       = SharedKey{array.Id(), ""}
		res       *iroha.Resource
	)
	//
	switch {
	case ownership.NumAccessors() < 2 && !ownership.HasAxiCtrl():
		res = p.res.GetInternalArrayResource(array)
	case ownership.IsOwner(p.thread.Id()):
		res = p.res.GetSharedArray(array, true, false)
		p.linker.AddOwnerResource(key, res)
	default:
		res = p.res.GetSharedArray(array, false, write)
		p.linker.AddAccessorResource(key, res)
	}
	//
	p.emitArrayInsn(res, index, reg, write)
}

func (p *MethodSynth) synthMemoryAccess(index vm.RegisterId, reg vm.RegisterId, write bool) {
	p.emitArrayInsn(p.res.GetExternalArrayResource(), index, reg, write)
}

func (p *MethodSynth) emitArrayInsn(res *iroha.Resource, index vm.RegisterId, reg vm.RegisterId, write bool) {
	access := iroha.NewInsn(res)
	access.Inputs = []*iroha.Register{p.FindLocalVarRegister(index)}
	//
	if write {
		access.Operand = iroha.OPERAND_WRITE
		access.Inputs = append(access.Inputs, p.FindLocalVarRegister(reg))
	} else {
		access.Operand = iroha.OPERAND_READ
		access.Outputs = []*iroha.Register{p.FindLocalVarRegister(reg)}
	}
	//
	sw := p.AllocState()
	sw.State.Add(access)
}

func (p *MethodSynth) synthChannelAccess(channel *vm.Object, reg vm.RegisterId, write bool) {
	if channel == nil || !channel.IsChannel() {
		panic(fmt.Sprintf("channel access on non-channel in %s.%s", p.obj.Name, p.method.Name))
	}
	//
	res := p.res.GetChannelResource(channel, write, channel.Width)
	access := iroha.NewInsn(res)
	//
	if write {
		access.Inputs = []*iroha.Register{p.FindLocalVarRegister(reg)}
	} else {
		access.Outputs = []*iroha.Register{p.FindLocalVarRegister(reg)}
	}
	//
	sw := p.AllocState()
	sw.State.Add(access)
	p.thread.Channels().AddChannel(channel, res)
}

// Calls to built-in native methods are implemented directly.  Other calls
// produce a state holding a placeholder instruction with the arguments, to
// which the return values are added by the subsequent FuncallDone.
func (p *MethodSynth) synthFuncall(insn *vm.Funcall) {
	if p.IsNativeFuncall(insn) {
		om := NewObjectMethod(p, insn)
		om.Synth()
		//
		return
	}
	//
	callee := p.GetCalleeObject(insn)
	//
	if callee == nil {
		panic(fmt.Sprintf("unresolved callee of %s in %s.%s", insn.Label, p.obj.Name, p.method.Name))
	}
	//
	sw := p.AllocState()
	sw.CalleeName = insn.Label
	sw.CalleeObj = callee
	//
	if p.IsSubObjCall(insn) {
		sw.IsSubObjCall = true
		sw.ObjName = callee.Name
		//
		if names := p.vm.LookupMemberNames(p.obj.Id(), callee.Id()); len(names) > 0 {
			sw.ObjName = names[0]
		}
	}
	//
	call := iroha.NewInsn(p.res.PseudoResource())
	//
	for _, arg := range insn.Args {
		call.Inputs = append(call.Inputs, p.FindLocalVarRegister(arg))
	}
	//
	sw.State.Add(call)
}

func (p *MethodSynth) synthFuncallDone(insn *vm.FuncallDone) {
	sw := p.context.LastState()
	//
	if sw == nil || len(sw.State.Insns) != 1 {
		panic(fmt.Sprintf("funcall_done without preceding funcall in %s.%s", p.obj.Name, p.method.Name))
	}
	//
	call := sw.State.Insns[0]
	//
	for _, ret := range insn.Returns {
		call.Outputs = append(call.Outputs, p.FindLocalVarRegister(ret))
	}
}

func (p *MethodSynth) synthIf(insn *vm.If) {
	sw := p.AllocState()
	sw.Insn = insn
	tr := iroha.GetTransitionInsn(sw.State)
	tr.Inputs = []*iroha.Register{p.FindLocalVarRegister(insn.Cond)}
}

// Return the value of a register which must hold a constant.
func (p *MethodSynth) constRegister(id vm.RegisterId, what string) int64 {
	if reg := p.method.Register(id); reg != nil && reg.Const {
		return reg.Initial
	}
	//
	panic(fmt.Sprintf("%s must be constant in %s.%s", what, p.obj.Name, p.method.Name))
}

func valueWidth(value vm.Value) uint {
	if value.Kind == vm.NUM {
		return value.Width
	}
	//
	return 0
}
