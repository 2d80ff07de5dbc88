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
package loader

import (
	"github.com/robtaylor/karuta/pkg/sexp"
	"github.com/robtaylor/karuta/pkg/vm"
)

var binaryOps = map[string]vm.BinaryOp{
	"add":  vm.ADD,
	"sub":  vm.SUB,
	"mul":  vm.MUL,
	"eq":   vm.EQ,
	"ne":   vm.NE,
	"gt":   vm.GT,
	"lt":   vm.LT,
	"gte":  vm.GTE,
	"lte":  vm.LTE,
	"and":  vm.AND,
	"or":   vm.OR,
	"xor":  vm.XOR,
	"land": vm.LAND,
	"lor":  vm.LOR,
}

func (p *loader) addInsnRules() {
	t := p.insns
	//
	t.AddArityRule("nop", 0, func(*sexp.List) (vm.Insn, error) { return &vm.Nop{}, nil })
	t.AddArityRule("goto", 1, p.translateGoto)
	t.AddArityRule("if", 2, p.translateIf)
	t.AddArityRule("num", 2, p.translateNum)
	t.AddArityRule("assign", 2, p.translateAssign)
	//
	for name, op := range binaryOps {
		t.AddArityRule(name, 3, p.binaryOp(op))
	}
	//
	t.AddArityRule("shl", 3, p.shift(false))
	t.AddArityRule("shr", 3, p.shift(true))
	t.AddArityRule("concat", 3, p.translateConcat)
	t.AddArityRule("inc", 1, p.incDec(false))
	t.AddArityRule("dec", 1, p.incDec(true))
	t.AddArityRule("bit-range", 4, p.translateBitRange)
	t.AddArityRule("not", 2, p.bitInv(false))
	t.AddArityRule("lnot", 2, p.bitInv(true))
	t.AddListRule("load-obj", p.translateLoadObj)
	t.AddArityRule("member-read", 3, p.translateMemberRead)
	t.AddArityRule("member-write", 3, p.translateMemberWrite)
	t.AddArityRule("array-read", 3, p.translateArrayRead)
	t.AddArityRule("array-write", 3, p.translateArrayWrite)
	t.AddArityRule("memory-read", 2, p.translateMemoryRead)
	t.AddArityRule("memory-write", 2, p.translateMemoryWrite)
	t.AddArityRule("channel-read", 2, p.translateChannelRead)
	t.AddArityRule("channel-write", 2, p.translateChannelWrite)
	t.AddListRule("call", p.translateCall)
	t.AddListRule("call-done", p.translateCallDone)
}

// (goto TARGET)
func (p *loader) translateGoto(list *sexp.List) (vm.Insn, error) {
	target, err := p.number(list, 1, 32)
	return &vm.Goto{Target: uint(target)}, err
}

// (if COND TARGET)
func (p *loader) translateIf(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 1)
	//
	if err != nil {
		return nil, err
	}
	//
	target, err := p.number(list, 2, 32)
	//
	return &vm.If{Cond: regs[0], Target: uint(target)}, err
}

// (num DST CONST)
func (p *loader) translateNum(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.Num{Target: regs[0], Source: regs[1]}, nil
}

// (assign DST SRC)
func (p *loader) translateAssign(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.Assign{Target: regs[0], Source: regs[1]}, nil
}

// (OP DST LHS RHS)
func (p *loader) binaryOp(op vm.BinaryOp) sexp.ListRule[vm.Insn] {
	return func(list *sexp.List) (vm.Insn, error) {
		regs, err := p.registers(list, 1, 3)
		//
		if err != nil {
			return nil, err
		}
		//
		return &vm.BinOp{Op: op, Target: regs[0], Left: regs[1], Right: regs[2]}, nil
	}
}

// (shl DST SRC AMOUNT) or (shr DST SRC AMOUNT)
func (p *loader) shift(right bool) sexp.ListRule[vm.Insn] {
	return func(list *sexp.List) (vm.Insn, error) {
		regs, err := p.registers(list, 1, 3)
		//
		if err != nil {
			return nil, err
		}
		//
		return &vm.Shift{Right: right, Target: regs[0], Source: regs[1], Amount: regs[2]}, nil
	}
}

// (concat DST LHS RHS)
func (p *loader) translateConcat(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 3)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.Concat{Target: regs[0], Left: regs[1], Right: regs[2]}, nil
}

// (inc REG) or (dec REG)
func (p *loader) incDec(decrement bool) sexp.ListRule[vm.Insn] {
	return func(list *sexp.List) (vm.Insn, error) {
		regs, err := p.registers(list, 1, 1)
		//
		if err != nil {
			return nil, err
		}
		//
		return &vm.PreIncDec{Decrement: decrement, Operand: regs[0]}, nil
	}
}

// (bit-range DST SRC MSB LSB)
func (p *loader) translateBitRange(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 4)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.BitRange{Target: regs[0], Source: regs[1], Msb: regs[2], Lsb: regs[3]}, nil
}

// (not DST SRC) or (lnot DST SRC)
func (p *loader) bitInv(logical bool) sexp.ListRule[vm.Insn] {
	return func(list *sexp.List) (vm.Insn, error) {
		regs, err := p.registers(list, 1, 2)
		//
		if err != nil {
			return nil, err
		}
		//
		return &vm.BitInv{Logical: logical, Target: regs[0], Source: regs[1]}, nil
	}
}

// (load-obj DST OBJ [LABEL])
func (p *loader) translateLoadObj(list *sexp.List) (vm.Insn, error) {
	if list.Len() != 3 && list.Len() != 4 {
		return nil, p.errorf(list, "expected (load-obj DST OBJ [LABEL])")
	}
	//
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	insn := &vm.LoadObj{Target: regs[0], Object: regs[1]}
	//
	if list.Len() == 4 {
		insn.Label, err = p.symbol(list, 3)
	}
	//
	return insn, err
}

// (member-read DST OBJ LABEL)
func (p *loader) translateMemberRead(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	label, err := p.symbol(list, 3)
	//
	return &vm.MemberRead{Target: regs[0], Object: regs[1], Label: label}, err
}

// (member-write OBJ LABEL SRC)
func (p *loader) translateMemberWrite(list *sexp.List) (vm.Insn, error) {
	obj, err := p.registers(list, 1, 1)
	//
	if err != nil {
		return nil, err
	}
	//
	label, err := p.symbol(list, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	src, err := p.registers(list, 3, 1)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.MemberWrite{Object: obj[0], Label: label, Source: src[0]}, nil
}

// (array-read DST OBJ INDEX)
func (p *loader) translateArrayRead(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 3)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.ArrayRead{Target: regs[0], Object: regs[1], Index: regs[2]}, nil
}

// (array-write OBJ INDEX SRC)
func (p *loader) translateArrayWrite(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 3)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.ArrayWrite{Object: regs[0], Index: regs[1], Source: regs[2]}, nil
}

// (memory-read DST INDEX)
func (p *loader) translateMemoryRead(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.MemoryRead{Target: regs[0], Index: regs[1]}, nil
}

// (memory-write INDEX SRC)
func (p *loader) translateMemoryWrite(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.MemoryWrite{Index: regs[0], Source: regs[1]}, nil
}

// (channel-read DST OBJ)
func (p *loader) translateChannelRead(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.ChannelRead{Target: regs[0], Object: regs[1]}, nil
}

// (channel-write OBJ SRC)
func (p *loader) translateChannelWrite(list *sexp.List) (vm.Insn, error) {
	regs, err := p.registers(list, 1, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	return &vm.ChannelWrite{Object: regs[0], Source: regs[1]}, nil
}

// (call OBJ LABEL ARG*)
func (p *loader) translateCall(list *sexp.List) (vm.Insn, error) {
	if list.Len() < 3 {
		return nil, p.errorf(list, "expected (call OBJ LABEL ARG*)")
	}
	//
	obj, err := p.registers(list, 1, 1)
	//
	if err != nil {
		return nil, err
	}
	//
	label, err := p.symbol(list, 2)
	//
	if err != nil {
		return nil, err
	}
	//
	args, err := p.registers(list, 3, list.Len()-3)
	//
	return &vm.Funcall{Object: obj[0], Label: label, Args: args}, err
}

// (call-done RET*)
func (p *loader) translateCallDone(list *sexp.List) (vm.Insn, error) {
	rets, err := p.registers(list, 1, list.Len()-1)
	return &vm.FuncallDone{Returns: rets}, err
}

// Resolve n consecutive register names, starting from a given position.
func (p *loader) registers(list *sexp.List, start int, n int) ([]vm.RegisterId, error) {
	var regs []vm.RegisterId
	//
	for i := start; i < start+n; i++ {
		name, err := p.symbol(list, i)
		//
		if err != nil {
			return nil, err
		} else if name == THIS {
			regs = append(regs, vm.UNUSED_REGISTER)
			continue
		}
		//
		id, ok := p.regs[name]
		//
		if !ok {
			return nil, p.errorf(list.Elements[i], "unknown register %s", name)
		}
		//
		regs = append(regs, id)
	}
	//
	return regs, nil
}
