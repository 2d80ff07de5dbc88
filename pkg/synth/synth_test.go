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
	"strings"
	"testing"

	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/util/assert"
	"github.com/robtaylor/karuta/pkg/vm"
)

const this = vm.UNUSED_REGISTER

// ============================================================================
// Control flow
// ============================================================================

func Test_Jumps_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{{Name: "c", Kind: vm.ENUM_ITEM}, vm.NewNumRegister("x", 32), vm.NewConstRegister("one", 32, 1)},
		Code: []vm.Insn{
			&vm.If{Cond: 0, Target: 3},
			&vm.Assign{Target: 1, Source: 2},
			&vm.Goto{Target: 0},
			&vm.Nop{},
		},
	})
	//
	design := check_Synth(t, machine, top)
	tab := findTable(t, design, "main")
	//
	assert.Equal(t, 5, len(tab.States))
	assert.True(t, tab.Initial == tab.States[0])
	// Branches jump to their target, or fall through
	assert.Equal(t, []int{3, 1}, targetsOf(tab, 0))
	assert.Equal(t, []int{2}, targetsOf(tab, 1))
	assert.Equal(t, []int{0}, targetsOf(tab, 2))
	assert.Equal(t, []int{4}, targetsOf(tab, 3))
	assert.True(t, iroha.FindTransitionInsn(tab.States[4]) == nil)
	// Branch condition
	tr := iroha.FindTransitionInsn(tab.States[0])
	assert.Equal(t, 1, len(tr.Inputs))
	assert.Equal(t, uint(0), tr.Inputs[0].Type.Width)
}

func Test_Jumps_02(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name: "main",
		Code: []vm.Insn{&vm.Goto{Target: 2}, &vm.Nop{}},
	})
	// Jumps may target the end of the method
	design := check_Synth(t, machine, top)
	tab := findTable(t, design, "main")
	assert.Equal(t, 3, len(tab.States))
	assert.Equal(t, []int{2}, targetsOf(tab, 0))
	assert.Equal(t, []int{2}, targetsOf(tab, 1))
}

func Test_Jumps_03(t *testing.T) {
	// if (x > 0) { y = 1 } else { y = 2 }
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name: "main",
		Registers: []vm.Register{vm.NewNumRegister("x", 32), vm.NewConstRegister("zero", 32, 0),
			{Name: "c", Kind: vm.ENUM_ITEM}, vm.NewNumRegister("y", 32), vm.NewConstRegister("one", 32, 1),
			vm.NewConstRegister("two", 32, 2)},
		Code: []vm.Insn{
			&vm.BinOp{Op: vm.GT, Target: 2, Left: 0, Right: 1},
			&vm.If{Cond: 2, Target: 4},
			&vm.Assign{Target: 3, Source: 5},
			&vm.Goto{Target: 5},
			&vm.Assign{Target: 3, Source: 4},
			&vm.Nop{},
		},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	//
	assert.Equal(t, 7, len(tab.States))
	assert.Equal(t, []int{1}, targetsOf(tab, 0))
	assert.Equal(t, []int{4, 2}, targetsOf(tab, 1))
	assert.Equal(t, []int{3}, targetsOf(tab, 2))
	assert.Equal(t, []int{5}, targetsOf(tab, 3))
	assert.Equal(t, []int{5}, targetsOf(tab, 4))
	assert.Equal(t, []int{6}, targetsOf(tab, 5))
	assert.True(t, iroha.FindTransitionInsn(tab.States[6]) == nil)
	// Branch on the comparison result
	gt := opsOf(tab.States[0])[0]
	tr := iroha.FindTransitionInsn(tab.States[1])
	assert.Equal(t, iroha.GT, gt.Resource.Class)
	assert.Equal(t, 2, len(tr.Targets))
	assert.True(t, tr.Inputs[0] == gt.Outputs[0])
	// Both arms write the same register
	taken := opsOf(tab.States[4])[0]
	fallthru := opsOf(tab.States[2])[0]
	assert.Equal(t, int64(1), *taken.Inputs[0].Initial)
	assert.Equal(t, int64(2), *fallthru.Inputs[0].Initial)
	assert.True(t, taken.Outputs[0] == fallthru.Outputs[0])
	assert.Equal(t, 0, len(opsOf(tab.States[3])))
	assert.Equal(t, 0, len(opsOf(tab.States[5])))
}

func Test_Straight_01(t *testing.T) {
	// a = 3; b = a + 1; return b
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:    "main",
		Returns: []vm.VarDecl{{Type: vm.TYPE_INT, Width: 32}},
		Registers: []vm.Register{vm.NewNumRegister("b", 32), vm.NewNumRegister("a", 32), vm.NewNumRegister("k", 32),
			vm.NewConstRegister("three", 32, 3), vm.NewConstRegister("one", 32, 1)},
		Code: []vm.Insn{
			&vm.Num{Target: 2, Source: 3},
			&vm.Assign{Target: 1, Source: 2},
			&vm.BinOp{Op: vm.ADD, Target: 0, Left: 1, Right: 4},
		},
	})
	//
	ds := NewDesignSynth(machine, top, DefaultOptions())
	design, err := ds.Synth()
	assert.NoError(t, err)
	//
	tab := findTable(t, design, "main")
	entry := ds.Threads()[0].MethodContext(MethodKey{top.Id(), "main"}).MethodInsn
	// Constant materialisation needs no state of its own
	assert.Equal(t, 4, len(tab.States))
	assert.Equal(t, 0, len(opsOf(tab.States[0])))
	assert.Equal(t, []int{1}, targetsOf(tab, 0))
	assert.Equal(t, []int{2}, targetsOf(tab, 1))
	assert.Equal(t, []int{3}, targetsOf(tab, 2))
	assert.True(t, iroha.FindTransitionInsn(tab.States[3]) == nil)
	//
	assign := opsOf(tab.States[1])[0]
	assert.Equal(t, iroha.ASSIGN, assign.Resource.Class)
	assert.True(t, assign.Inputs[0].IsConst())
	assert.Equal(t, int64(3), *assign.Inputs[0].Initial)
	//
	add := opsOf(tab.States[2])[0]
	assert.Equal(t, iroha.ADD, add.Resource.Class)
	assert.True(t, add.Inputs[0] == assign.Outputs[0])
	assert.Equal(t, int64(1), *add.Inputs[1].Initial)
	// Sum lands in the return register
	assert.Equal(t, 1, len(entry.Outputs))
	assert.True(t, add.Outputs[0] == entry.Outputs[0])
}

// ============================================================================
// Operators
// ============================================================================

func Test_Compare_01(t *testing.T) {
	check_Compare(t, vm.GT, iroha.GT, false, false)
}

func Test_Compare_02(t *testing.T) {
	check_Compare(t, vm.LT, iroha.GT, true, false)
}

func Test_Compare_03(t *testing.T) {
	check_Compare(t, vm.GTE, iroha.GT, true, true)
}

func Test_Compare_04(t *testing.T) {
	check_Compare(t, vm.LTE, iroha.GT, false, true)
}

func Test_Compare_05(t *testing.T) {
	check_Compare(t, vm.EQ, iroha.EQ, false, false)
}

func Test_Compare_06(t *testing.T) {
	check_Compare(t, vm.NE, iroha.EQ, false, true)
}

func Test_Arith_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{vm.NewNumRegister("x", 16), vm.NewConstRegister("k", 16, 3)},
		Code: []vm.Insn{
			&vm.BinOp{Op: vm.ADD, Target: 0, Left: 0, Right: 1},
			&vm.PreIncDec{Decrement: true, Operand: 0},
		},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	add := opsOf(tab.States[0])[0]
	sub := opsOf(tab.States[1])[0]
	//
	assert.Equal(t, iroha.ADD, add.Resource.Class)
	assert.Equal(t, []iroha.ValueType{{Width: 16}, {Width: 16}}, add.Resource.InputTypes)
	assert.Equal(t, iroha.SUB, sub.Resource.Class)
	assert.True(t, sub.Inputs[0] == sub.Outputs[0])
	assert.Equal(t, int64(1), *sub.Inputs[1].Initial)
}

func Test_Shift_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{vm.NewNumRegister("x", 32), vm.NewConstRegister("n", 32, 4)},
		Code:      []vm.Insn{&vm.Shift{Right: true, Target: 0, Source: 0, Amount: 1}},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	shift := opsOf(tab.States[0])[0]
	//
	assert.Equal(t, iroha.SHIFT, shift.Resource.Class)
	assert.Equal(t, iroha.OPERAND_RIGHT, shift.Operand)
	assert.Equal(t, 2, len(shift.Inputs))
	assert.True(t, shift.Inputs[1].IsConst())
	assert.Equal(t, int64(4), *shift.Inputs[1].Initial)
}

func Test_Shift_02(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{vm.NewNumRegister("x", 32), vm.NewNumRegister("n", 32)},
		Code:      []vm.Insn{&vm.Shift{Target: 0, Source: 0, Amount: 1}},
	})
	// Shift amounts must be constant
	assert.Panics(t, func() { _, _ = NewDesignSynth(machine, top, DefaultOptions()).Synth() })
}

func Test_BitRange_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name: "main",
		Registers: []vm.Register{vm.NewNumRegister("x", 32), vm.NewNumRegister("y", 4),
			vm.NewConstRegister("msb", 32, 7), vm.NewConstRegister("lsb", 32, 4)},
		Code: []vm.Insn{&vm.BitRange{Target: 1, Source: 0, Msb: 2, Lsb: 3}},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	sel := opsOf(tab.States[0])[0]
	//
	assert.Equal(t, iroha.BIT_SEL, sel.Resource.Class)
	assert.Equal(t, int64(7), *sel.Inputs[1].Initial)
	assert.Equal(t, int64(4), *sel.Inputs[2].Initial)
}

// ============================================================================
// Method entry
// ============================================================================

func Test_Entry_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{Name: "main"})
	//
	ds := NewDesignSynth(machine, top, DefaultOptions())
	_, err := ds.Synth()
	assert.NoError(t, err)
	// Methods without return values have a dummy output
	ctx := ds.Threads()[0].MethodContext(MethodKey{top.Id(), "main"})
	assert.Equal(t, 1, len(ctx.MethodInsn.Outputs))
	assert.Equal(t, "r__0", ctx.MethodInsn.Outputs[0].Name)
	assert.Equal(t, iroha.OPERAND_METHOD_ENTRY, ctx.MethodInsn.Operand)
}

func Test_Entry_02(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Args:      []vm.VarDecl{{Name: "o", Type: vm.TYPE_OBJECT}},
		Registers: []vm.Register{{Name: "o", Kind: vm.OBJECT}},
	})
	//
	_, err := NewDesignSynth(machine, top, DefaultOptions()).Synth()
	assert.ErrorContains(t, err, "unsupported type object")
	assert.ErrorContains(t, err, "failed to synthesize thread")
}

func Test_Entry_03(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Args:      []vm.VarDecl{{Name: "a", Type: vm.TYPE_INT, Width: 8}, {Name: "b", Type: vm.TYPE_BOOL}},
		Returns:   []vm.VarDecl{{Type: vm.TYPE_INT, Width: 8}},
		Registers: []vm.Register{vm.NewNumRegister("a", 8), {Name: "b", Kind: vm.ENUM_ITEM}, vm.NewNumRegister("r", 8)},
	})
	//
	ds := NewDesignSynth(machine, top, DefaultOptions())
	_, err := ds.Synth()
	assert.NoError(t, err)
	//
	entry := ds.Threads()[0].MethodContext(MethodKey{top.Id(), "main"}).MethodInsn
	assert.Equal(t, "a_0", entry.Inputs[0].Name)
	assert.Equal(t, uint(8), entry.Inputs[0].Type.Width)
	assert.Equal(t, "b_1", entry.Inputs[1].Name)
	assert.Equal(t, uint(0), entry.Inputs[1].Type.Width)
	assert.Equal(t, "r2_main_2", entry.Outputs[0].Name)
}

// ============================================================================
// Members
// ============================================================================

func Test_Member_01(t *testing.T) {
	machine, top := newTop()
	top.Set("x", vm.NewNumValue(16, 5))
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{vm.NewNumRegister("v", 16)},
		Code: []vm.Insn{
			&vm.MemberRead{Target: 0, Object: this, Label: "x"},
			&vm.MemberWrite{Object: this, Label: "x", Source: 0},
		},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	load := opsOf(tab.States[0])[0]
	store := opsOf(tab.States[1])[0]
	// A single accessor keeps members in a register of its own
	member := load.Inputs[0]
	assert.True(t, strings.HasPrefix(member.Name, "m_x_"))
	assert.Equal(t, uint(16), member.Type.Width)
	assert.Equal(t, int64(5), *member.Initial)
	assert.True(t, store.Outputs[0] == member)
	assert.Equal(t, iroha.ASSIGN, store.Resource.Class)
}

func Test_Member_02(t *testing.T) {
	machine, top := newTop()
	top.Set("K", vm.NewEnumValue(2, true))
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{{Name: "k", Kind: vm.ENUM_ITEM}, {Name: "j", Kind: vm.ENUM_ITEM}},
		Code: []vm.Insn{
			&vm.MemberRead{Target: 0, Object: this, Label: "K"},
			&vm.Assign{Target: 1, Source: 0},
		},
	})
	// Constant members need no state of their own
	tab := findTable(t, check_Synth(t, machine, top), "main")
	assert.Equal(t, 3, len(tab.States))
	assign := opsOf(tab.States[1])[0]
	assert.True(t, assign.Inputs[0].IsConst())
	assert.Equal(t, int64(2), *assign.Inputs[0].Initial)
}

func Test_Member_03(t *testing.T) {
	machine, top := newTop()
	top.Set("x", vm.NewNumValue(32, 0))
	top.Threads = []vm.ThreadDecl{{Name: "t1", Method: "w"}, {Name: "t2", Method: "r"}}
	top.AddMethod(&vm.Method{
		Name:      "w",
		Registers: []vm.Register{vm.NewConstRegister("v", 32, 7)},
		Code:      []vm.Insn{&vm.MemberWrite{Object: this, Label: "x", Source: 0}},
	})
	top.AddMethod(&vm.Method{
		Name:      "r",
		Registers: []vm.Register{vm.NewNumRegister("v", 32)},
		Code:      []vm.Insn{&vm.MemberRead{Target: 0, Object: this, Label: "x"}},
	})
	//
	design := check_Synth(t, machine, top)
	t1 := findTable(t, design, "t1")
	t2 := findTable(t, design, "t2")
	// The writer owns the shared register
	owner := iroha.FindResourcesByClass(t1, iroha.SHARED_REG)
	reader := iroha.FindResourcesByClass(t2, iroha.SHARED_REG_READER)
	assert.Equal(t, 1, len(owner))
	assert.Equal(t, 1, len(reader))
	assert.Equal(t, uint(32), owner[0].Params.Width())
	assert.True(t, reader[0].Parent == owner[0])
	//
	member, _ := owner[0].Params.Get(iroha.PARAM_MEMBER)
	assert.Equal(t, "x", member)
}

// ============================================================================
// Arrays
// ============================================================================

func Test_Array_01(t *testing.T) {
	machine, top := newTop()
	buf := addArray(machine, top, "buf", 32, 16)
	top.Threads = []vm.ThreadDecl{{Name: "t1", Method: "w"}, {Name: "t2", Method: "r"}}
	top.AddMethod(&vm.Method{
		Name: "w",
		Registers: []vm.Register{{Name: "a", Kind: vm.OBJECT}, vm.NewConstRegister("i", 4, 0),
			vm.NewConstRegister("v", 32, 9)},
		Code: []vm.Insn{
			&vm.LoadObj{Target: 0, Object: this, Label: "buf"},
			&vm.ArrayWrite{Object: 0, Index: 1, Source: 2},
		},
	})
	top.AddMethod(&vm.Method{
		Name:      "r",
		Registers: []vm.Register{{Name: "a", Kind: vm.OBJECT}, vm.NewConstRegister("i", 4, 0), vm.NewNumRegister("v", 32)},
		Code: []vm.Insn{
			&vm.LoadObj{Target: 0, Object: this, Label: "buf"},
			&vm.ArrayRead{Target: 2, Object: 0, Index: 1},
		},
	})
	//
	design := check_Synth(t, machine, top)
	owner := iroha.FindResourcesByClass(findTable(t, design, "t1"), iroha.SHARED_MEMORY)
	reader := iroha.FindResourcesByClass(findTable(t, design, "t2"), iroha.SHARED_MEMORY_READER)
	//
	assert.Equal(t, 1, len(owner))
	assert.Equal(t, 1, len(reader))
	assert.True(t, reader[0].Parent == owner[0])
	assert.Equal(t, buf.AddressWidth(), owner[0].Array.AddressWidth)
	assert.Equal(t, uint(32), owner[0].Array.Data.Width)
}

func Test_Array_02(t *testing.T) {
	machine, top := newTop()
	addArray(machine, top, "buf", 8, 4)
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{{Name: "a", Kind: vm.OBJECT}, vm.NewConstRegister("i", 2, 1), vm.NewNumRegister("v", 8)},
		Code: []vm.Insn{
			&vm.LoadObj{Target: 0, Object: this, Label: "buf"},
			&vm.ArrayRead{Target: 2, Object: 0, Index: 1},
			&vm.MemoryWrite{Index: 1, Source: 2},
		},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	arrays := iroha.FindResourcesByClass(tab, iroha.ARRAY)
	// One internal array, and the external memory
	assert.Equal(t, 2, len(arrays))
	assert.False(t, arrays[0].Array.External)
	assert.True(t, arrays[1].Array.External)
	assert.Equal(t, 0, len(iroha.FindResourcesByClass(tab, iroha.SHARED_MEMORY)))
	//
	write := opsOf(tab.States[2])[0]
	assert.Equal(t, iroha.OPERAND_WRITE, write.Operand)
	assert.Equal(t, 2, len(write.Inputs))
}

func Test_Array_03(t *testing.T) {
	machine, top := newTop()
	buf := addArray(machine, top, "buf", 32, 16)
	buf.AxiMaster = true
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{{Name: "a", Kind: vm.OBJECT}, vm.NewConstRegister("addr", 32, 0)},
		Code: []vm.Insn{
			&vm.LoadObj{Target: 0, Object: this, Label: "buf"},
			&vm.Funcall{Object: 0, Label: vm.NATIVE_AXI_LOAD, Args: []vm.RegisterId{1}},
			&vm.FuncallDone{},
		},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	ports := iroha.FindResourcesByClass(tab, iroha.AXI_MASTER_PORT)
	//
	assert.Equal(t, 1, len(ports))
	assert.True(t, ports[0].Parent == nil)
	//
	load := opsOf(tab.States[1])[0]
	assert.True(t, load.Resource == ports[0])
	assert.Equal(t, iroha.OPERAND_READ, load.Operand)
}

func Test_Array_04(t *testing.T) {
	machine, top := newTop()
	buf := addArray(machine, top, "buf", 32, 16)
	buf.AxiMaster = true
	top.AddMethod(&vm.Method{
		Name: "main",
		Registers: []vm.Register{{Name: "a", Kind: vm.OBJECT}, vm.NewConstRegister("i", 4, 1),
			vm.NewNumRegister("v", 32), vm.NewConstRegister("addr", 32, 0)},
		Code: []vm.Insn{
			&vm.LoadObj{Target: 0, Object: this, Label: "buf"},
			&vm.Funcall{Object: 0, Label: vm.NATIVE_AXI_STORE, Args: []vm.RegisterId{3}},
			&vm.FuncallDone{},
			&vm.ArrayRead{Target: 2, Object: 0, Index: 1},
		},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	ports := iroha.FindResourcesByClass(tab, iroha.AXI_MASTER_PORT)
	memories := iroha.FindResourcesByClass(tab, iroha.SHARED_MEMORY)
	// Array is also accessed directly, so the port transfers the owner's memory
	assert.Equal(t, 1, len(ports))
	assert.Equal(t, 1, len(memories))
	assert.True(t, ports[0].Parent == memories[0])
	assert.Equal(t, 0, len(iroha.FindResourcesByClass(tab, iroha.ARRAY)))
}

// ============================================================================
// Unclaimed members
// ============================================================================

func Test_Unclaimed_01(t *testing.T) {
	machine, top := newTop()
	buf := addArray(machine, top, "buf", 32, 16)
	buf.AxiSlave = true
	top.AddMethod(&vm.Method{
		Name:       "in",
		Returns:    []vm.VarDecl{{Type: vm.TYPE_INT, Width: 4}},
		Registers:  []vm.Register{vm.NewNumRegister("r", 4)},
		Annotation: vm.Annotation{ExtInput: true, Port: "din"},
	})
	top.AddMethod(&vm.Method{Name: "main", Code: []vm.Insn{&vm.Nop{}}})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	ports := iroha.FindResourcesByClass(tab, iroha.AXI_SLAVE_PORT)
	inputs := iroha.FindResourcesByClass(tab, iroha.EXT_INPUT)
	//
	assert.Equal(t, 1, len(ports))
	assert.Equal(t, uint(4), ports[0].Array.AddressWidth)
	assert.Equal(t, 1, len(inputs))
	name, _ := inputs[0].Params.Get(iroha.PARAM_PORT_NAME)
	assert.Equal(t, "din", name)
	assert.Equal(t, uint(4), inputs[0].Params.Width())
}

func Test_ExtIO_01(t *testing.T) {
	machine, top := newExtOutputTop("main")
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	outputs := iroha.FindResourcesByClass(tab, iroha.EXT_OUTPUT)
	assert.Equal(t, 1, len(outputs))
	assert.Equal(t, uint(8), outputs[0].Params.Width())
	check_NoPseudo(t, tab)
}

func Test_ExtIO_02(t *testing.T) {
	machine, top := newExtOutputTop("t1", "t2")
	// External IO methods cannot be shared
	_, err := NewDesignSynth(machine, top, DefaultOptions()).Synth()
	assert.ErrorContains(t, err, "more than one thread")
}

// ============================================================================
// Calls
// ============================================================================

func Test_Inline_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{vm.NewConstRegister("k", 32, 3), vm.NewNumRegister("y", 32)},
		Code: []vm.Insn{
			&vm.Funcall{Object: this, Label: "f", Args: []vm.RegisterId{0}},
			&vm.FuncallDone{Returns: []vm.RegisterId{1}},
		},
	})
	top.AddMethod(&vm.Method{
		Name:      "f",
		Args:      []vm.VarDecl{{Name: "a", Type: vm.TYPE_INT, Width: 32}},
		Returns:   []vm.VarDecl{{Type: vm.TYPE_INT, Width: 32}},
		Registers: []vm.Register{vm.NewNumRegister("a", 32), vm.NewNumRegister("r", 32)},
		Code:      []vm.Insn{&vm.Assign{Target: 1, Source: 0}},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	// Caller states, followed by the inlined callee
	assert.Equal(t, 5, len(tab.States))
	assert.Equal(t, []int{3}, targetsOf(tab, 0))
	assert.Equal(t, []int{4}, targetsOf(tab, 3))
	assert.Equal(t, []int{1}, targetsOf(tab, 4))
	assert.Equal(t, []int{2}, targetsOf(tab, 1))
	check_NoPseudo(t, tab)
	// Argument passing
	arg := opsOf(tab.States[0])[0]
	assert.True(t, arg.Inputs[0].IsConst())
	assert.True(t, strings.HasPrefix(arg.Outputs[0].Name, "a_"))
	// Return value passing
	ret := opsOf(tab.States[4])[0]
	assert.True(t, strings.HasPrefix(ret.Inputs[0].Name, "r1_f_"))
	assert.True(t, strings.HasPrefix(ret.Outputs[0].Name, "r1_main_"))
}

func Test_Inline_02(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name: "main",
		Code: []vm.Insn{&vm.Funcall{Object: this, Label: "main"}, &vm.FuncallDone{}},
	})
	//
	_, err := NewDesignSynth(machine, top, DefaultOptions()).Synth()
	assert.ErrorContains(t, err, "recursive call of top.main")
}

func Test_SubModule_01(t *testing.T) {
	machine, top := newTop()
	sub := machine.NewObject("sub")
	top.Set("child", vm.NewObjectValue(sub.Id()))
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{{Name: "s", Kind: vm.OBJECT}, vm.NewConstRegister("k", 32, 5), vm.NewNumRegister("y", 32)},
		Code: []vm.Insn{
			&vm.LoadObj{Target: 0, Object: this, Label: "child"},
			&vm.Funcall{Object: 0, Label: "inc", Args: []vm.RegisterId{1}},
			&vm.FuncallDone{Returns: []vm.RegisterId{2}},
		},
	})
	sub.AddMethod(&vm.Method{
		Name:    "inc",
		Args:    []vm.VarDecl{{Name: "x", Type: vm.TYPE_INT, Width: 32}},
		Returns: []vm.VarDecl{{Type: vm.TYPE_INT, Width: 32}},
		Registers: []vm.Register{vm.NewNumRegister("x", 32), vm.NewNumRegister("r", 32),
			vm.NewConstRegister("one", 32, 1)},
		Code: []vm.Insn{&vm.BinOp{Op: vm.ADD, Target: 1, Left: 0, Right: 2}},
	})
	//
	design := check_Synth(t, machine, top)
	assert.Equal(t, 2, len(design.Modules))
	assert.True(t, design.Modules[1].Parent == design.Modules[0])
	//
	main := findTable(t, design, "main")
	inc := findTable(t, design, "inc")
	// Caller starts the task, then waits for its return value
	calls := iroha.FindResourcesByClass(main, iroha.SUB_MODULE_TASK_CALL)
	tasks := iroha.FindResourcesByClass(inc, iroha.SUB_MODULE_TASK)
	assert.Equal(t, 1, len(calls))
	assert.Equal(t, 1, len(tasks))
	assert.True(t, calls[0].CalleeTable == inc)
	assert.True(t, calls[0].Parent == tasks[0])
	// Call is tagged with the member through which the callee is reached
	member, _ := calls[0].Params.Get(iroha.PARAM_MEMBER)
	assert.Equal(t, "child", member)
	//
	call := opsOf(main.States[1])[0]
	assert.True(t, call.Resource == calls[0])
	assert.Equal(t, int64(5), *call.Inputs[0].Initial)
	//
	wait := opsOf(main.States[2])[0]
	assert.Equal(t, iroha.TASK_RETURN_VALUE, wait.Resource.Class)
	assert.Equal(t, iroha.OPERAND_WAIT_NOTIFY, wait.Operand)
	assert.True(t, strings.HasPrefix(wait.Outputs[0].Name, "r2_main_"))
	// Task entry waits, computes, returns and loops back
	assert.Equal(t, 3, len(inc.States))
	assert.True(t, opsOf(inc.States[0])[0].Resource == tasks[0])
	assert.Equal(t, []int{1}, targetsOf(inc, 0))
	assert.Equal(t, []int{2}, targetsOf(inc, 1))
	assert.Equal(t, []int{0}, targetsOf(inc, 2))
	assert.Equal(t, iroha.TASK_RETURN, opsOf(inc.States[2])[0].Resource.Class)
}

func Test_DataFlow_01(t *testing.T) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name: "main",
		Code: []vm.Insn{&vm.Funcall{Object: this, Label: "df"}, &vm.FuncallDone{}},
	})
	top.AddMethod(&vm.Method{
		Name:       "df",
		Code:       []vm.Insn{&vm.Nop{}},
		Annotation: vm.Annotation{DataFlowEntry: true},
	})
	//
	design := check_Synth(t, machine, top)
	main := findTable(t, design, "main")
	df := findTable(t, design, "df")
	//
	inputs := iroha.FindResourcesByClass(df, iroha.DATAFLOW_IN)
	writers := iroha.FindResourcesByClass(main, iroha.SHARED_REG_WRITER)
	assert.Equal(t, 1, len(inputs))
	assert.Equal(t, 1, len(writers))
	assert.True(t, writers[0].Parent == inputs[0].Parent)
	assert.True(t, opsOf(df.States[0])[0].Resource == inputs[0])
	// Calls without arguments pass a single dummy bit
	notify := opsOf(main.States[0])[0]
	assert.Equal(t, iroha.OPERAND_NOTIFY, notify.Operand)
	assert.Equal(t, 1, len(notify.Inputs))
	assert.True(t, notify.Inputs[0].IsConst())
	assert.Equal(t, uint(1), notify.Inputs[0].Type.Width)
	assert.Equal(t, int64(0), *notify.Inputs[0].Initial)
	assert.True(t, strings.HasPrefix(notify.Inputs[0].Name, "df_arg_"))
	// Data-flow threads loop back to wait for the next call
	last := len(df.States) - 1
	assert.Equal(t, []int{0}, targetsOf(df, last))
}

// ============================================================================
// Channels
// ============================================================================

func Test_Channel_01(t *testing.T) {
	machine, top := newChannelTop(true, false)
	//
	design := check_Synth(t, machine, top)
	assert.Equal(t, 1, len(design.Channels))
	//
	ch := design.Channels[0]
	assert.Equal(t, uint(8), ch.Type.Width)
	assert.Equal(t, "t1", ch.Writer.Table.Name)
	assert.Equal(t, "t2", ch.Reader.Table.Name)
	//
	id, _ := ch.Writer.Params.Get(iroha.PARAM_CHANNEL)
	assert.Equal(t, "1", id)
}

func Test_Channel_02(t *testing.T) {
	machine, top := newChannelTop(true, true)
	//
	_, err := NewDesignSynth(machine, top, DefaultOptions()).Synth()
	assert.ErrorContains(t, err, "channel ch has 2 writers")
}

// ============================================================================
// Helpers
// ============================================================================

func newTop() (*vm.VM, *vm.Object) {
	machine := vm.NewVM()
	return machine, machine.NewObject("top")
}

func addArray(machine *vm.VM, owner *vm.Object, name string, width uint, length uint) *vm.Object {
	array := machine.NewIntArray(name, width, length)
	owner.Set(name, vm.NewObjectValue(array.Id()))
	//
	return array
}

// Construct an object whose threads each write an external output.
func newExtOutputTop(threads ...string) (*vm.VM, *vm.Object) {
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:       "out",
		Args:       []vm.VarDecl{{Name: "v", Type: vm.TYPE_INT, Width: 8}},
		Registers:  []vm.Register{vm.NewNumRegister("v", 8)},
		Annotation: vm.Annotation{ExtOutput: true},
	})
	//
	for _, name := range threads {
		top.AddMethod(&vm.Method{
			Name:      name,
			Registers: []vm.Register{vm.NewConstRegister("k", 8, 1)},
			Code: []vm.Insn{
				&vm.Funcall{Object: this, Label: "out", Args: []vm.RegisterId{0}},
				&vm.FuncallDone{},
			},
		})
		//
		if name != DEFAULT_THREAD {
			top.Threads = append(top.Threads, vm.ThreadDecl{Name: name, Method: name})
		}
	}
	//
	return machine, top
}

// Construct an object with a channel written by thread t1, and either read or
// written by thread t2.
func newChannelTop(write1 bool, write2 bool) (*vm.VM, *vm.Object) {
	machine, top := newTop()
	ch := machine.NewChannel("ch", 8)
	top.Set("ch", vm.NewObjectValue(ch.Id()))
	top.Threads = []vm.ThreadDecl{{Name: "t1", Method: "m1"}, {Name: "t2", Method: "m2"}}
	//
	for i, write := range []bool{write1, write2} {
		var access vm.Insn = &vm.ChannelRead{Target: 1, Object: 0}
		//
		if write {
			access = &vm.ChannelWrite{Object: 0, Source: 1}
		}
		//
		top.AddMethod(&vm.Method{
			Name:      []string{"m1", "m2"}[i],
			Registers: []vm.Register{{Name: "c", Kind: vm.OBJECT}, vm.NewNumRegister("v", 8)},
			Code:      []vm.Insn{&vm.LoadObj{Target: 0, Object: this, Label: "ch"}, access},
		})
	}
	//
	return machine, top
}

func check_Synth(t *testing.T, machine *vm.VM, top *vm.Object) *iroha.Design {
	t.Helper()
	//
	design, err := NewDesignSynth(machine, top, DefaultOptions()).Synth()
	assert.NoError(t, err)
	//
	return design
}

func check_Compare(t *testing.T, op vm.BinaryOp, class string, swapped bool, negated bool) {
	t.Helper()
	//
	machine, top := newTop()
	top.AddMethod(&vm.Method{
		Name:      "main",
		Registers: []vm.Register{vm.NewNumRegister("a", 32), vm.NewNumRegister("b", 32), {Name: "c", Kind: vm.ENUM_ITEM}},
		Code:      []vm.Insn{&vm.BinOp{Op: op, Target: 2, Left: 0, Right: 1}},
	})
	//
	tab := findTable(t, check_Synth(t, machine, top), "main")
	cmp := opsOf(tab.States[0])[0]
	//
	assert.Equal(t, class, cmp.Resource.Class)
	assert.Equal(t, []iroha.ValueType{{Width: 32}, {Width: 32}}, cmp.Resource.InputTypes)
	//
	first := "r0_main_"
	if swapped {
		first = "r1_main_"
	}
	//
	assert.True(t, strings.HasPrefix(cmp.Inputs[0].Name, first), "unexpected operand %s", cmp.Inputs[0].Name)
	//
	if !negated {
		assert.Equal(t, 2, len(tab.States))
		assert.True(t, strings.HasPrefix(cmp.Outputs[0].Name, "r2_main_"))
		//
		return
	}
	//
	assert.Equal(t, 3, len(tab.States))
	inv := opsOf(tab.States[1])[0]
	assert.Equal(t, iroha.BIT_INV, inv.Resource.Class)
	assert.True(t, inv.Inputs[0] == cmp.Outputs[0])
	assert.True(t, strings.HasPrefix(cmp.Outputs[0].Name, "t__"))
	assert.True(t, strings.HasPrefix(inv.Outputs[0].Name, "r2_main_"))
}

func check_NoPseudo(t *testing.T, tab *iroha.Table) {
	t.Helper()
	//
	for _, st := range tab.States {
		for _, insn := range st.Insns {
			assert.False(t, insn.Resource.Class == iroha.PSEUDO, "pseudo instruction in state %d", st.Id)
		}
	}
}

func findTable(t *testing.T, design *iroha.Design, name string) *iroha.Table {
	t.Helper()
	//
	for _, mod := range design.Modules {
		for _, tab := range mod.Tables {
			if tab.Name == name {
				return tab
			}
		}
	}
	//
	t.Fatalf("table %s not found", name)
	//
	return nil
}

// Non-transition instructions of a state.
func opsOf(st *iroha.State) []*iroha.Insn {
	var insns []*iroha.Insn
	//
	for _, insn := range st.Insns {
		if !insn.Resource.IsTransition() {
			insns = append(insns, insn)
		}
	}
	//
	return insns
}

// Indices (within the table) of the successors of the ith state.
func targetsOf(tab *iroha.Table, i int) []int {
	var indices []int
	//
	tr := iroha.FindTransitionInsn(tab.States[i])
	//
	if tr == nil {
		return nil
	}
	//
	for _, target := range tr.Targets {
		for j, st := range tab.States {
			if st == target {
				indices = append(indices, j)
			}
		}
	}
	//
	return indices
}
