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
package iroha

import (
	"bytes"
	"testing"

	"github.com/robtaylor/karuta/pkg/util/assert"
)

func Test_Tool_01(t *testing.T) {
	design := NewDesign()
	tab := design.NewModule("top", nil).NewTable("main")
	s1, s2, s3 := tab.NewState(), tab.NewState(), tab.NewState()
	//
	assert.True(t, FindTransitionInsn(s1) == nil)
	AddNextState(s1, s2)
	assert.True(t, NextState(s1) == s2)
	// A branching state has no unique successor
	AddNextState(s2, s1)
	AddNextState(s2, s3)
	assert.True(t, NextState(s2) == nil)
	assert.Equal(t, 2, len(GetTransitionInsn(s2).Targets))
	// Single transition resource per table
	assert.Equal(t, 1, len(FindResourcesByClass(tab, TRANSITION)))
	assert.True(t, GetTransitionInsn(s1) == FindTransitionInsn(s1))
}

func Test_Tool_02(t *testing.T) {
	tab := NewDesign().NewModule("top", nil).NewTable("main")
	reg := AllocConstNum(tab, 8, 42)
	//
	assert.True(t, reg.IsConst())
	assert.Equal(t, int64(42), *reg.Initial)
	assert.Equal(t, "#42", reg.String())
	assert.Equal(t, 1, len(tab.Registers))
}

func Test_Params_01(t *testing.T) {
	params := NewResourceParams()
	params.Set(PARAM_MEMBER, "x")
	params.SetWidth(16)
	params.Set(PARAM_MEMBER, "y")
	//
	assert.Equal(t, []string{PARAM_MEMBER, PARAM_WIDTH}, params.Keys())
	assert.Equal(t, uint(16), params.Width())
	//
	v, ok := params.Get(PARAM_MEMBER)
	assert.True(t, ok)
	assert.Equal(t, "y", v)
}

func Test_Writer_01(t *testing.T) {
	var (
		buf    bytes.Buffer
		design = NewDesign()
		tab    = design.NewModule("top", nil).NewTable("main")
		s1     = tab.NewState()
		s2     = tab.NewState()
		add    = tab.NewResource(ADD)
		x      = tab.NewRegister("x", ValueType{Width: 32})
		one    = AllocConstNum(tab, 32, 1)
		insn   = NewInsn(add)
	)
	//
	add.InputTypes = []ValueType{{Width: 32}, {Width: 32}}
	add.OutputTypes = []ValueType{{Width: 32}}
	insn.Inputs = []*Register{x, one}
	insn.Outputs = []*Register{x}
	s1.Add(insn)
	AddNextState(s1, s2)
	tab.AddState(s1)
	tab.AddState(s2)
	//
	assert.NoError(t, Write(&buf, design))
	//
	expected := "(MODULE 1 top\n" +
		"  (TABLE 1 main\n" +
		"    (REGISTERS (REGISTER 1 x REG (UINT 32) ()) (REGISTER 2 () CONST (UINT 32) 1))\n" +
		"    (RESOURCES\n" +
		"      (RESOURCE 1 add ((UINT 32) (UINT 32)) ((UINT 32)) (PARAMS))\n" +
		"      (RESOURCE 2 tr () () (PARAMS)))\n" +
		"    (INITIAL 1)\n" +
		"    (STATE 1 (INSN 1 add 1 () () (1 2) (1)) (INSN 2 tr 2 () (2) () ()))\n" +
		"    (STATE 2)))\n"
	assert.Equal(t, expected, buf.String())
}

func Test_Snapshot_01(t *testing.T) {
	var (
		design = NewDesign()
		top    = design.NewModule("top", nil)
		sub    = design.NewModule("sub", top)
		caller = top.NewTable("main")
		callee = sub.NewTable("task")
		s1     = caller.NewState()
		s2     = caller.NewState()
		owner  = callee.NewResource(SHARED_REG)
		reader = caller.NewResource(SHARED_REG_READER)
		call   = caller.NewResource(SUB_MODULE_TASK_CALL)
		ch     = design.NewChannel(8)
		x      = caller.NewRegister("x", ValueType{Width: 8, Signed: true})
		insn   = NewInsn(reader)
	)
	//
	owner.Params.SetWidth(8)
	reader.Parent = owner
	call.CalleeTable = callee
	ch.Reader = reader
	insn.Outputs = []*Register{x}
	insn.Operand = OPERAND_READ
	s1.Add(insn)
	AddNextState(s1, s2)
	AddNextState(s2, s1)
	caller.AddState(s1)
	caller.AddState(s2)
	//
	bytes1, err := MarshalSnapshot(design)
	assert.NoError(t, err)
	restored, err := UnmarshalSnapshot(bytes1)
	assert.NoError(t, err)
	//
	assert.Equal(t, render(t, design), render(t, restored))
	assert.True(t, restored.Modules[1].Parent == restored.Modules[0])
	assert.True(t, restored.Channels[0].Reader.Parent.Table.Module.Name == "sub")
	// Encoding is deterministic
	bytes2, err := MarshalSnapshot(restored)
	assert.NoError(t, err)
	assert.Equal(t, bytes1, bytes2)
}

func Test_Snapshot_02(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte{0xff})
	assert.ErrorContains(t, err, "unmarshal snapshot")
}

func render(t *testing.T, design *Design) string {
	var buf bytes.Buffer
	//
	assert.NoError(t, Write(&buf, design))
	//
	return buf.String()
}
