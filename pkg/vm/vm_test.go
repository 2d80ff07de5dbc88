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
package vm

import (
	"testing"

	"github.com/robtaylor/karuta/pkg/util/assert"
)

func Test_Object_01(t *testing.T) {
	machine := NewVM()
	top := machine.NewObject("top")
	sub := machine.NewObject("sub")
	arr := machine.NewIntArray("mem", 32, 16)
	//
	top.Set("x", NewNumValue(32, 5))
	top.Set("s", NewObjectValue(sub.Id()))
	top.Set("alias", NewObjectValue(sub.Id()))
	top.Set("m", NewObjectValue(arr.Id()))
	//
	assert.Equal(t, []string{"s", "alias"}, machine.LookupMemberNames(top.Id(), sub.Id()))
	assert.Equal(t, 3, len(machine.MemberObjects(top.Id())))
	//
	v, ok := machine.LookupValue(top.Id(), "x")
	assert.True(t, ok)
	assert.Equal(t, int64(5), v.Num)
	// Redefinition retains declaration order
	top.Set("x", NewNumValue(8, 1))
	assert.Equal(t, "x", top.Slots()[3].Name)
	assert.Equal(t, uint(8), top.Slots()[3].Value.Width)
}

func Test_Object_02(t *testing.T) {
	machine := NewVM()
	top := machine.NewObject("top")
	arr := machine.NewIntArray("mem", 32, 16)
	odd := machine.NewIntArray("odd", 8, 17)
	one := machine.NewIntArray("one", 8, 1)
	//
	assert.Equal(t, uint(4), arr.AddressWidth())
	assert.Equal(t, uint(5), odd.AddressWidth())
	assert.Equal(t, uint(0), one.AddressWidth())
	//
	assert.True(t, top.LookupMethod(NATIVE_PRINT).IsNative())
	assert.True(t, arr.LookupMethod(NATIVE_AXI_LOAD).IsNative())
	assert.True(t, arr.LookupMethod(NATIVE_PRINT) == nil)
}

func Test_Method_01(t *testing.T) {
	method := &Method{
		Name:    "f",
		Args:    []VarDecl{{"x", TYPE_INT, 32}},
		Returns: []VarDecl{{"", TYPE_INT, 32}},
		Registers: []Register{
			NewNumRegister("x", 32),
			NewNumRegister("ret", 32),
			NewConstRegister("one", 32, 1),
		},
		Code: []Insn{
			&BinOp{ADD, 1, 0, 2},
			&Goto{2},
			&Nop{},
		},
	}
	//
	expected := "method insns\n" +
		"  0:ret = x + one\n" +
		"  1:goto 2\n" +
		"  2:nop\n" +
		"  r0a:x num:32\n" +
		"  r1r:ret num:32\n" +
		"  r2:one num:32 const=1\n"
	//
	assert.Equal(t, expected, method.String())
	assert.Equal(t, RegisterId(1), method.ReturnRegister(0))
	assert.True(t, method.Register(3) == nil)
}

func Test_Method_02(t *testing.T) {
	machine := NewVM()
	top := machine.NewObject("top")
	arr := machine.NewIntArray("arr", 8, 4)
	//
	assert.True(t, top.LookupMethod(NATIVE_WAIT).IsBuiltin())
	assert.True(t, arr.LookupMethod(NATIVE_AXI_STORE).IsBuiltin())
	// Same native binding under another name is not a built-in
	assert.False(t, (&Method{Name: "pause", Native: NATIVE_WAIT}).IsBuiltin())
	assert.False(t, (&Method{Name: NATIVE_PRINT, Native: NATIVE_PRINT, Code: []Insn{&Nop{}}}).IsBuiltin())
	assert.False(t, (&Method{Name: NATIVE_PRINT}).IsBuiltin())
}

func Test_Insn_01(t *testing.T) {
	call := &Funcall{UNUSED_REGISTER, "g", []RegisterId{1, 2}}
	assert.Equal(t, []RegisterId{1, 2}, call.Uses())
	assert.Equal(t, "funcall this.g(r1,r2)", call.String(nil))
	//
	write := &MemberWrite{3, "y", 4}
	assert.Equal(t, []RegisterId{3, 4}, write.Uses())
	assert.Equal(t, 0, len(write.Definitions()))
	//
	inc := &PreIncDec{false, 7}
	assert.Equal(t, inc.Uses(), inc.Definitions())
	assert.True(t, LTE.IsComparison())
	assert.False(t, LAND.IsComparison())
}
