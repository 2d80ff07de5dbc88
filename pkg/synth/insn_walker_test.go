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
	"testing"

	"github.com/robtaylor/karuta/pkg/util/assert"
	"github.com/robtaylor/karuta/pkg/vm"
)

func Test_InsnWalker_01(t *testing.T) {
	machine, top := newTop()
	sub := machine.NewObject("sub")
	top.Set("sub", vm.NewObjectValue(sub.Id()))
	walker := NewInsnWalker(machine, top)
	//
	assert.True(t, walker.GetObjByReg(this) == top)
	assert.True(t, walker.GetObjByReg(3) == nil)
	walker.LoadObj(&vm.LoadObj{Target: 3, Object: this, Label: "sub"})
	assert.True(t, walker.GetObjByReg(3) == sub)
	// Aliasing a bound register
	walker.LoadObj(&vm.LoadObj{Target: 4, Object: 3})
	assert.True(t, walker.GetObjByReg(4) == sub)
}

func Test_InsnWalker_02(t *testing.T) {
	machine, top := newTop()
	sub := machine.NewObject("sub")
	top.Set("sub", vm.NewObjectValue(sub.Id()))
	top.Set("x", vm.NewNumValue(8, 0))
	walker := NewInsnWalker(machine, top)
	// Reading an object member binds the target
	owner := walker.MaybeLoadMemberObject(&vm.MemberRead{Target: 1, Object: this, Label: "sub"})
	assert.True(t, owner == top)
	assert.True(t, walker.GetObjByReg(1) == sub)
	// Reading a numeric member does not
	walker.MaybeLoadMemberObject(&vm.MemberRead{Target: 2, Object: this, Label: "x"})
	assert.True(t, walker.GetObjByReg(2) == nil)
	//
	assert.Panics(t, func() { walker.MaybeLoadMemberObject(&vm.Nop{}) })
	assert.Panics(t, func() { walker.LoadObj(&vm.LoadObj{Target: 5, Object: this, Label: "x"}) })
}

func Test_InsnWalker_03(t *testing.T) {
	machine, top := newTop()
	sub := machine.NewObject("sub")
	sub.AddMethod(&vm.Method{Name: "run"})
	top.Set("sub", vm.NewObjectValue(sub.Id()))
	walker := NewInsnWalker(machine, top)
	walker.LoadObj(&vm.LoadObj{Target: 0, Object: this, Label: "sub"})
	//
	local := &vm.Funcall{Object: this, Label: vm.NATIVE_PRINT}
	remote := &vm.Funcall{Object: 0, Label: "run"}
	//
	assert.True(t, walker.IsNativeFuncall(local))
	assert.False(t, walker.IsSubObjCall(local))
	assert.False(t, walker.IsNativeFuncall(remote))
	assert.True(t, walker.IsSubObjCall(remote))
	assert.True(t, walker.GetCalleeObject(remote) == sub)
}
