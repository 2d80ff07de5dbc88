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

	"github.com/robtaylor/karuta/pkg/vm"
)

// InsnWalker resolves the objects referred to by the registers of a method.
// Registers are bound to objects by LoadObj instructions, and by reads of
// object-valued members.  Bindings are scoped to a single method, and a walker
// must only be used for the method it was constructed for.
type InsnWalker struct {
	vm  *vm.VM
	obj *vm.Object
	// Objects bound to registers so far
	objRegs map[vm.RegisterId]*vm.Object
}

// NewInsnWalker constructs a walker for a method of a given object.
func NewInsnWalker(machine *vm.VM, obj *vm.Object) InsnWalker {
	return InsnWalker{machine, obj, make(map[vm.RegisterId]*vm.Object)}
}

// Object returns the object whose method is being walked.
func (p *InsnWalker) Object() *vm.Object {
	return p.obj
}

// LoadObj binds the target register of a LoadObj instruction.
func (p *InsnWalker) LoadObj(insn *vm.LoadObj) {
	base := p.GetObjByReg(insn.Object)
	//
	if base == nil {
		panic(fmt.Sprintf("load_obj from unbound register %d", insn.Object))
	} else if insn.Label == "" {
		p.objRegs[insn.Target] = base
		return
	}
	//
	value, ok := base.Lookup(insn.Label)
	//
	if !ok || value.Kind != vm.OBJECT {
		panic(fmt.Sprintf("load_obj of non-object member %s.%s", base.Name, insn.Label))
	}
	//
	p.objRegs[insn.Target] = p.vm.Object(value.Object)
}

// MaybeLoadMemberObject returns the object owning the member accessed by a
// given member read or write.  Reads of object-valued members additionally
// bind the target register to the member object.
func (p *InsnWalker) MaybeLoadMemberObject(insn vm.Insn) *vm.Object {
	switch insn := insn.(type) {
	case *vm.MemberRead:
		owner := p.mustGetObjByReg(insn.Object)
		//
		if value, ok := owner.Lookup(insn.Label); ok && value.Kind == vm.OBJECT {
			p.objRegs[insn.Target] = p.vm.Object(value.Object)
		}
		//
		return owner
	case *vm.MemberWrite:
		return p.mustGetObjByReg(insn.Object)
	default:
		panic("not a member access instruction")
	}
}

// GetObjByReg returns the object bound to a given register, or nil if the
// register is not bound.  An unused register denotes the object itself.
func (p *InsnWalker) GetObjByReg(reg vm.RegisterId) *vm.Object {
	if !reg.IsUsed() {
		return p.obj
	}
	//
	return p.objRegs[reg]
}

// GetCalleeObject returns the object whose method is invoked by a given call.
func (p *InsnWalker) GetCalleeObject(insn *vm.Funcall) *vm.Object {
	return p.GetObjByReg(insn.Object)
}

// IsNativeFuncall checks whether a given call invokes a built-in native method
// (i.e. one without a synthesizable alternative implementation).
func (p *InsnWalker) IsNativeFuncall(insn *vm.Funcall) bool {
	callee := p.GetCalleeObject(insn)
	//
	if callee == nil {
		return false
	}
	//
	method := callee.LookupMethod(insn.Label)
	//
	return method != nil && method.Native != "" && method.AltImpl == ""
}

// IsSubObjCall checks whether a given call invokes a method of an object
// other than the one being walked.
func (p *InsnWalker) IsSubObjCall(insn *vm.Funcall) bool {
	callee := p.GetCalleeObject(insn)
	return callee != nil && callee != p.obj
}

func (p *InsnWalker) mustGetObjByReg(reg vm.RegisterId) *vm.Object {
	if obj := p.GetObjByReg(reg); obj != nil {
		return obj
	}
	//
	panic(fmt.Sprintf("register %d is not bound to an object", reg))
}
