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

// ObjectMethod lowers a call to a built-in native method into a single state.
type ObjectMethod struct {
	synth  *MethodSynth
	insn   *vm.Funcall
	callee *vm.Object
	method *vm.Method
}

// NewObjectMethod constructs a lowering for a given native call.
func NewObjectMethod(synth *MethodSynth, insn *vm.Funcall) *ObjectMethod {
	callee := synth.GetCalleeObject(insn)
	return &ObjectMethod{synth, insn, callee, callee.LookupMethod(insn.Label)}
}

// Synth emits the state implementing the call.
func (p *ObjectMethod) Synth() {
	switch p.method.Native {
	case vm.NATIVE_PRINT:
		p.synthSimple(iroha.PRINT)
	case vm.NATIVE_ASSERT:
		p.synthSimple(iroha.ASSERT)
	case vm.NATIVE_WAIT:
		p.synthWait()
	case vm.NATIVE_AXI_LOAD:
		p.synthAxiAccess(false)
	case vm.NATIVE_AXI_STORE:
		p.synthAxiAccess(true)
	default:
		p.synth.fail(fmt.Errorf("unsupported native method %s.%s", p.callee.Name, p.method.Name))
	}
}

func (p *ObjectMethod) synthSimple(class string) {
	insn := iroha.NewInsn(p.synth.res.GetNativeResource(class))
	insn.Inputs = p.args()
	p.emit(insn)
}

// Waits default to a single cycle.
func (p *ObjectMethod) synthWait() {
	insn := iroha.NewInsn(p.synth.res.GetNativeResource(iroha.WAIT))
	insn.Inputs = p.args()
	//
	if len(insn.Inputs) == 0 {
		insn.Inputs = []*iroha.Register{iroha.AllocConstNum(p.synth.tab, 32, 1)}
	}
	//
	p.emit(insn)
}

// Transfers between an array and external memory go through the AXI master
// port of the array.  When the array is shared, the port accesses the shared
// memory of the owning thread.
func (p *ObjectMethod) synthAxiAccess(store bool) {
	if !p.callee.IsIntArray() {
		panic(fmt.Sprintf("axi transfer on non-array %s", p.callee.Name))
	}
	//
	port := p.synth.res.GetAxiPort(p.callee, true)
	//
	if p.synth.owners.GetByObj(p.callee.Id()).HasOwner {
		p.synth.linker.AddAccessorResource(SharedKey{p.callee.Id(), ""}, port)
	}
	//
	insn := iroha.NewInsn(port)
	insn.Inputs = p.args()
	//
	if store {
		insn.Operand = iroha.OPERAND_WRITE
	} else {
		insn.Operand = iroha.OPERAND_READ
	}
	//
	p.emit(insn)
}

func (p *ObjectMethod) args() []*iroha.Register {
	var regs []*iroha.Register
	//
	for _, arg := range p.insn.Args {
		regs = append(regs, p.synth.FindLocalVarRegister(arg))
	}
	//
	return regs
}

func (p *ObjectMethod) emit(insn *iroha.Insn) {
	sw := p.synth.AllocState()
	sw.State.Add(insn)
}
