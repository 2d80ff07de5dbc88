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

// MethodScanner walks the code of a method on behalf of a thread, recording
// the shared entities it accesses and requesting the methods it calls.
type MethodScanner struct {
	InsnWalker
	thread *ThreadSynth
	scan   *ScanResult
	name   string
}

// NewMethodScanner constructs a scanner for a named method of a given object.
func NewMethodScanner(thread *ThreadSynth, obj *vm.Object, name string, scan *ScanResult) *MethodScanner {
	return &MethodScanner{NewInsnWalker(thread.VM(), obj), thread, scan, name}
}

// Scan the method.
func (p *MethodScanner) Scan() error {
	method := p.obj.LookupMethod(p.name)
	//
	switch {
	case method == nil:
		return fmt.Errorf("method not found: %s.%s", p.obj.Name, p.name)
	case method.AltImpl != "":
		if alt := p.obj.LookupMethod(method.AltImpl); alt == nil || !alt.IsImported() {
			return fmt.Errorf("native method %s.%s has no imported implementation %s", p.obj.Name, p.name,
				method.AltImpl)
		}
		//
		return nil
	case method.IsNative():
		return fmt.Errorf("native method %s.%s cannot be synthesized", p.obj.Name, p.name)
	}
	//
	for _, insn := range method.Code {
		var err error
		//
		switch insn := insn.(type) {
		case *vm.LoadObj:
			p.LoadObj(insn)
		case *vm.MemberRead:
			err = p.scanMember(insn, insn.Label, false)
		case *vm.MemberWrite:
			err = p.scanMember(insn, insn.Label, true)
		case *vm.ArrayRead:
			err = p.scanArray(insn.Object, false)
		case *vm.ArrayWrite:
			err = p.scanArray(insn.Object, true)
		case *vm.Funcall:
			err = p.scanFuncall(insn)
		}
		//
		if err != nil {
			return err
		}
	}
	//
	return nil
}

func (p *MethodScanner) scanMember(insn vm.Insn, label string, write bool) error {
	owner := p.MaybeLoadMemberObject(insn)
	value, ok := owner.Lookup(label)
	//
	switch {
	case !ok:
		return fmt.Errorf("member not found: %s.%s", owner.Name, label)
	case value.Kind == vm.METHOD:
		return fmt.Errorf("method %s.%s accessed as a member", owner.Name, label)
	case value.Const || value.Kind == vm.OBJECT:
		return nil
	}
	//
	p.scan.AddMemberAccessor(p.thread.Id(), owner.Id(), label, write)
	//
	return nil
}

func (p *MethodScanner) scanArray(reg vm.RegisterId, write bool) error {
	array := p.GetObjByReg(reg)
	//
	if array == nil || !array.IsIntArray() {
		return fmt.Errorf("array access on non-array in %s.%s", p.obj.Name, p.name)
	}
	//
	p.scan.AddObjectAccessor(p.thread.Id(), array.Id(), write, array.Name)
	//
	return nil
}

func (p *MethodScanner) scanFuncall(insn *vm.Funcall) error {
	callee := p.GetCalleeObject(insn)
	//
	if callee == nil {
		return fmt.Errorf("unresolved callee of %s in %s.%s", insn.Label, p.obj.Name, p.name)
	}
	//
	method := callee.LookupMethod(insn.Label)
	//
	switch {
	case method == nil:
		return fmt.Errorf("method not found: %s.%s", callee.Name, insn.Label)
	case p.IsNativeFuncall(insn):
		if method.Native == vm.NATIVE_AXI_LOAD || method.Native == vm.NATIVE_AXI_STORE {
			p.scan.AddAxiCtrlThread(p.thread.Id(), callee.Id())
		}
	case method.Annotation.DataFlowEntry:
		// Data-flow entries run in a thread of their own
		p.thread.Design().RequestObject(p.thread.ObjectSynth(), callee)
	case p.IsSubObjCall(insn):
		p.thread.Design().RequestTask(p.thread.ObjectSynth(), callee, insn.Label)
	case method.Annotation.IsExtIO():
		if !p.scan.AddExtIOMethodAccessor(p.thread.Id(), MethodKey{callee.Id(), insn.Label}) {
			return fmt.Errorf("external io method %s.%s is accessed by more than one thread", callee.Name,
				insn.Label)
		}
		//
		p.thread.RequestMethod(callee, insn.Label)
	default:
		p.thread.RequestMethod(callee, insn.Label)
	}
	//
	return nil
}
