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
	log "github.com/sirupsen/logrus"
)

// MethodSynth lowers the bytecode of a single method into a sequence of states
// of the enclosing thread's table.  The states are recorded in a method
// context and are not added to the table; the method expander subsequently
// copies them into the table, inlining calls as it goes.
type MethodSynth struct {
	InsnWalker
	thread     *ThreadSynth
	methodName string
	owners     *OwnershipTable
	linker     *ResourceLinker
	tab        *iroha.Table
	res        *ResourceSet
	// Method being lowered (the alternative implementation for native
	// methods).
	method  *vm.Method
	context *MethodContext
	// Role of this method within its thread
	isTaskEntry bool
	isRoot      bool
	// Table registers backing the registers of the method
	localRegs map[vm.RegisterId]*iroha.Register
	// State entered by each bytecode instruction (plus one for the end)
	stateMap []*StateWrapper
	// First user error encountered
	err error
}

// NewMethodSynth constructs a synthesizer for a named method of a given object,
// running within a given thread.
func NewMethodSynth(thread *ThreadSynth, obj *vm.Object, name string, owners *OwnershipTable,
	linker *ResourceLinker) *MethodSynth {
	return &MethodSynth{
		InsnWalker: NewInsnWalker(thread.VM(), obj),
		thread:     thread,
		methodName: name,
		owners:     owners,
		linker:     linker,
		tab:        thread.Table(),
		res:        thread.Resources(),
		context:    &MethodContext{Object: obj},
		localRegs:  make(map[vm.RegisterId]*iroha.Register),
	}
}

// SetTaskEntry marks this method as the entry of a task thread, such that it
// waits to be invoked, and signals completion to its caller.
func (p *MethodSynth) SetTaskEntry() {
	p.isTaskEntry = true
}

// SetRoot marks this method as the entry of a data-flow or externally invoked
// thread.
func (p *MethodSynth) SetRoot() {
	p.isRoot = true
}

// IsDataFlowEntry checks whether this method is annotated as the entry of a
// data-flow thread.
func (p *MethodSynth) IsDataFlowEntry() bool {
	m := p.obj.LookupMethod(p.methodName)
	return m != nil && m.Annotation.DataFlowEntry
}

// IsExtEntry checks whether this method is annotated as invoked from outside
// the design.
func (p *MethodSynth) IsExtEntry() bool {
	m := p.obj.LookupMethod(p.methodName)
	return m != nil && m.Annotation.ExtEntry
}

// Context returns the states synthesized for this method.
func (p *MethodSynth) Context() *MethodContext {
	return p.context
}

// Synth lowers the method into states.  This fails if the method uses a
// construct which cannot be synthesized.
func (p *MethodSynth) Synth() error {
	p.method = p.obj.LookupMethod(p.methodName)
	//
	if p.method == nil {
		return fmt.Errorf("method not found: %s.%s", p.obj.Name, p.methodName)
	}
	//
	p.context.Method = p.method
	//
	log.Debugf("synthesizing method %s.%s", p.obj.Name, p.methodName)
	//
	switch {
	case p.method.IsNative():
		p.synthNativeImplMethod()
	case p.method.IsImported():
		p.synthEmbeddedMethod()
	case p.method.Annotation.IsExtIO():
		p.synthExtIOMethod()
	default:
		p.synthMethodBody()
	}
	//
	if p.err == nil {
		log.Debugf("method %s.%s lowered into %d states", p.obj.Name, p.methodName, len(p.context.States))
	}
	//
	return p.err
}

func (p *MethodSynth) synthMethodBody() {
	var (
		code  = p.method.Code
		entry *StateWrapper
		start = make([]int, len(code)+1)
	)
	//
	p.emitEntryInsn()
	//
	if p.err != nil {
		return
	}
	//
	if p.isTaskEntry || p.isRoot {
		entry = p.AllocState()
		p.emitEntryWait(entry)
	}
	// Lower each instruction, forcing a fresh state whenever an instruction
	// allocated none (so that every instruction has a state to jump to).
	last := p.context.LastState()
	//
	for i, insn := range code {
		start[i] = len(p.context.States)
		p.synthInsn(insn)
		//
		if p.err != nil {
			return
		} else if p.context.LastState() == last {
			p.AllocState()
		}
		//
		last = p.context.LastState()
	}
	//
	trailing := p.AllocState()
	start[len(code)] = len(p.context.States) - 1
	//
	p.stateMap = make([]*StateWrapper, len(start))
	for i, index := range start {
		p.stateMap[i] = p.context.States[index]
	}
	//
	p.resolveJumps()
	p.linkStates()
	//
	if entry != nil {
		p.emitExitInsn(trailing)
		iroha.AddNextState(trailing.State, entry.State)
	}
}

// Implement a native method through its alternative (imported)
// implementation.
func (p *MethodSynth) synthNativeImplMethod() {
	alt := p.obj.LookupMethod(p.method.AltImpl)
	//
	if alt == nil || !alt.IsImported() {
		panic(fmt.Sprintf("native method %s.%s has no imported implementation", p.obj.Name, p.methodName))
	}
	//
	p.method = alt
	p.context.Method = alt
	p.synthEmbeddedMethod()
}

// Implement an imported method by embedding its external module.
func (p *MethodSynth) synthEmbeddedMethod() {
	p.emitEntryInsn()
	//
	if p.err != nil {
		return
	}
	//
	sw := p.AllocState()
	insn := iroha.NewInsn(p.res.GetImportedResource(p.method))
	insn.Inputs = p.context.MethodInsn.Inputs
	insn.Outputs = p.context.MethodInsn.Outputs
	sw.State.Add(insn)
	//
	p.AllocState()
	p.linkStates()
}

// Implement a method which reads an external input, or writes an external
// output.
func (p *MethodSynth) synthExtIOMethod() {
	var (
		ann  = p.method.Annotation
		port = ann.Port
	)
	//
	if port == "" {
		port = p.method.Name
	}
	//
	p.emitEntryInsn()
	//
	if p.err != nil {
		return
	}
	//
	sw := p.AllocState()
	entry := p.context.MethodInsn
	//
	if ann.ExtOutput {
		if len(p.method.Args) == 0 {
			p.fail(fmt.Errorf("external output %s.%s has no argument", p.obj.Name, p.method.Name))
			return
		}
		//
		insn := iroha.NewInsn(p.res.GetExtIOResource(port, true, declWidth(p.method.Args[0])))
		insn.Inputs = entry.Inputs[:1]
		sw.State.Add(insn)
	}
	//
	if ann.ExtInput {
		if len(p.method.Returns) == 0 {
			p.fail(fmt.Errorf("external input %s.%s has no return value", p.obj.Name, p.method.Name))
			return
		}
		//
		insn := iroha.NewInsn(p.res.GetExtIOResource(port, false, declWidth(p.method.Returns[0])))
		insn.Outputs = entry.Outputs[:1]
		sw.State.Add(insn)
	}
	//
	p.AllocState()
	p.linkStates()
}

// AllocState allocates a fresh state at the end of this method.
func (p *MethodSynth) AllocState() *StateWrapper {
	sw := &StateWrapper{State: p.tab.NewState()}
	p.context.States = append(p.context.States, sw)
	//
	return sw
}

// FindLocalVarRegister returns the table register backing a given register of
// the method, allocating it on first use.
func (p *MethodSynth) FindLocalVarRegister(id vm.RegisterId) *iroha.Register {
	if reg, ok := p.localRegs[id]; ok {
		return reg
	}
	//
	vreg := p.method.Register(id)
	//
	if vreg == nil {
		panic(fmt.Sprintf("unknown register %d in %s.%s", id, p.obj.Name, p.method.Name))
	}
	//
	var (
		width = vreg.Width
		reg   *iroha.Register
	)
	//
	if vreg.Kind == vm.ENUM_ITEM {
		width = 0
	}
	//
	if vreg.Const {
		reg = iroha.AllocConstNum(p.tab, width, vreg.Initial)
	} else {
		reg = p.thread.AllocRegister(fmt.Sprintf("r%d_%s", id, p.methodName), iroha.ValueType{Width: width})
	}
	//
	p.localRegs[id] = reg
	//
	return reg
}

// Emit the placeholder instruction recording the argument and return
// registers of this method.
func (p *MethodSynth) emitEntryInsn() {
	insn := iroha.NewInsn(p.res.PseudoResource())
	insn.Operand = iroha.OPERAND_METHOD_ENTRY
	//
	for i, arg := range p.method.Args {
		insn.Inputs = append(insn.Inputs, p.findArgRegister(vm.RegisterId(i), arg))
	}
	//
	for i := range p.method.Returns {
		reg := p.FindLocalVarRegister(p.method.ReturnRegister(uint(i)))
		insn.Outputs = append(insn.Outputs, reg)
	}
	// Methods without return values still have an output, so that callers
	// can always wait for them.
	if len(p.method.Returns) == 0 {
		insn.Outputs = append(insn.Outputs, p.thread.AllocRegister("r_", iroha.ValueType{}))
	}
	//
	p.context.MethodInsn = insn
}

func (p *MethodSynth) findArgRegister(id vm.RegisterId, arg vm.VarDecl) *iroha.Register {
	var width uint
	//
	switch arg.Type {
	case vm.TYPE_BOOL:
		width = 0
	case vm.TYPE_INT:
		width = arg.Width
	default:
		p.fail(fmt.Errorf("unsupported type %s of argument %s in %s.%s", arg.Type.String(), arg.Name,
			p.obj.Name, p.method.Name))
	}
	//
	reg := p.thread.AllocRegister(arg.Name, iroha.ValueType{Width: width})
	//
	if !p.method.IsImported() {
		p.localRegs[id] = reg
	}
	//
	return reg
}

// Emit the instruction upon which a thread entry waits to be started.  The
// entry state receives the arguments of the method.
func (p *MethodSynth) emitEntryWait(sw *StateWrapper) {
	var (
		entry = p.context.MethodInsn
		insn  *iroha.Insn
	)
	//
	switch {
	case p.isTaskEntry:
		insn = iroha.NewInsn(p.res.GetSubModuleTaskResource())
		insn.Outputs = entry.Inputs
	case p.method.Annotation.DataFlowEntry:
		var width uint
		//
		for _, arg := range entry.Inputs {
			width += max(arg.Type.Width, 1)
		}
		//
		insn = iroha.NewInsn(p.res.GetDataFlowInResource(max(width, 1)))
		insn.Outputs = entry.Inputs
	default:
		insn = iroha.NewInsn(p.res.GetExtTaskResource())
		insn.Outputs = entry.Inputs
	}
	//
	sw.State.Add(insn)
}

// Emit the instruction through which a thread entry signals completion.
func (p *MethodSynth) emitExitInsn(sw *StateWrapper) {
	var res *iroha.Resource
	//
	switch {
	case p.isTaskEntry:
		res = p.res.GetTaskReturnResource()
	case p.method.Annotation.DataFlowEntry:
		return
	default:
		res = p.res.GetExtTaskDoneResource()
	}
	//
	insn := iroha.NewInsn(res)
	insn.Inputs = p.context.MethodInsn.Outputs
	sw.State.Add(insn)
}

// Add the targets of every jump and branch.  A branch falls through to the
// state following it when its condition does not hold.
func (p *MethodSynth) resolveJumps() {
	states := p.context.States
	//
	for i, sw := range states {
		switch insn := sw.Insn.(type) {
		case *vm.Goto:
			iroha.AddNextState(sw.State, p.jumpTarget(insn.Target).State)
		case *vm.If:
			tr := iroha.GetTransitionInsn(sw.State)
			tr.Targets = append(tr.Targets, p.jumpTarget(insn.Target).State, states[i+1].State)
		}
	}
}

func (p *MethodSynth) jumpTarget(index uint) *StateWrapper {
	if index >= uint(len(p.stateMap)) {
		panic(fmt.Sprintf("jump target %d out of range in %s.%s", index, p.obj.Name, p.method.Name))
	}
	//
	return p.stateMap[index]
}

// Link every state without an explicit successor to the state following it.
func (p *MethodSynth) linkStates() {
	states := p.context.States
	//
	for i := 0; i+1 < len(states); i++ {
		if tr := iroha.FindTransitionInsn(states[i].State); tr != nil && len(tr.Targets) > 0 {
			continue
		}
		//
		iroha.AddNextState(states[i].State, states[i+1].State)
	}
}

// Record a user error, retaining the first one reported.
func (p *MethodSynth) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func declWidth(decl vm.VarDecl) uint {
	if decl.Type == vm.TYPE_BOOL {
		return 0
	}
	//
	return decl.Width
}
