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

// ThreadSynth synthesizes a single thread of an object into a table.  The
// thread starts from an entry method, and includes every method of the same
// object reachable from it.
type ThreadSynth struct {
	id     ThreadId
	name   string
	entry  string
	isTask bool
	object *ObjectSynth
	tab    *iroha.Table
	res    *ResourceSet
	rsynth *ResourceSynth
	// Requested methods in request order
	methods   []MethodKey
	requested map[MethodKey]bool
	synths    map[MethodKey]*MethodSynth
	// Registers backing object members
	memberRegs map[SharedKey]*iroha.Register
	// Register names in use, and the counter for fresh ones
	regNames map[string]bool
	regIndex uint
	// Calls to other tables, wired once all tables exist
	subObjCalls   []TableCall
	dataFlowCalls []TableCall
}

// NewThreadSynth constructs a thread running a given entry method of an
// object, allocating its table in the object's module.
func NewThreadSynth(id ThreadId, object *ObjectSynth, name string, entry string) *ThreadSynth {
	tab := object.Module().NewTable(name)
	res := NewResourceSet(tab)
	//
	return &ThreadSynth{
		id:         id,
		name:       name,
		entry:      entry,
		object:     object,
		tab:        tab,
		res:        res,
		rsynth:     NewResourceSynth(res),
		requested:  make(map[MethodKey]bool),
		synths:     make(map[MethodKey]*MethodSynth),
		memberRegs: make(map[SharedKey]*iroha.Register),
		regNames:   make(map[string]bool),
	}
}

// Id returns the identifier of this thread.
func (p *ThreadSynth) Id() ThreadId { return p.id }

// Name returns the name of this thread.
func (p *ThreadSynth) Name() string { return p.name }

// EntryMethod returns the name of the entry method of this thread.
func (p *ThreadSynth) EntryMethod() string { return p.entry }

// Table returns the table this thread is synthesized into.
func (p *ThreadSynth) Table() *iroha.Table { return p.tab }

// Resources returns the resources of this thread's table.
func (p *ThreadSynth) Resources() *ResourceSet { return p.res }

// ObjectSynth returns the synthesizer of the object this thread belongs to.
func (p *ThreadSynth) ObjectSynth() *ObjectSynth { return p.object }

// Design returns the enclosing design synthesizer.
func (p *ThreadSynth) Design() *DesignSynth { return p.object.design }

// VM returns the VM holding the objects being synthesized.
func (p *ThreadSynth) VM() *vm.VM { return p.object.design.vm }

// Channels returns the channel registry of the enclosing design.
func (p *ThreadSynth) Channels() *ChannelSynth { return p.object.design.channels }

// SetIsTask marks this thread as a task, invoked by calls from other tables.
func (p *ThreadSynth) SetIsTask(task bool) {
	p.isTask = task
}

// IsTask checks whether this thread is a task.
func (p *ThreadSynth) IsTask() bool {
	return p.isTask
}

// RequestMethod adds a method to the set of methods this thread synthesizes.
func (p *ThreadSynth) RequestMethod(obj *vm.Object, name string) {
	key := MethodKey{obj.Id(), name}
	//
	if !p.requested[key] {
		p.requested[key] = true
		p.methods = append(p.methods, key)
	}
}

// Scan every method reachable from the entry method, recording the shared
// entities they access.  Scanning proceeds until no further methods are
// requested.
func (p *ThreadSynth) Scan(scan *ScanResult) error {
	var (
		obj     = p.object.Object()
		scanned = make(map[MethodKey]bool)
	)
	//
	p.RequestMethod(obj, p.entry)
	//
	for i := 0; i < len(p.methods); i++ {
		key := p.methods[i]
		//
		if scanned[key] {
			continue
		}
		//
		scanner := NewMethodScanner(p, p.VM().Object(key.Object), key.Method, scan)
		//
		if err := scanner.Scan(); err != nil {
			return fmt.Errorf("failed to scan thread: %s.%s: %w", p.name, p.entry, err)
		}
		//
		scanned[key] = true
	}
	//
	log.Debugf("scanned thread %s (%d methods)", p.name, len(p.methods))
	//
	return nil
}

// Synth synthesizes every requested method, and then expands the entry method
// into this thread's table.
func (p *ThreadSynth) Synth(owners *OwnershipTable, linker *ResourceLinker) error {
	for _, key := range p.methods {
		p.synths[key] = NewMethodSynth(p, p.VM().Object(key.Object), key.Method, owners, linker)
	}
	//
	root := p.synths[MethodKey{p.object.Object().Id(), p.entry}]
	//
	if p.isTask {
		root.SetTaskEntry()
	} else if root.IsDataFlowEntry() || root.IsExtEntry() {
		root.SetRoot()
	}
	//
	for _, key := range p.methods {
		if err := p.synths[key].Synth(); err != nil {
			return fmt.Errorf("failed to synthesize thread: %s.%s: %w", p.name, p.entry, err)
		}
	}
	//
	expander := NewMethodExpander(p, p.Design().opts.MaxInlineDepth)
	//
	if err := expander.Expand(root.Context()); err != nil {
		return fmt.Errorf("failed to synthesize thread: %s.%s: %w", p.name, p.entry, err)
	}
	//
	log.Debugf("synthesized thread %s (%d states)", p.name, len(p.tab.States))
	//
	return nil
}

// MethodContext returns the states synthesized for a given method, or nil if
// this thread did not synthesize it.
func (p *ThreadSynth) MethodContext(key MethodKey) *MethodContext {
	if ms, ok := p.synths[key]; ok {
		return ms.Context()
	}
	//
	return nil
}

// CollectUnclaimedMembers creates the ports for members of this thread's object
// which no thread accesses: AXI ports of untouched arrays, and external IO
// methods no thread calls.  This is done only by the primary thread of each
// object, before ownership is determined.
func (p *ThreadSynth) CollectUnclaimedMembers(scan *ScanResult) error {
	obj := p.object.Object()
	//
	for _, member := range p.VM().MemberObjects(obj.Id()) {
		if !member.IsIntArray() || scan.HasAccessor(member.Id()) {
			continue
		}
		//
		p.rsynth.MayAddAxiMasterPort(member)
		p.rsynth.MayAddAxiSlavePort(member)
	}
	//
	for _, method := range obj.Methods() {
		key := MethodKey{obj.Id(), method.Name}
		//
		if !method.Annotation.IsExtIO() || scan.HasExtIOAccessor(key) {
			continue
		} else if !scan.AddExtIOMethodAccessor(p.id, key) {
			return fmt.Errorf("external io method %s.%s is accessed by more than one thread", obj.Name,
				method.Name)
		}
		//
		p.rsynth.MayAddExtIO(method)
	}
	//
	return nil
}

// AllocRegister allocates a fresh register whose name starts with a given
// prefix.
func (p *ThreadSynth) AllocRegister(prefix string, vt iroha.ValueType) *iroha.Register {
	var name string
	//
	for {
		name = fmt.Sprintf("%s_%d", prefix, p.regIndex)
		p.regIndex++
		//
		if !p.regNames[name] {
			break
		}
	}
	//
	p.regNames[name] = true
	//
	return p.tab.NewRegister(name, vt)
}

// MemberRegister returns the register holding a given member within this
// thread, allocating it (with the member's initial value) on first use.
func (p *ThreadSynth) MemberRegister(key SharedKey, value vm.Value) *iroha.Register {
	if reg, ok := p.memberRegs[key]; ok {
		return reg
	}
	//
	reg := p.AllocRegister("m_"+key.Member, iroha.ValueType{Width: valueWidth(value)})
	reg.SetInitialValue(value.Num)
	p.memberRegs[key] = reg
	//
	return reg
}

// InjectSubModuleCall wires a call from this thread into the task table of a
// member object.  The calling state starts the task.  When the call has return
// values, the state following it waits for the task to finish and receives
// them.
func (p *ThreadSynth) InjectSubModuleCall(call TableCall, callee *iroha.Table) {
	insn := iroha.NewInsn(FindOrCreateTaskCallResource(p.tab, callee, call.ObjName))
	insn.Inputs = call.Inputs
	call.State.Add(insn)
	//
	if len(call.Outputs) == 0 {
		return
	}
	//
	next := iroha.NextState(call.State)
	//
	if next == nil {
		panic(fmt.Sprintf("no state follows call of %s in %s", callee.String(), p.tab.String()))
	}
	//
	res := FindOrCreateTaskReturnValueResource(p.tab, callee)
	//
	if res == nil {
		return
	}
	//
	wait := iroha.NewInsn(res)
	wait.Operand = iroha.OPERAND_WAIT_NOTIFY
	wait.Outputs = call.Outputs
	next.Add(wait)
}

// InjectDataFlowCall wires a call from this thread into a data-flow table, by
// writing the arguments into the shared register feeding the callee's
// data-flow input.  A call without arguments writes a dummy one.
func (p *ThreadSynth) InjectDataFlowCall(call TableCall, callee *iroha.Table) {
	inputs := iroha.FindResourcesByClass(callee, iroha.DATAFLOW_IN)
	//
	if len(inputs) != 1 {
		panic(fmt.Sprintf("data-flow table %s has %d inputs", callee.String(), len(inputs)))
	}
	//
	notify := iroha.NewInsn(FindOrCreateDataFlowCaller(p.tab, inputs[0].Parent))
	notify.Operand = iroha.OPERAND_NOTIFY
	notify.Inputs = call.Inputs
	//
	if len(notify.Inputs) == 0 {
		arg := p.AllocRegister("df_arg", iroha.ValueType{Width: 1})
		arg.Class = iroha.CONST
		arg.SetInitialValue(0)
		notify.Inputs = []*iroha.Register{arg}
	}
	//
	call.State.Add(notify)
}

// SubObjCalls returns the calls from this thread into task tables.
func (p *ThreadSynth) SubObjCalls() []TableCall {
	return p.subObjCalls
}

// DataFlowCalls returns the calls from this thread into data-flow tables.
func (p *ThreadSynth) DataFlowCalls() []TableCall {
	return p.dataFlowCalls
}
