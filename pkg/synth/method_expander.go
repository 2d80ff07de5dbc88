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
	"slices"

	"github.com/robtaylor/karuta/pkg/iroha"
)

// DEFAULT_MAX_INLINE_DEPTH bounds the depth of nested calls inlined into a
// single thread.
const DEFAULT_MAX_INLINE_DEPTH = 32

// MethodExpander builds the states of a thread's table from the states
// synthesized for its methods, starting from the entry method.  Calls to
// methods of the same object are inlined: arguments are assigned in the
// calling state, which then proceeds into a fresh copy of the callee, whose
// final state assigns the return values and continues where the call left
// off.  Calls to other tables are recorded for later wiring.  Placeholder
// instructions do not survive expansion.
type MethodExpander struct {
	thread   *ThreadSynth
	tab      *iroha.Table
	maxDepth uint
	// Methods currently being expanded
	stack []MethodKey
}

// NewMethodExpander constructs an expander for a given thread.
func NewMethodExpander(thread *ThreadSynth, maxDepth uint) *MethodExpander {
	return &MethodExpander{thread: thread, tab: thread.Table(), maxDepth: maxDepth}
}

// Expand the given entry method into the thread's table.
func (p *MethodExpander) Expand(root *MethodContext) error {
	_, _, err := p.expand(root)
	return err
}

// Copy the states of a method into the table, returning the first and last of
// them.
func (p *MethodExpander) expand(ctx *MethodContext) (*iroha.State, *iroha.State, error) {
	key := MethodKey{ctx.Object.Id(), ctx.Method.Name}
	//
	if slices.Contains(p.stack, key) {
		return nil, nil, fmt.Errorf("recursive call of %s.%s is not supported", ctx.Object.Name, ctx.Method.Name)
	} else if uint(len(p.stack)) >= p.maxDepth {
		return nil, nil, fmt.Errorf("calls nested too deeply at %s.%s (limit %d)", ctx.Object.Name,
			ctx.Method.Name, p.maxDepth)
	}
	//
	p.stack = append(p.stack, key)
	defer func() { p.stack = p.stack[:len(p.stack)-1] }()
	//
	clones := make(map[*iroha.State]*iroha.State, len(ctx.States))
	//
	for _, sw := range ctx.States {
		st := p.tab.NewState()
		p.tab.AddState(st)
		clones[sw.State] = st
	}
	//
	for _, sw := range ctx.States {
		var (
			dst  = clones[sw.State]
			call *iroha.Insn
		)
		//
		for _, insn := range sw.State.Insns {
			if insn.Resource.Class == iroha.PSEUDO {
				call = insn
				continue
			}
			//
			dst.Add(cloneInsn(insn, clones))
		}
		//
		if sw.IsCall() {
			if err := p.expandCall(sw, dst, call); err != nil {
				return nil, nil, err
			}
		}
	}
	//
	first := clones[ctx.States[0].State]
	last := clones[ctx.States[len(ctx.States)-1].State]
	//
	return first, last, nil
}

func (p *MethodExpander) expandCall(sw *StateWrapper, dst *iroha.State, call *iroha.Insn) error {
	var (
		method = sw.CalleeObj.LookupMethod(sw.CalleeName)
		tc     = TableCall{dst, call.Inputs, call.Outputs, sw.CalleeObj, sw.CalleeName, sw.ObjName}
	)
	//
	switch {
	case method != nil && method.Annotation.DataFlowEntry:
		p.thread.dataFlowCalls = append(p.thread.dataFlowCalls, tc)
		return nil
	case sw.IsSubObjCall:
		p.thread.subObjCalls = append(p.thread.subObjCalls, tc)
		return nil
	}
	//
	callee := p.thread.MethodContext(MethodKey{sw.CalleeObj.Id(), sw.CalleeName})
	//
	if callee == nil {
		panic(fmt.Sprintf("method %s.%s was not synthesized", sw.CalleeObj.Name, sw.CalleeName))
	}
	//
	first, last, err := p.expand(callee)
	//
	if err != nil {
		return err
	}
	//
	var (
		entry  = callee.MethodInsn
		assign = p.thread.Resources().AssignResource()
	)
	//
	for i, arg := range call.Inputs {
		if i < len(entry.Inputs) {
			dst.Add(assignInsn(assign, arg, entry.Inputs[i]))
		}
	}
	//
	for i, ret := range call.Outputs {
		if i < len(entry.Outputs) {
			last.Add(assignInsn(assign, entry.Outputs[i], ret))
		}
	}
	// Continue from the callee's last state to wherever the call was going.
	tr := iroha.GetTransitionInsn(dst)
	ltr := iroha.GetTransitionInsn(last)
	ltr.Targets = append(ltr.Targets, tr.Targets...)
	tr.Targets = []*iroha.State{first}
	//
	return nil
}

func cloneInsn(insn *iroha.Insn, clones map[*iroha.State]*iroha.State) *iroha.Insn {
	c := iroha.NewInsn(insn.Resource)
	c.Operand = insn.Operand
	c.Inputs = slices.Clone(insn.Inputs)
	c.Outputs = slices.Clone(insn.Outputs)
	//
	for _, target := range insn.Targets {
		t, ok := clones[target]
		//
		if !ok {
			panic("transition to state outside of method")
		}
		//
		c.Targets = append(c.Targets, t)
	}
	//
	return c
}

func assignInsn(res *iroha.Resource, src *iroha.Register, dst *iroha.Register) *iroha.Insn {
	insn := iroha.NewInsn(res)
	insn.Inputs = []*iroha.Register{src}
	insn.Outputs = []*iroha.Register{dst}
	//
	return insn
}
