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

// FindTransitionInsn returns the transition instruction of a given state, or
// nil if it has none.
func FindTransitionInsn(st *State) *Insn {
	for _, insn := range st.Insns {
		if insn.Resource.IsTransition() {
			return insn
		}
	}
	//
	return nil
}

// GetTransitionInsn returns the transition instruction of a given state,
// creating one if necessary.
func GetTransitionInsn(st *State) *Insn {
	if insn := FindTransitionInsn(st); insn != nil {
		return insn
	}
	//
	insn := NewInsn(st.Table.TransitionResource())
	st.Add(insn)
	//
	return insn
}

// AddNextState adds an edge from one state to another.
func AddNextState(cur *State, next *State) {
	tr := GetTransitionInsn(cur)
	tr.Targets = append(tr.Targets, next)
}

// NextState returns the unique successor of an unconditional state, or nil if
// the state has no successor or branches.
func NextState(st *State) *State {
	if tr := FindTransitionInsn(st); tr != nil && len(tr.Targets) == 1 {
		return tr.Targets[0]
	}
	//
	return nil
}

// AllocConstNum allocates a constant register of a given width in a table.
func AllocConstNum(tab *Table, width uint, value int64) *Register {
	reg := tab.NewRegister("", ValueType{Width: width})
	reg.Class = CONST
	reg.SetInitialValue(value)
	//
	return reg
}

// FindResourcesByClass returns every resource of a given class in a table.
func FindResourcesByClass(tab *Table, class string) []*Resource {
	var resources []*Resource
	//
	for _, res := range tab.Resources {
		if res.Class == class {
			resources = append(resources, res)
		}
	}
	//
	return resources
}
