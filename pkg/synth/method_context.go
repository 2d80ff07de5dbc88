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
	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/vm"
)

// StateWrapper annotates a state synthesized for a method with the information
// needed to resolve jumps and calls afterwards.
type StateWrapper struct {
	State *iroha.State
	// Jump or branch which produced this state (if any).
	Insn vm.Insn
	// Method invoked from this state (if any).
	CalleeName string
	CalleeObj  *vm.Object
	// Indicates the callee belongs to a member object, and names the member.
	IsSubObjCall bool
	ObjName      string
}

// IsCall checks whether this state invokes a (non-native) method.
func (p *StateWrapper) IsCall() bool {
	return p.CalleeName != ""
}

// MethodContext holds the states synthesized for a single method, in program
// order, together with the placeholder instruction describing its entry
// (i.e. the registers holding its arguments and return values).
type MethodContext struct {
	Method     *vm.Method
	Object     *vm.Object
	States     []*StateWrapper
	MethodInsn *iroha.Insn
}

// LastState returns the most recently allocated state, or nil if there are
// none.
func (p *MethodContext) LastState() *StateWrapper {
	if n := len(p.States); n > 0 {
		return p.States[n-1]
	}
	//
	return nil
}

// TableCall is a call from one table to another which is wired up once every
// table of the design has been synthesized.
type TableCall struct {
	// Caller state (in the caller table)
	State *iroha.State
	// Argument and return registers (in the caller table)
	Inputs  []*iroha.Register
	Outputs []*iroha.Register
	// Callee
	Callee  *vm.Object
	Method  string
	ObjName string
}
