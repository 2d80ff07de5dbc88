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
	"fmt"
	"strings"
)

// Insn represents a single bytecode instruction operating over the virtual
// registers of a method.  The set of instructions is closed: only types in
// this package implement it, and consumers dispatch over them with an
// exhaustive type switch.
type Insn interface {
	// Uses returns the registers read by this instruction.
	Uses() []RegisterId
	// Definitions returns the registers written by this instruction.
	Definitions() []RegisterId
	// String produces a suitable string representation of this instruction.
	// This is primarily used for debugging.
	String(env RegisterMap) string
	// seals this interface
	isInsn()
}

// ============================================================================
// Control flow
// ============================================================================

// Nop does nothing.
type Nop struct{}

// Uses implementation for Insn interface.
func (p *Nop) Uses() []RegisterId { return nil }

// Definitions implementation for Insn interface.
func (p *Nop) Definitions() []RegisterId { return nil }

func (p *Nop) String(env RegisterMap) string { return "nop" }

func (p *Nop) isInsn() {}

// Goto unconditionally transfers control to the instruction at a given index.
type Goto struct {
	Target uint
}

// Uses implementation for Insn interface.
func (p *Goto) Uses() []RegisterId { return nil }

// Definitions implementation for Insn interface.
func (p *Goto) Definitions() []RegisterId { return nil }

func (p *Goto) String(env RegisterMap) string {
	return fmt.Sprintf("goto %d", p.Target)
}

func (p *Goto) isInsn() {}

// If transfers control to the instruction at a given index when the condition
// register holds.  Otherwise, control falls through to the next instruction.
type If struct {
	Cond   RegisterId
	Target uint
}

// Uses implementation for Insn interface.
func (p *If) Uses() []RegisterId { return []RegisterId{p.Cond} }

// Definitions implementation for Insn interface.
func (p *If) Definitions() []RegisterId { return nil }

func (p *If) String(env RegisterMap) string {
	return fmt.Sprintf("if %s goto %d", regName(env, p.Cond), p.Target)
}

func (p *If) isInsn() {}

// LoadObj loads an object reference into a register.  An empty label denotes
// the enclosing object, otherwise the label names a member object of the
// object held in the Object register (or of the enclosing object when that is
// unused).
type LoadObj struct {
	Target RegisterId
	Object RegisterId
	Label  string
}

// Uses implementation for Insn interface.
func (p *LoadObj) Uses() []RegisterId { return used(p.Object) }

// Definitions implementation for Insn interface.
func (p *LoadObj) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *LoadObj) String(env RegisterMap) string {
	if p.Label == "" {
		return fmt.Sprintf("%s = load_obj this", regName(env, p.Target))
	}
	//
	return fmt.Sprintf("%s = load_obj %s.%s", regName(env, p.Target), objName(env, p.Object), p.Label)
}

func (p *LoadObj) isInsn() {}

// Funcall invokes a named method on an object, passing zero or more argument
// registers.  Results are bound by the FuncallDone which immediately follows.
type Funcall struct {
	// Object on which the method is invoked (UNUSED_REGISTER for the enclosing
	// object).
	Object RegisterId
	Label  string
	Args   []RegisterId
}

// Uses implementation for Insn interface.
func (p *Funcall) Uses() []RegisterId { return append(used(p.Object), p.Args...) }

// Definitions implementation for Insn interface.
func (p *Funcall) Definitions() []RegisterId { return nil }

func (p *Funcall) String(env RegisterMap) string {
	return fmt.Sprintf("funcall %s.%s(%s)", objName(env, p.Object), p.Label, regNames(env, p.Args))
}

func (p *Funcall) isInsn() {}

// FuncallDone binds the results of the immediately preceding Funcall.
type FuncallDone struct {
	Returns []RegisterId
}

// Uses implementation for Insn interface.
func (p *FuncallDone) Uses() []RegisterId { return nil }

// Definitions implementation for Insn interface.
func (p *FuncallDone) Definitions() []RegisterId { return p.Returns }

func (p *FuncallDone) String(env RegisterMap) string {
	return fmt.Sprintf("funcall_done (%s)", regNames(env, p.Returns))
}

func (p *FuncallDone) isInsn() {}

// ============================================================================
// Helpers
// ============================================================================

func used(reg RegisterId) []RegisterId {
	if reg.IsUsed() {
		return []RegisterId{reg}
	}
	//
	return nil
}

func regName(env RegisterMap, id RegisterId) string {
	if env != nil && id.IsUsed() {
		if reg := env.Register(id); reg != nil && reg.Name != "" {
			return reg.Name
		}
	}
	//
	return fmt.Sprintf("r%d", id)
}

func objName(env RegisterMap, id RegisterId) string {
	if !id.IsUsed() {
		return "this"
	}
	//
	return regName(env, id)
}

func regNames(env RegisterMap, ids []RegisterId) string {
	var names = make([]string, len(ids))
	//
	for i, id := range ids {
		names[i] = regName(env, id)
	}
	//
	return strings.Join(names, ",")
}
