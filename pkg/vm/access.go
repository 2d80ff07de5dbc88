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
)

// MemberRead reads a named member of the object held in the Object register
// (or the enclosing object when unused).  When the member is itself an
// object, the target register subsequently refers to that object.
type MemberRead struct {
	Target RegisterId
	Object RegisterId
	Label  string
}

// Uses implementation for Insn interface.
func (p *MemberRead) Uses() []RegisterId { return used(p.Object) }

// Definitions implementation for Insn interface.
func (p *MemberRead) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *MemberRead) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s.%s", regName(env, p.Target), objName(env, p.Object), p.Label)
}

func (p *MemberRead) isInsn() {}

// MemberWrite writes a register into a named member of an object.
type MemberWrite struct {
	Object RegisterId
	Label  string
	Source RegisterId
}

// Uses implementation for Insn interface.
func (p *MemberWrite) Uses() []RegisterId { return append(used(p.Object), p.Source) }

// Definitions implementation for Insn interface.
func (p *MemberWrite) Definitions() []RegisterId { return nil }

func (p *MemberWrite) String(env RegisterMap) string {
	return fmt.Sprintf("%s.%s = %s", objName(env, p.Object), p.Label, regName(env, p.Source))
}

func (p *MemberWrite) isInsn() {}

// ArrayRead reads an element of an in-object integer array.
type ArrayRead struct {
	Target RegisterId
	Object RegisterId
	Index  RegisterId
}

// Uses implementation for Insn interface.
func (p *ArrayRead) Uses() []RegisterId { return []RegisterId{p.Object, p.Index} }

// Definitions implementation for Insn interface.
func (p *ArrayRead) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *ArrayRead) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s[%s]", regName(env, p.Target), regName(env, p.Object), regName(env, p.Index))
}

func (p *ArrayRead) isInsn() {}

// ArrayWrite writes an element of an in-object integer array.
type ArrayWrite struct {
	Object RegisterId
	Index  RegisterId
	Source RegisterId
}

// Uses implementation for Insn interface.
func (p *ArrayWrite) Uses() []RegisterId { return []RegisterId{p.Object, p.Index, p.Source} }

// Definitions implementation for Insn interface.
func (p *ArrayWrite) Definitions() []RegisterId { return nil }

func (p *ArrayWrite) String(env RegisterMap) string {
	return fmt.Sprintf("%s[%s] = %s", regName(env, p.Object), regName(env, p.Index), regName(env, p.Source))
}

func (p *ArrayWrite) isInsn() {}

// MemoryRead reads a word of the externally backed memory.
type MemoryRead struct {
	Target RegisterId
	Index  RegisterId
}

// Uses implementation for Insn interface.
func (p *MemoryRead) Uses() []RegisterId { return []RegisterId{p.Index} }

// Definitions implementation for Insn interface.
func (p *MemoryRead) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *MemoryRead) String(env RegisterMap) string {
	return fmt.Sprintf("%s = *%s", regName(env, p.Target), regName(env, p.Index))
}

func (p *MemoryRead) isInsn() {}

// MemoryWrite writes a word of the externally backed memory.
type MemoryWrite struct {
	Index  RegisterId
	Source RegisterId
}

// Uses implementation for Insn interface.
func (p *MemoryWrite) Uses() []RegisterId { return []RegisterId{p.Index, p.Source} }

// Definitions implementation for Insn interface.
func (p *MemoryWrite) Definitions() []RegisterId { return nil }

func (p *MemoryWrite) String(env RegisterMap) string {
	return fmt.Sprintf("*%s = %s", regName(env, p.Index), regName(env, p.Source))
}

func (p *MemoryWrite) isInsn() {}

// ChannelRead reads a value from a channel object.
type ChannelRead struct {
	Target RegisterId
	Object RegisterId
}

// Uses implementation for Insn interface.
func (p *ChannelRead) Uses() []RegisterId { return []RegisterId{p.Object} }

// Definitions implementation for Insn interface.
func (p *ChannelRead) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *ChannelRead) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s.read()", regName(env, p.Target), regName(env, p.Object))
}

func (p *ChannelRead) isInsn() {}

// ChannelWrite writes a value to a channel object.
type ChannelWrite struct {
	Object RegisterId
	Source RegisterId
}

// Uses implementation for Insn interface.
func (p *ChannelWrite) Uses() []RegisterId { return []RegisterId{p.Object, p.Source} }

// Definitions implementation for Insn interface.
func (p *ChannelWrite) Definitions() []RegisterId { return nil }

func (p *ChannelWrite) String(env RegisterMap) string {
	return fmt.Sprintf("%s.write(%s)", regName(env, p.Object), regName(env, p.Source))
}

func (p *ChannelWrite) isInsn() {}
