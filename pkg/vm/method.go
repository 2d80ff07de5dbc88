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

// DeclType identifies the declared type of a method argument or return value.
type DeclType uint8

const (
	// TYPE_INT is a fixed-width integer.
	TYPE_INT DeclType = iota
	// TYPE_BOOL is a single-bit boolean.
	TYPE_BOOL
	// TYPE_OBJECT is an object reference.
	TYPE_OBJECT
	// TYPE_STRING is a string.
	TYPE_STRING
)

func (p DeclType) String() string {
	switch p {
	case TYPE_INT:
		return "int"
	case TYPE_BOOL:
		return "bool"
	case TYPE_OBJECT:
		return "object"
	case TYPE_STRING:
		return "string"
	}
	//
	return fmt.Sprintf("type#%d", uint8(p))
}

// VarDecl describes a declared method argument or return value.
type VarDecl struct {
	Name  string
	Type  DeclType
	Width uint
}

// Names of the built-in native operations.
const (
	NATIVE_PRINT     = "print"
	NATIVE_ASSERT    = "assert"
	NATIVE_WAIT      = "wait"
	NATIVE_AXI_LOAD  = "load"
	NATIVE_AXI_STORE = "store"
)

// Annotation captures the synthesis-relevant annotations of a method.
type Annotation struct {
	// Entry point of a data-flow thread.
	DataFlowEntry bool
	// Entry point invoked from outside the design.
	ExtEntry bool
	// Method which reads an external input port.
	ExtInput bool
	// Method which writes an external output port.
	ExtOutput bool
	// Name of the external port (defaults to the method name).
	Port string
}

// IsExtIO checks whether this annotation marks an external input or output.
func (p Annotation) IsExtIO() bool {
	return p.ExtInput || p.ExtOutput
}

// Method represents a compiled method.  The register file places argument
// registers first, followed by return registers, followed by any locals.
type Method struct {
	Name      string
	Args      []VarDecl
	Returns   []VarDecl
	Registers []Register
	Code      []Insn
	// Native names the built-in operation implementing this method, if any.
	Native string
	// AltImpl names a method of the same object which provides a
	// synthesizable implementation for this native method.
	AltImpl string
	// Imported names an external module implementing this method.
	Imported   string
	Annotation Annotation
}

// IsNative checks whether this method has no compiled body of its own.
func (p *Method) IsNative() bool {
	return p.Native != "" || p.AltImpl != ""
}

// IsBuiltin checks whether this is one of the native operations which objects
// carry without declaring them.
func (p *Method) IsBuiltin() bool {
	switch p.Name {
	case NATIVE_PRINT, NATIVE_ASSERT, NATIVE_WAIT, NATIVE_AXI_LOAD, NATIVE_AXI_STORE:
		return p.Native == p.Name && p.AltImpl == "" && !p.IsImported() && len(p.Code) == 0
	}
	//
	return false
}

// IsImported checks whether this method is implemented by an external module.
func (p *Method) IsImported() bool {
	return p.Imported != ""
}

// Register returns the register with the given identifier, or nil if no such
// register exists.
func (p *Method) Register(id RegisterId) *Register {
	if id < RegisterId(len(p.Registers)) {
		return &p.Registers[id]
	}
	//
	return nil
}

// NumArgRegisters returns the number of argument registers.
func (p *Method) NumArgRegisters() uint {
	return uint(len(p.Args))
}

// NumReturnRegisters returns the number of return registers.
func (p *Method) NumReturnRegisters() uint {
	return uint(len(p.Returns))
}

// ReturnRegister returns the identifier of the ith return register.
func (p *Method) ReturnRegister(i uint) RegisterId {
	return RegisterId(p.NumArgRegisters() + i)
}

func (p *Method) String() string {
	var (
		builder strings.Builder
		nargs   = p.NumArgRegisters()
		nrets   = p.NumReturnRegisters()
	)
	//
	builder.WriteString("method insns\n")
	//
	for i, insn := range p.Code {
		builder.WriteString(fmt.Sprintf("  %d:%s\n", i, insn.String(p)))
	}
	//
	for i, reg := range p.Registers {
		var flag string
		//
		if uint(i) < nargs {
			flag = "a"
		} else if uint(i) < nargs+nrets {
			flag = "r"
		}
		//
		builder.WriteString(fmt.Sprintf("  r%d%s:%s\n", i, flag, reg.String()))
	}
	//
	return builder.String()
}
