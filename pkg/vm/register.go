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
	"math"
)

// RegisterId identifies a register within the register file of a given method.
type RegisterId uint

// UNUSED_REGISTER is a marker used to indicate an absent register operand (for
// example, a call made on the enclosing object).
const UNUSED_REGISTER = RegisterId(math.MaxUint)

// IsUsed checks whether this identifies an actual register.
func (p RegisterId) IsUsed() bool {
	return p != UNUSED_REGISTER
}

// Register describes a typed virtual register in the register file of a
// method.  Registers are produced once by the bytecode compiler and are
// immutable thereafter.
type Register struct {
	// Name of the register (used for debugging only).
	Name string
	// Kind of value held by this register.
	Kind ValueKind
	// Declared bit width (numeric registers only).
	Width uint
	// Indicates this register holds a compile-time constant.
	Const bool
	// Constant (or initial) numeric value.
	Initial int64
}

// NewNumRegister constructs a numeric register of a given width.
func NewNumRegister(name string, width uint) Register {
	return Register{Name: name, Kind: NUM, Width: width}
}

// NewConstRegister constructs a constant numeric register of a given width.
func NewConstRegister(name string, width uint, value int64) Register {
	return Register{Name: name, Kind: NUM, Width: width, Const: true, Initial: value}
}

func (p Register) String() string {
	var constant string
	//
	if p.Const {
		constant = fmt.Sprintf(" const=%d", p.Initial)
	}
	//
	switch p.Kind {
	case NUM:
		return fmt.Sprintf("%s num:%d%s", p.Name, p.Width, constant)
	default:
		return fmt.Sprintf("%s %s%s", p.Name, p.Kind.String(), constant)
	}
}

// RegisterMap provides access to the registers referred to by instructions.
type RegisterMap interface {
	// Register returns the register with the given identifier.
	Register(RegisterId) *Register
}
