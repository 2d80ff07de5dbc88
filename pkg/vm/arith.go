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

// BinaryOp identifies the operator of a binary instruction.
type BinaryOp uint8

// Supported binary operators.
const (
	ADD BinaryOp = iota
	SUB
	MUL
	EQ
	NE
	GT
	LT
	GTE
	LTE
	AND
	OR
	XOR
	LAND
	LOR
)

var binaryOpNames = []string{"+", "-", "*", "==", "!=", ">", "<", ">=", "<=", "&", "|", "^", "&&", "||"}

// IsComparison checks whether this operator produces a single-bit comparison
// result.
func (p BinaryOp) IsComparison() bool {
	switch p {
	case EQ, NE, GT, LT, GTE, LTE:
		return true
	}
	//
	return false
}

func (p BinaryOp) String() string {
	if int(p) < len(binaryOpNames) {
		return binaryOpNames[p]
	}
	//
	return fmt.Sprintf("op#%d", uint8(p))
}

// Num materialises a numeric constant held in a constant source register.
type Num struct {
	Target RegisterId
	Source RegisterId
}

// Uses implementation for Insn interface.
func (p *Num) Uses() []RegisterId { return []RegisterId{p.Source} }

// Definitions implementation for Insn interface.
func (p *Num) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *Num) String(env RegisterMap) string {
	return fmt.Sprintf("%s = num %s", regName(env, p.Target), regName(env, p.Source))
}

func (p *Num) isInsn() {}

// Assign copies the source register into the target register.
type Assign struct {
	Target RegisterId
	Source RegisterId
}

// Uses implementation for Insn interface.
func (p *Assign) Uses() []RegisterId { return []RegisterId{p.Source} }

// Definitions implementation for Insn interface.
func (p *Assign) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *Assign) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s", regName(env, p.Target), regName(env, p.Source))
}

func (p *Assign) isInsn() {}

// BinOp computes a binary arithmetic, logical or comparison operation.
type BinOp struct {
	Op     BinaryOp
	Target RegisterId
	Left   RegisterId
	Right  RegisterId
}

// Uses implementation for Insn interface.
func (p *BinOp) Uses() []RegisterId { return []RegisterId{p.Left, p.Right} }

// Definitions implementation for Insn interface.
func (p *BinOp) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *BinOp) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s %s %s", regName(env, p.Target), regName(env, p.Left), p.Op.String(),
		regName(env, p.Right))
}

func (p *BinOp) isInsn() {}

// Shift shifts the source register by a constant amount.
type Shift struct {
	Right  bool
	Target RegisterId
	Source RegisterId
	// Register holding the shift amount, which must be a constant.
	Amount RegisterId
}

// Uses implementation for Insn interface.
func (p *Shift) Uses() []RegisterId { return []RegisterId{p.Source, p.Amount} }

// Definitions implementation for Insn interface.
func (p *Shift) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *Shift) String(env RegisterMap) string {
	op := "<<"
	if p.Right {
		op = ">>"
	}
	//
	return fmt.Sprintf("%s = %s %s %s", regName(env, p.Target), regName(env, p.Source), op, regName(env, p.Amount))
}

func (p *Shift) isInsn() {}

// Concat concatenates the bits of two registers, with Left forming the most
// significant part.
type Concat struct {
	Target RegisterId
	Left   RegisterId
	Right  RegisterId
}

// Uses implementation for Insn interface.
func (p *Concat) Uses() []RegisterId { return []RegisterId{p.Left, p.Right} }

// Definitions implementation for Insn interface.
func (p *Concat) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *Concat) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s :: %s", regName(env, p.Target), regName(env, p.Left), regName(env, p.Right))
}

func (p *Concat) isInsn() {}

// PreIncDec increments (or decrements) a register in place.
type PreIncDec struct {
	Decrement bool
	Operand   RegisterId
}

// Uses implementation for Insn interface.
func (p *PreIncDec) Uses() []RegisterId { return []RegisterId{p.Operand} }

// Definitions implementation for Insn interface.
func (p *PreIncDec) Definitions() []RegisterId { return []RegisterId{p.Operand} }

func (p *PreIncDec) String(env RegisterMap) string {
	if p.Decrement {
		return fmt.Sprintf("--%s", regName(env, p.Operand))
	}
	//
	return fmt.Sprintf("++%s", regName(env, p.Operand))
}

func (p *PreIncDec) isInsn() {}

// BitRange extracts the bits [Msb:Lsb] of a register, where both bounds are
// held in constant registers.
type BitRange struct {
	Target RegisterId
	Source RegisterId
	Msb    RegisterId
	Lsb    RegisterId
}

// Uses implementation for Insn interface.
func (p *BitRange) Uses() []RegisterId { return []RegisterId{p.Source, p.Msb, p.Lsb} }

// Definitions implementation for Insn interface.
func (p *BitRange) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *BitRange) String(env RegisterMap) string {
	return fmt.Sprintf("%s = %s[%s:%s]", regName(env, p.Target), regName(env, p.Source), regName(env, p.Msb),
		regName(env, p.Lsb))
}

func (p *BitRange) isInsn() {}

// BitInv inverts a register, either bitwise or logically.
type BitInv struct {
	Logical bool
	Target  RegisterId
	Source  RegisterId
}

// Uses implementation for Insn interface.
func (p *BitInv) Uses() []RegisterId { return []RegisterId{p.Source} }

// Definitions implementation for Insn interface.
func (p *BitInv) Definitions() []RegisterId { return []RegisterId{p.Target} }

func (p *BitInv) String(env RegisterMap) string {
	if p.Logical {
		return fmt.Sprintf("%s = !%s", regName(env, p.Target), regName(env, p.Source))
	}
	//
	return fmt.Sprintf("%s = ~%s", regName(env, p.Target), regName(env, p.Source))
}

func (p *BitInv) isInsn() {}
