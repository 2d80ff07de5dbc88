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

import (
	"fmt"
	"strconv"
)

// Resource classes understood by the backend.
const (
	TRANSITION           = "tr"
	ASSIGN               = "set"
	PSEUDO               = "pseudo"
	ADD                  = "add"
	SUB                  = "sub"
	MUL                  = "mul"
	GT                   = "gt"
	EQ                   = "eq"
	AND                  = "and"
	OR                   = "or"
	XOR                  = "xor"
	BIT_INV              = "bit-inv"
	SHIFT                = "shift"
	BIT_CONCAT           = "bit-concat"
	BIT_SEL              = "bit-sel"
	ARRAY                = "array"
	SHARED_REG           = "shared-reg"
	SHARED_REG_READER    = "shared-reg-reader"
	SHARED_REG_WRITER    = "shared-reg-writer"
	SHARED_MEMORY        = "shared-memory"
	SHARED_MEMORY_READER = "shared-memory-reader"
	SHARED_MEMORY_WRITER = "shared-memory-writer"
	CHANNEL_READ         = "channel-read"
	CHANNEL_WRITE        = "channel-write"
	SUB_MODULE_TASK      = "sub-module-task"
	SUB_MODULE_TASK_CALL = "sub-module-task-call"
	TASK_RETURN          = "task-return"
	TASK_RETURN_VALUE    = "task-return-value"
	DATAFLOW_IN          = "dataflow-in"
	EXT_INPUT            = "ext-input"
	EXT_OUTPUT           = "ext-output"
	EXT_TASK             = "ext-task"
	EXT_TASK_DONE        = "ext-task-done"
	AXI_MASTER_PORT      = "axi-master-port"
	AXI_SLAVE_PORT       = "axi-slave-port"
	PRINT                = "print"
	ASSERT               = "assert"
	WAIT                 = "wait-cycles"
	EMBEDDED             = "embedded"
)

// Instruction operands.
const (
	OPERAND_METHOD_ENTRY = "method_entry"
	OPERAND_WAIT_NOTIFY  = "wait_notify"
	OPERAND_NOTIFY       = "notify"
	OPERAND_LEFT         = "left"
	OPERAND_RIGHT        = "right"
	OPERAND_READ         = "read"
	OPERAND_WRITE        = "write"
)

// Resource parameter keys.
const (
	PARAM_WIDTH           = "WIDTH"
	PARAM_PORT_NAME       = "PORT-NAME"
	PARAM_EMBEDDED_MODULE = "EMBEDDED-MODULE"
	PARAM_MEMBER          = "MEMBER"
	PARAM_CHANNEL         = "CHANNEL"
)

// Resource is a synthesizable unit (e.g. an ALU, a memory port or a shared
// register) which instructions are bound to.
type Resource struct {
	Id          uint
	Table       *Table
	Class       string
	InputTypes  []ValueType
	OutputTypes []ValueType
	Params      *ResourceParams
	// Resource in another table which this resource accesses (e.g. the owner
	// of a shared register, or the source of a data-flow notification).
	Parent *Resource
	// Table invoked by a task call.
	CalleeTable *Table
	// Array accessed by memory resources.
	Array *ArrayDesc
}

// IsTransition checks whether this is the transition resource of its table.
func (p *Resource) IsTransition() bool {
	return p.Class == TRANSITION
}

func (p *Resource) String() string {
	return fmt.Sprintf("%s:%d", p.Class, p.Id)
}

// ArrayDesc describes an array backing an array, shared memory or AXI port
// resource.
type ArrayDesc struct {
	AddressWidth uint
	Data         ValueType
	External     bool
}

// ResourceParams is an ordered set of key/value parameters.
type ResourceParams struct {
	keys   []string
	values map[string]string
}

// NewResourceParams constructs an empty set of parameters.
func NewResourceParams() *ResourceParams {
	return &ResourceParams{values: make(map[string]string)}
}

// Set a parameter, retaining the position of any existing key.
func (p *ResourceParams) Set(key string, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	//
	p.values[key] = value
}

// Get the value of a parameter.
func (p *ResourceParams) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// SetWidth sets the width parameter.
func (p *ResourceParams) SetWidth(width uint) {
	p.Set(PARAM_WIDTH, strconv.FormatUint(uint64(width), 10))
}

// Width returns the width parameter, or zero if none is set.
func (p *ResourceParams) Width() uint {
	if v, ok := p.values[PARAM_WIDTH]; ok {
		if w, err := strconv.ParseUint(v, 10, 32); err == nil {
			return uint(w)
		}
	}
	//
	return 0
}

// Keys returns the parameter keys in the order they were first set.
func (p *ResourceParams) Keys() []string {
	return p.keys
}
