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
	"math/bits"
)

// ObjectId identifies an object within a VM.
type ObjectId uint

// ObjectKind identifies the kind of an object.
type ObjectKind uint8

const (
	// PLAIN objects hold named members and methods.
	PLAIN ObjectKind = iota
	// INT_ARRAY objects are fixed-length arrays of integers.
	INT_ARRAY
	// CHANNEL objects are point-to-point FIFOs between threads.
	CHANNEL
)

func (p ObjectKind) String() string {
	switch p {
	case PLAIN:
		return "object"
	case INT_ARRAY:
		return "array"
	case CHANNEL:
		return "channel"
	}
	//
	return fmt.Sprintf("kind#%d", uint8(p))
}

// Slot is a named member of an object.
type Slot struct {
	Name  string
	Value Value
}

// ThreadDecl declares a thread running a given entry method of an object.
type ThreadDecl struct {
	Name   string
	Method string
}

// Object is a node in the object graph of a VM.  Members are kept in
// declaration order, which determines the order in which they are visited
// during synthesis.
type Object struct {
	id   ObjectId
	Name string
	Kind ObjectKind
	// Element width of an array, or data width of a channel.
	Width uint
	// Number of elements of an array.
	Length uint
	// Arrays annotated as externally accessible through an AXI port.
	AxiMaster bool
	AxiSlave  bool
	// Threads declared on this object.
	Threads []ThreadDecl
	//
	slots []Slot
	index map[string]int
}

// Id returns the identifier of this object.
func (p *Object) Id() ObjectId {
	return p.id
}

// IsIntArray checks whether this object is an integer array.
func (p *Object) IsIntArray() bool {
	return p.Kind == INT_ARRAY
}

// IsChannel checks whether this object is a channel.
func (p *Object) IsChannel() bool {
	return p.Kind == CHANNEL
}

// AddressWidth returns the number of address bits needed to index every
// element of an array.
func (p *Object) AddressWidth() uint {
	if p.Length <= 1 {
		return 0
	}
	//
	return uint(bits.Len(p.Length - 1))
}

// Set assigns a value to a named member, declaring it if necessary.
func (p *Object) Set(name string, value Value) {
	if i, ok := p.index[name]; ok {
		p.slots[i].Value = value
		return
	}
	//
	p.index[name] = len(p.slots)
	p.slots = append(p.slots, Slot{name, value})
}

// Lookup the value of a named member.
func (p *Object) Lookup(name string) (Value, bool) {
	if i, ok := p.index[name]; ok {
		return p.slots[i].Value, true
	}
	//
	return Value{}, false
}

// LookupMethod returns the named method of this object, or nil if there is no
// such method.
func (p *Object) LookupMethod(name string) *Method {
	if v, ok := p.Lookup(name); ok && v.Kind == METHOD {
		return v.Method
	}
	//
	return nil
}

// AddMethod declares a method member.
func (p *Object) AddMethod(method *Method) {
	p.Set(method.Name, NewMethodValue(method))
}

// Slots returns the members of this object in declaration order.
func (p *Object) Slots() []Slot {
	return p.slots
}

// Methods returns the methods of this object in declaration order.
func (p *Object) Methods() []*Method {
	var methods []*Method
	//
	for _, s := range p.slots {
		if s.Value.Kind == METHOD {
			methods = append(methods, s.Value.Method)
		}
	}
	//
	return methods
}

func (p *Object) String() string {
	return fmt.Sprintf("%s#%d", p.Name, p.id)
}
