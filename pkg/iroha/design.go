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
)

// Design is the root of a synthesized design.  It consists of a hierarchy of
// modules, each holding one table (i.e. state machine) per thread, along with
// the channels which connect tables together.
type Design struct {
	Modules  []*Module
	Channels []*Channel
}

// NewDesign constructs an empty design.
func NewDesign() *Design {
	return &Design{}
}

// NewModule allocates a new module within this design.  A nil parent denotes
// the top-level module.
func (p *Design) NewModule(name string, parent *Module) *Module {
	mod := &Module{
		Id:     uint(len(p.Modules) + 1),
		Name:   name,
		Parent: parent,
		Design: p,
	}
	//
	p.Modules = append(p.Modules, mod)
	//
	return mod
}

// NewChannel allocates a new channel of a given data width.
func (p *Design) NewChannel(width uint) *Channel {
	ch := &Channel{Id: uint(len(p.Channels) + 1), Type: ValueType{Width: width}}
	p.Channels = append(p.Channels, ch)
	//
	return ch
}

// Module corresponds to a single object of the source design.
type Module struct {
	Id     uint
	Name   string
	Parent *Module
	Design *Design
	Tables []*Table
}

// NewTable allocates a new (empty) table within this module.
func (p *Module) NewTable(name string) *Table {
	tab := &Table{
		Id:     uint(len(p.Tables) + 1),
		Name:   name,
		Module: p,
	}
	//
	p.Tables = append(p.Tables, tab)
	//
	return tab
}

func (p *Module) String() string {
	return fmt.Sprintf("%s#%d", p.Name, p.Id)
}

// Table is a state machine.  States, registers and resources are numbered
// independently within a table.
type Table struct {
	Id        uint
	Name      string
	Module    *Module
	States    []*State
	Registers []*Register
	Resources []*Resource
	Initial   *State
	// Counters used for allocating identifiers
	nstates uint
	ninsns  uint
}

// NewState allocates a fresh state of this table.  Observe that the state is
// not added to the table, which must be done explicitly with AddState.
func (p *Table) NewState() *State {
	p.nstates++
	//
	return &State{Id: p.nstates, Table: p}
}

// AddState adds a given state to this table.  The first state added becomes
// the initial state, unless one is set already.
func (p *Table) AddState(st *State) {
	if st.Table != p {
		panic("state from different table")
	}
	//
	if p.Initial == nil {
		p.Initial = st
	}
	//
	p.States = append(p.States, st)
}

// NewRegister allocates a new register of a given type in this table.
func (p *Table) NewRegister(name string, vt ValueType) *Register {
	reg := &Register{
		Id:    uint(len(p.Registers) + 1),
		Table: p,
		Name:  name,
		Type:  vt,
		Class: REGISTER,
	}
	//
	p.Registers = append(p.Registers, reg)
	//
	return reg
}

// NewResource allocates a new resource of a given class in this table.
func (p *Table) NewResource(class string) *Resource {
	res := &Resource{
		Id:     uint(len(p.Resources) + 1),
		Table:  p,
		Class:  class,
		Params: NewResourceParams(),
	}
	//
	p.Resources = append(p.Resources, res)
	//
	return res
}

// TransitionResource returns the (unique) transition resource of this table,
// creating it if necessary.
func (p *Table) TransitionResource() *Resource {
	for _, res := range p.Resources {
		if res.Class == TRANSITION {
			return res
		}
	}
	//
	return p.NewResource(TRANSITION)
}

func (p *Table) String() string {
	return fmt.Sprintf("%s.%s", p.Module.Name, p.Name)
}

// State is a single node of a state machine, which executes its instructions
// in parallel.
type State struct {
	Id    uint
	Table *Table
	Insns []*Insn
}

// Add one or more instructions to this state.
func (p *State) Add(insns ...*Insn) {
	p.Insns = append(p.Insns, insns...)
}

// Insn is an operation bound to a resource, reading its input registers and
// writing its output registers.  Transition instructions additionally carry
// the successor states.
type Insn struct {
	Id       uint
	Resource *Resource
	Operand  string
	Inputs   []*Register
	Outputs  []*Register
	Targets  []*State
}

// NewInsn allocates a new instruction for a given resource.
func NewInsn(res *Resource) *Insn {
	res.Table.ninsns++
	//
	return &Insn{Id: res.Table.ninsns, Resource: res}
}

// RegisterClass distinguishes ordinary registers from constants and wires.
type RegisterClass uint8

const (
	// REGISTER holds its value across states.
	REGISTER RegisterClass = iota
	// CONST holds a fixed value.
	CONST
	// WIRE holds its value only within a single state.
	WIRE
)

// ValueType describes the width and signedness of a register or resource
// port.  A width of zero denotes a single-bit boolean.
type ValueType struct {
	Width  uint
	Signed bool
}

// Register is a storage element of a table.
type Register struct {
	Id      uint
	Table   *Table
	Name    string
	Type    ValueType
	Class   RegisterClass
	Initial *int64
}

// SetInitialValue assigns the value held by this register on reset.
func (p *Register) SetInitialValue(value int64) {
	p.Initial = &value
}

// IsConst checks whether this register is a constant.
func (p *Register) IsConst() bool {
	return p.Class == CONST
}

func (p *Register) String() string {
	if p.IsConst() && p.Initial != nil {
		return fmt.Sprintf("#%d", *p.Initial)
	}
	//
	return p.Name
}

// Channel connects a writer resource in one table with a reader resource in
// another.  Either end may be missing, in which case it is an external port.
type Channel struct {
	Id     uint
	Type   ValueType
	Writer *Resource
	Reader *Resource
}
