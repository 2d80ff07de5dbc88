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

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a pointer-free image of a design, suitable for deterministic
// binary serialisation.  Cross references are expressed by identifiers.
type Snapshot struct {
	Modules  []ModuleSnapshot  `cbor:"1,keyasint"`
	Channels []ChannelSnapshot `cbor:"2,keyasint,omitempty"`
}

// ModuleSnapshot is the image of a module.  A zero parent denotes the
// top-level module.
type ModuleSnapshot struct {
	Id     uint            `cbor:"1,keyasint"`
	Name   string          `cbor:"2,keyasint"`
	Parent uint            `cbor:"3,keyasint,omitempty"`
	Tables []TableSnapshot `cbor:"4,keyasint"`
}

// TableSnapshot is the image of a table.
type TableSnapshot struct {
	Id        uint               `cbor:"1,keyasint"`
	Name      string             `cbor:"2,keyasint"`
	Initial   uint               `cbor:"3,keyasint,omitempty"`
	Registers []RegisterSnapshot `cbor:"4,keyasint,omitempty"`
	Resources []ResourceSnapshot `cbor:"5,keyasint,omitempty"`
	States    []StateSnapshot    `cbor:"6,keyasint,omitempty"`
}

// RegisterSnapshot is the image of a register.
type RegisterSnapshot struct {
	Id      uint          `cbor:"1,keyasint"`
	Name    string        `cbor:"2,keyasint,omitempty"`
	Type    ValueType     `cbor:"3,keyasint"`
	Class   RegisterClass `cbor:"4,keyasint"`
	Initial *int64        `cbor:"5,keyasint,omitempty"`
}

// ResourceSnapshot is the image of a resource.
type ResourceSnapshot struct {
	Id      uint         `cbor:"1,keyasint"`
	Class   string       `cbor:"2,keyasint"`
	Inputs  []ValueType  `cbor:"3,keyasint,omitempty"`
	Outputs []ValueType  `cbor:"4,keyasint,omitempty"`
	Params  [][2]string  `cbor:"5,keyasint,omitempty"`
	Parent  *ResourceRef `cbor:"6,keyasint,omitempty"`
	Callee  *TableRef    `cbor:"7,keyasint,omitempty"`
	Array   *ArrayDesc   `cbor:"8,keyasint,omitempty"`
}

// StateSnapshot is the image of a state.
type StateSnapshot struct {
	Id    uint           `cbor:"1,keyasint"`
	Insns []InsnSnapshot `cbor:"2,keyasint,omitempty"`
}

// InsnSnapshot is the image of an instruction.
type InsnSnapshot struct {
	Id       uint   `cbor:"1,keyasint"`
	Resource uint   `cbor:"2,keyasint"`
	Operand  string `cbor:"3,keyasint,omitempty"`
	Targets  []uint `cbor:"4,keyasint,omitempty"`
	Inputs   []uint `cbor:"5,keyasint,omitempty"`
	Outputs  []uint `cbor:"6,keyasint,omitempty"`
}

// ChannelSnapshot is the image of a channel.
type ChannelSnapshot struct {
	Id     uint         `cbor:"1,keyasint"`
	Type   ValueType    `cbor:"2,keyasint"`
	Writer *ResourceRef `cbor:"3,keyasint,omitempty"`
	Reader *ResourceRef `cbor:"4,keyasint,omitempty"`
}

// TableRef identifies a table within a design.
type TableRef struct {
	Module uint `cbor:"1,keyasint"`
	Table  uint `cbor:"2,keyasint"`
}

// ResourceRef identifies a resource within a design.
type ResourceRef struct {
	Module   uint `cbor:"1,keyasint"`
	Table    uint `cbor:"2,keyasint"`
	Resource uint `cbor:"3,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("iroha: failed to create CBOR enc mode: %v", err))
	}
	//
	cborEncMode = em
}

// MarshalSnapshot serialises a design into canonical CBOR.
func MarshalSnapshot(design *Design) ([]byte, error) {
	return cborEncMode.Marshal(NewSnapshot(design))
}

// UnmarshalSnapshot deserialises a design from CBOR.
func UnmarshalSnapshot(data []byte) (*Design, error) {
	var snapshot Snapshot
	//
	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("iroha: unmarshal snapshot: %w", err)
	}
	//
	return snapshot.Design()
}

// NewSnapshot constructs the image of a given design.
func NewSnapshot(design *Design) *Snapshot {
	var snapshot Snapshot
	//
	for _, mod := range design.Modules {
		ms := ModuleSnapshot{Id: mod.Id, Name: mod.Name}
		//
		if mod.Parent != nil {
			ms.Parent = mod.Parent.Id
		}
		//
		for _, tab := range mod.Tables {
			ms.Tables = append(ms.Tables, tableSnapshot(tab))
		}
		//
		snapshot.Modules = append(snapshot.Modules, ms)
	}
	//
	for _, ch := range design.Channels {
		snapshot.Channels = append(snapshot.Channels, ChannelSnapshot{ch.Id, ch.Type, resourceRef(ch.Writer),
			resourceRef(ch.Reader)})
	}
	//
	return &snapshot
}

func tableSnapshot(tab *Table) TableSnapshot {
	ts := TableSnapshot{Id: tab.Id, Name: tab.Name}
	//
	if tab.Initial != nil {
		ts.Initial = tab.Initial.Id
	}
	//
	for _, reg := range tab.Registers {
		ts.Registers = append(ts.Registers, RegisterSnapshot{reg.Id, reg.Name, reg.Type, reg.Class, reg.Initial})
	}
	//
	for _, res := range tab.Resources {
		rs := ResourceSnapshot{
			Id:      res.Id,
			Class:   res.Class,
			Inputs:  res.InputTypes,
			Outputs: res.OutputTypes,
			Parent:  resourceRef(res.Parent),
			Array:   res.Array,
		}
		//
		for _, k := range res.Params.Keys() {
			v, _ := res.Params.Get(k)
			rs.Params = append(rs.Params, [2]string{k, v})
		}
		//
		if res.CalleeTable != nil {
			rs.Callee = &TableRef{res.CalleeTable.Module.Id, res.CalleeTable.Id}
		}
		//
		ts.Resources = append(ts.Resources, rs)
	}
	//
	for _, st := range tab.States {
		ss := StateSnapshot{Id: st.Id}
		//
		for _, insn := range st.Insns {
			is := InsnSnapshot{Id: insn.Id, Resource: insn.Resource.Id, Operand: insn.Operand}
			//
			for _, t := range insn.Targets {
				is.Targets = append(is.Targets, t.Id)
			}
			//
			for _, r := range insn.Inputs {
				is.Inputs = append(is.Inputs, r.Id)
			}
			//
			for _, r := range insn.Outputs {
				is.Outputs = append(is.Outputs, r.Id)
			}
			//
			ss.Insns = append(ss.Insns, is)
		}
		//
		ts.States = append(ts.States, ss)
	}
	//
	return ts
}

func resourceRef(res *Resource) *ResourceRef {
	if res == nil {
		return nil
	}
	//
	return &ResourceRef{res.Table.Module.Id, res.Table.Id, res.Id}
}

// Design reconstructs the design described by this snapshot.  An error is
// returned if any cross reference cannot be resolved.
func (p *Snapshot) Design() (*Design, error) {
	var (
		design  = NewDesign()
		modules = make(map[uint]*Module)
		tables  = make(map[TableRef]*Table)
	)
	// Allocate modules, tables, registers, resources and states.
	for _, ms := range p.Modules {
		mod := &Module{Id: ms.Id, Name: ms.Name, Design: design}
		modules[ms.Id] = mod
		design.Modules = append(design.Modules, mod)
		//
		for _, ts := range ms.Tables {
			tab := &Table{Id: ts.Id, Name: ts.Name, Module: mod}
			tables[TableRef{ms.Id, ts.Id}] = tab
			mod.Tables = append(mod.Tables, tab)
			//
			for _, rs := range ts.Registers {
				tab.Registers = append(tab.Registers, &Register{rs.Id, tab, rs.Name, rs.Type, rs.Class, rs.Initial})
			}
			//
			for _, rs := range ts.Resources {
				res := &Resource{Id: rs.Id, Table: tab, Class: rs.Class, InputTypes: rs.Inputs, OutputTypes: rs.Outputs,
					Params: NewResourceParams(), Array: rs.Array}
				//
				for _, kv := range rs.Params {
					res.Params.Set(kv[0], kv[1])
				}
				//
				tab.Resources = append(tab.Resources, res)
			}
			//
			for _, ss := range ts.States {
				tab.States = append(tab.States, &State{Id: ss.Id, Table: tab})
				tab.nstates = max(tab.nstates, ss.Id)
			}
		}
	}
	// Resolve cross references
	for _, ms := range p.Modules {
		if ms.Parent != 0 {
			if modules[ms.Id].Parent = modules[ms.Parent]; modules[ms.Id].Parent == nil {
				return nil, fmt.Errorf("iroha: unknown parent module %d", ms.Parent)
			}
		}
		//
		for _, ts := range ms.Tables {
			if err := p.resolveTable(tables, tables[TableRef{ms.Id, ts.Id}], ts); err != nil {
				return nil, err
			}
		}
	}
	//
	for _, cs := range p.Channels {
		ch := &Channel{Id: cs.Id, Type: cs.Type}
		ch.Writer = lookupResource(tables, cs.Writer)
		ch.Reader = lookupResource(tables, cs.Reader)
		//
		if (cs.Writer != nil && ch.Writer == nil) || (cs.Reader != nil && ch.Reader == nil) {
			return nil, fmt.Errorf("iroha: unresolved endpoint of channel %d", cs.Id)
		}
		//
		design.Channels = append(design.Channels, ch)
	}
	//
	return design, nil
}

func (p *Snapshot) resolveTable(tables map[TableRef]*Table, tab *Table, ts TableSnapshot) error {
	var (
		states    = make(map[uint]*State)
		registers = make(map[uint]*Register)
		resources = make(map[uint]*Resource)
	)
	//
	for _, st := range tab.States {
		states[st.Id] = st
	}
	//
	for _, reg := range tab.Registers {
		registers[reg.Id] = reg
	}
	//
	for _, res := range tab.Resources {
		resources[res.Id] = res
	}
	//
	for i, rs := range ts.Resources {
		res := tab.Resources[i]
		res.Parent = lookupResource(tables, rs.Parent)
		//
		if rs.Parent != nil && res.Parent == nil {
			return fmt.Errorf("iroha: unresolved parent of resource %d in %s", rs.Id, tab.String())
		} else if rs.Callee != nil {
			if res.CalleeTable = tables[*rs.Callee]; res.CalleeTable == nil {
				return fmt.Errorf("iroha: unresolved callee of resource %d in %s", rs.Id, tab.String())
			}
		}
	}
	//
	if ts.Initial != 0 {
		tab.Initial = states[ts.Initial]
	}
	//
	for i, ss := range ts.States {
		st := tab.States[i]
		//
		for _, is := range ss.Insns {
			insn := &Insn{Id: is.Id, Resource: resources[is.Resource], Operand: is.Operand}
			tab.ninsns = max(tab.ninsns, is.Id)
			//
			if insn.Resource == nil {
				return fmt.Errorf("iroha: unknown resource %d in %s", is.Resource, tab.String())
			}
			//
			for _, id := range is.Targets {
				if t := states[id]; t != nil {
					insn.Targets = append(insn.Targets, t)
				} else {
					return fmt.Errorf("iroha: unknown state %d in %s", id, tab.String())
				}
			}
			//
			inputs, ok1 := lookupRegisters(registers, is.Inputs)
			outputs, ok2 := lookupRegisters(registers, is.Outputs)
			//
			if !ok1 || !ok2 {
				return fmt.Errorf("iroha: unknown register in %s", tab.String())
			}
			//
			insn.Inputs, insn.Outputs = inputs, outputs
			st.Insns = append(st.Insns, insn)
		}
	}
	//
	return nil
}

func lookupResource(tables map[TableRef]*Table, ref *ResourceRef) *Resource {
	if ref == nil {
		return nil
	}
	//
	if tab := tables[TableRef{ref.Module, ref.Table}]; tab != nil {
		for _, res := range tab.Resources {
			if res.Id == ref.Resource {
				return res
			}
		}
	}
	//
	return nil
}

// Lookup a sequence of registers, returning false if any is unknown.
func lookupRegisters(registers map[uint]*Register, ids []uint) ([]*Register, bool) {
	var regs []*Register
	//
	for _, id := range ids {
		reg := registers[id]
		if reg == nil {
			return nil, false
		}
		//
		regs = append(regs, reg)
	}
	//
	return regs, true
}
