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

// Address and data width of the external memory array.
const (
	EXT_MEMORY_ADDRESS_WIDTH = 32
	EXT_MEMORY_DATA_WIDTH    = 32
)

// ResourceSet allocates the resources of a single table, such that
// instructions needing equivalent resources share a single one.
type ResourceSet struct {
	tab       *iroha.Table
	resources map[resourceKey]*iroha.Resource
}

// Identifies equivalent resources
type resourceKey struct {
	class string
	name  string
	obj   vm.ObjectId
	vt    iroha.ValueType
}

// NewResourceSet constructs an empty resource set for a given table.
func NewResourceSet(tab *iroha.Table) *ResourceSet {
	return &ResourceSet{tab, make(map[resourceKey]*iroha.Resource)}
}

// Table returns the table whose resources are managed by this set.
func (p *ResourceSet) Table() *iroha.Table {
	return p.tab
}

// AssignResource returns the register assignment resource.
func (p *ResourceSet) AssignResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.ASSIGN}, nil)
}

// PseudoResource returns the resource for placeholder instructions, which
// carry the operands of method entries and calls until they are expanded.
func (p *ResourceSet) PseudoResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.PSEUDO}, nil)
}

// TransitionResource returns the transition resource of the table.
func (p *ResourceSet) TransitionResource() *iroha.Resource {
	return p.tab.TransitionResource()
}

// GetOpResource returns an operator resource of a given class operating on
// values of a given type.
func (p *ResourceSet) GetOpResource(class string, vt iroha.ValueType) *iroha.Resource {
	return p.get(resourceKey{class: class, vt: vt}, func(res *iroha.Resource) {
		switch class {
		case iroha.ADD, iroha.SUB, iroha.MUL, iroha.AND, iroha.OR, iroha.XOR:
			res.InputTypes = []iroha.ValueType{vt, vt}
			res.OutputTypes = []iroha.ValueType{vt}
		case iroha.GT, iroha.EQ:
			res.InputTypes = []iroha.ValueType{vt, vt}
			res.OutputTypes = []iroha.ValueType{{}}
		case iroha.BIT_INV:
			res.InputTypes = []iroha.ValueType{vt}
			res.OutputTypes = []iroha.ValueType{vt}
		}
	})
}

// GetMemberSharedReg returns the resource through which a member shared
// between threads is accessed.  The owning thread holds the register itself,
// whilst other threads use a reader or writer of it.
func (p *ResourceSet) GetMemberSharedReg(key SharedKey, owner bool, write bool) *iroha.Resource {
	var class = iroha.SHARED_REG
	//
	switch {
	case owner:
	case write:
		class = iroha.SHARED_REG_WRITER
	default:
		class = iroha.SHARED_REG_READER
	}
	//
	return p.get(resourceKey{class: class, name: key.Member, obj: key.Object}, func(res *iroha.Resource) {
		res.Params.Set(iroha.PARAM_MEMBER, key.Member)
	})
}

// GetSharedArray returns the resource through which an array shared between
// threads (or transferred over AXI) is accessed.
func (p *ResourceSet) GetSharedArray(array *vm.Object, owner bool, write bool) *iroha.Resource {
	var class = iroha.SHARED_MEMORY
	//
	switch {
	case owner:
	case write:
		class = iroha.SHARED_MEMORY_WRITER
	default:
		class = iroha.SHARED_MEMORY_READER
	}
	//
	return p.get(resourceKey{class: class, obj: array.Id()}, func(res *iroha.Resource) {
		if owner {
			res.Array = arrayDesc(array, false)
		}
		//
		res.Params.Set(iroha.PARAM_MEMBER, array.Name)
	})
}

// GetInternalArrayResource returns the resource for an array accessed only by
// this table.
func (p *ResourceSet) GetInternalArrayResource(array *vm.Object) *iroha.Resource {
	return p.get(resourceKey{class: iroha.ARRAY, obj: array.Id()}, func(res *iroha.Resource) {
		res.Array = arrayDesc(array, false)
		res.Params.Set(iroha.PARAM_MEMBER, array.Name)
	})
}

// GetExternalArrayResource returns the resource for the external memory.
func (p *ResourceSet) GetExternalArrayResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.ARRAY, name: "$memory"}, func(res *iroha.Resource) {
		res.Array = &iroha.ArrayDesc{
			AddressWidth: EXT_MEMORY_ADDRESS_WIDTH,
			Data:         iroha.ValueType{Width: EXT_MEMORY_DATA_WIDTH},
			External:     true,
		}
	})
}

// GetChannelResource returns the resource for one end of a channel.
func (p *ResourceSet) GetChannelResource(channel *vm.Object, write bool, width uint) *iroha.Resource {
	var class = iroha.CHANNEL_READ
	//
	if write {
		class = iroha.CHANNEL_WRITE
	}
	//
	return p.get(resourceKey{class: class, obj: channel.Id()}, func(res *iroha.Resource) {
		vt := iroha.ValueType{Width: width}
		//
		if write {
			res.InputTypes = []iroha.ValueType{vt}
		} else {
			res.OutputTypes = []iroha.ValueType{vt}
		}
		//
		res.Params.SetWidth(width)
	})
}

// GetImportedResource returns the resource embedding the external module which
// implements a given method.
func (p *ResourceSet) GetImportedResource(method *vm.Method) *iroha.Resource {
	return p.get(resourceKey{class: iroha.EMBEDDED, name: method.Imported}, func(res *iroha.Resource) {
		res.Params.Set(iroha.PARAM_EMBEDDED_MODULE, method.Imported)
	})
}

// GetSubModuleTaskResource returns the resource through which this table is
// invoked as a task.
func (p *ResourceSet) GetSubModuleTaskResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.SUB_MODULE_TASK}, nil)
}

// GetTaskReturnResource returns the resource through which a task table hands
// its return values back to the caller.
func (p *ResourceSet) GetTaskReturnResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.TASK_RETURN}, nil)
}

// GetDataFlowInResource returns the resource through which this table is
// notified of data-flow calls, along with the shared register carrying the
// arguments.
func (p *ResourceSet) GetDataFlowInResource(width uint) *iroha.Resource {
	return p.get(resourceKey{class: iroha.DATAFLOW_IN}, func(res *iroha.Resource) {
		sreg := p.get(resourceKey{class: iroha.SHARED_REG, name: "$dataflow"}, nil)
		sreg.Params.SetWidth(width)
		res.Parent = sreg
	})
}

// GetExtTaskResource returns the resource through which this table is invoked
// from outside the design.
func (p *ResourceSet) GetExtTaskResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.EXT_TASK}, nil)
}

// GetExtTaskDoneResource returns the resource through which this table
// signals completion to the outside of the design.
func (p *ResourceSet) GetExtTaskDoneResource() *iroha.Resource {
	return p.get(resourceKey{class: iroha.EXT_TASK_DONE}, nil)
}

// GetExtIOResource returns the resource for an external input or output port.
func (p *ResourceSet) GetExtIOResource(port string, output bool, width uint) *iroha.Resource {
	var class = iroha.EXT_INPUT
	//
	if output {
		class = iroha.EXT_OUTPUT
	}
	//
	return p.get(resourceKey{class: class, name: port}, func(res *iroha.Resource) {
		res.Params.Set(iroha.PARAM_PORT_NAME, port)
		res.Params.SetWidth(width)
	})
}

// GetAxiPort returns the AXI master (or slave) port of a given array.
func (p *ResourceSet) GetAxiPort(array *vm.Object, master bool) *iroha.Resource {
	var class = iroha.AXI_SLAVE_PORT
	//
	if master {
		class = iroha.AXI_MASTER_PORT
	}
	//
	return p.get(resourceKey{class: class, obj: array.Id()}, func(res *iroha.Resource) {
		res.Array = arrayDesc(array, true)
		res.Params.Set(iroha.PARAM_PORT_NAME, array.Name)
	})
}

// GetNativeResource returns the resource implementing a built-in operation
// (e.g. print or assert).
func (p *ResourceSet) GetNativeResource(class string) *iroha.Resource {
	return p.get(resourceKey{class: class}, nil)
}

func (p *ResourceSet) get(key resourceKey, init func(*iroha.Resource)) *iroha.Resource {
	if res, ok := p.resources[key]; ok {
		return res
	}
	//
	res := p.tab.NewResource(key.class)
	//
	if init != nil {
		init(res)
	}
	//
	p.resources[key] = res
	//
	return res
}

func arrayDesc(array *vm.Object, external bool) *iroha.ArrayDesc {
	return &iroha.ArrayDesc{
		AddressWidth: array.AddressWidth(),
		Data:         iroha.ValueType{Width: array.Width},
		External:     external,
	}
}
