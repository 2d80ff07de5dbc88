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

// VM is an arena holding every object of a compiled design.  Objects refer to
// each other by identifier, making them independent of pointer identity.
type VM struct {
	objects []*Object
}

// NewVM constructs an empty VM.
func NewVM() *VM {
	return &VM{}
}

// NewObject allocates a new plain object, which carries the built-in native
// methods every object supports.
func (p *VM) NewObject(name string) *Object {
	obj := p.alloc(name, PLAIN)
	//
	for _, op := range []string{NATIVE_PRINT, NATIVE_ASSERT, NATIVE_WAIT} {
		obj.AddMethod(&Method{Name: op, Native: op})
	}
	//
	return obj
}

// NewIntArray allocates a new integer array with a given element width and
// length.  Arrays support AXI transfers through their native load and store
// methods.
func (p *VM) NewIntArray(name string, width uint, length uint) *Object {
	obj := p.alloc(name, INT_ARRAY)
	obj.Width = width
	obj.Length = length
	//
	for _, op := range []string{NATIVE_AXI_LOAD, NATIVE_AXI_STORE} {
		obj.AddMethod(&Method{Name: op, Native: op})
	}
	//
	return obj
}

// NewChannel allocates a new channel of a given data width.
func (p *VM) NewChannel(name string, width uint) *Object {
	obj := p.alloc(name, CHANNEL)
	obj.Width = width
	//
	return obj
}

// Object returns the object with the given identifier.
func (p *VM) Object(id ObjectId) *Object {
	return p.objects[id]
}

// Objects returns every object in allocation order.
func (p *VM) Objects() []*Object {
	return p.objects
}

// LookupValue returns the value of a named member of a given object.
func (p *VM) LookupValue(obj ObjectId, name string) (Value, bool) {
	return p.objects[obj].Lookup(name)
}

// LookupMemberNames returns the names under which a given member object is
// reachable from an owner object, in declaration order.
func (p *VM) LookupMemberNames(owner ObjectId, member ObjectId) []string {
	var names []string
	//
	for _, s := range p.objects[owner].slots {
		if s.Value.Kind == OBJECT && s.Value.Object == member {
			names = append(names, s.Name)
		}
	}
	//
	return names
}

// MemberObjects returns the member objects of a given object in declaration
// order.
func (p *VM) MemberObjects(owner ObjectId) []*Object {
	var members []*Object
	//
	for _, s := range p.objects[owner].slots {
		if s.Value.Kind == OBJECT {
			members = append(members, p.objects[s.Value.Object])
		}
	}
	//
	return members
}

func (p *VM) alloc(name string, kind ObjectKind) *Object {
	obj := &Object{
		id:    ObjectId(len(p.objects)),
		Name:  name,
		Kind:  kind,
		index: make(map[string]int),
	}
	//
	p.objects = append(p.objects, obj)
	//
	return obj
}
