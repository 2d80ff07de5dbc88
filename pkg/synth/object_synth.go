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

// DEFAULT_THREAD is the entry method of the top-level object, used when no
// thread declares it explicitly.
const DEFAULT_THREAD = "main"

// ObjectSynth synthesizes a single object into a module, holding one thread
// per declared thread, data-flow entry, external entry or invoked task.
type ObjectSynth struct {
	design  *DesignSynth
	obj     *vm.Object
	module  *iroha.Module
	threads []*ThreadSynth
}

func newObjectSynth(design *DesignSynth, obj *vm.Object, parent *iroha.Module) *ObjectSynth {
	return &ObjectSynth{
		design: design,
		obj:    obj,
		module: design.design.NewModule(obj.Name, parent),
	}
}

// Object returns the object being synthesized.
func (p *ObjectSynth) Object() *vm.Object { return p.obj }

// Module returns the module this object is synthesized into.
func (p *ObjectSynth) Module() *iroha.Module { return p.module }

// Threads returns the threads of this object in creation order.
func (p *ObjectSynth) Threads() []*ThreadSynth { return p.threads }

// PrimaryThread returns the first thread of this object, or nil if it has
// none.
func (p *ObjectSynth) PrimaryThread() *ThreadSynth {
	if len(p.threads) > 0 {
		return p.threads[0]
	}
	//
	return nil
}

// Create the threads this object runs regardless of any calls into it.
func (p *ObjectSynth) prepare(top bool) {
	main := p.obj.LookupMethod(DEFAULT_THREAD)
	//
	if top && main != nil && !main.IsNative() && !p.declaresThread(DEFAULT_THREAD) {
		p.addThread(DEFAULT_THREAD, DEFAULT_THREAD)
	}
	//
	for _, decl := range p.obj.Threads {
		p.addThread(decl.Name, decl.Method)
	}
	//
	for _, m := range p.obj.Methods() {
		if (m.Annotation.DataFlowEntry || m.Annotation.ExtEntry) && p.FindThread(m.Name) == nil {
			p.addThread(m.Name, m.Name)
		}
	}
}

// FindThread returns the (non-task) thread running a given entry method, or
// nil if there is none.
func (p *ObjectSynth) FindThread(entry string) *ThreadSynth {
	for _, thr := range p.threads {
		if !thr.IsTask() && thr.EntryMethod() == entry {
			return thr
		}
	}
	//
	return nil
}

// FindTask returns the task thread running a given method, or nil if there is
// none.
func (p *ObjectSynth) FindTask(method string) *ThreadSynth {
	for _, thr := range p.threads {
		if thr.IsTask() && thr.EntryMethod() == method {
			return thr
		}
	}
	//
	return nil
}

// RequestTask returns the task thread running a given method, creating it if
// necessary.
func (p *ObjectSynth) RequestTask(method string) *ThreadSynth {
	if thr := p.FindTask(method); thr != nil {
		return thr
	}
	//
	thr := p.addThread(method, method)
	thr.SetIsTask(true)
	//
	return thr
}

func (p *ObjectSynth) addThread(name string, entry string) *ThreadSynth {
	thr := p.design.newThread(p, name, entry)
	p.threads = append(p.threads, thr)
	//
	return thr
}

func (p *ObjectSynth) declaresThread(entry string) bool {
	for _, decl := range p.obj.Threads {
		if decl.Method == entry {
			return true
		}
	}
	//
	return false
}

// Check whether an object runs any thread of its own.
func hasThreads(obj *vm.Object) bool {
	if len(obj.Threads) > 0 {
		return true
	}
	//
	for _, m := range obj.Methods() {
		if m.Annotation.DataFlowEntry || m.Annotation.ExtEntry {
			return true
		}
	}
	//
	return false
}
