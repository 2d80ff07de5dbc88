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
	"fmt"

	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/util"
	"github.com/robtaylor/karuta/pkg/vm"
	log "github.com/sirupsen/logrus"
)

// Options configures design synthesis.
type Options struct {
	// Maximum depth of nested calls inlined into a thread.
	MaxInlineDepth uint
}

// DefaultOptions returns the default synthesis options.
func DefaultOptions() Options {
	return Options{MaxInlineDepth: DEFAULT_MAX_INLINE_DEPTH}
}

// DesignSynth synthesizes a design from a top-level object.  Synthesis
// proceeds in phases, each of which completes for every thread before the
// next begins:
//
// (1) Threads are scanned to determine which shared entities each accesses,
// creating further task threads for the member objects they call.
//
// (2) Ports are created for members no thread accesses.
//
// (3) Each shared entity is assigned an owner thread.
//
// (4) Threads are synthesized into tables.
//
// (5) Accessor resources are linked to owner resources, calls between tables
// are wired, and channels are connected.
type DesignSynth struct {
	vm       *vm.VM
	root     *vm.Object
	opts     Options
	design   *iroha.Design
	objects  []*ObjectSynth
	byObj    map[vm.ObjectId]*ObjectSynth
	threads  []*ThreadSynth
	channels *ChannelSynth
}

// NewDesignSynth constructs a synthesizer for a given top-level object.
func NewDesignSynth(machine *vm.VM, root *vm.Object, opts Options) *DesignSynth {
	if opts.MaxInlineDepth == 0 {
		opts.MaxInlineDepth = DEFAULT_MAX_INLINE_DEPTH
	}
	//
	return &DesignSynth{
		vm:       machine,
		root:     root,
		opts:     opts,
		design:   iroha.NewDesign(),
		byObj:    make(map[vm.ObjectId]*ObjectSynth),
		channels: NewChannelSynth(),
	}
}

// Threads returns every thread of the design in creation order.
func (p *DesignSynth) Threads() []*ThreadSynth {
	return p.threads
}

// Synth synthesizes the design.
func (p *DesignSynth) Synth() (*iroha.Design, error) {
	stats := util.NewPerfStats()
	top := p.RequestObject(nil, p.root)
	//
	if len(top.Threads()) == 0 {
		return nil, fmt.Errorf("no thread to synthesize in %s", p.root.Name)
	}
	// Scan every thread, including those created whilst scanning.
	scan := NewScanResult()
	//
	for i := 0; i < len(p.threads); i++ {
		if err := p.threads[i].Scan(scan); err != nil {
			return nil, err
		}
	}
	//
	for _, obj := range p.objects {
		if thr := obj.PrimaryThread(); thr != nil {
			if err := thr.CollectUnclaimedMembers(scan); err != nil {
				return nil, err
			}
		}
	}
	//
	owners := scan.DetermineOwnerThreadAll()
	linker := NewResourceLinker()
	//
	for _, thr := range p.threads {
		if err := thr.Synth(owners, linker); err != nil {
			return nil, err
		}
	}
	//
	if err := linker.ResolveResourceAccessors(); err != nil {
		return nil, err
	}
	//
	for _, thr := range p.threads {
		p.injectCalls(thr)
	}
	//
	if err := p.channels.Resolve(p.design); err != nil {
		return nil, err
	}
	//
	log.Debugf("synthesized %d modules, %d threads", len(p.design.Modules), len(p.threads))
	stats.Log("Synthesis")
	//
	return p.design, nil
}

// RequestObject returns the synthesizer of a given object, creating it (as a
// child of the caller's module) if necessary.  Member objects running threads
// of their own are requested along with it.
func (p *DesignSynth) RequestObject(caller *ObjectSynth, obj *vm.Object) *ObjectSynth {
	if osynth, ok := p.byObj[obj.Id()]; ok {
		return osynth
	}
	//
	var parent *iroha.Module
	//
	if caller != nil {
		parent = caller.Module()
	}
	//
	osynth := newObjectSynth(p, obj, parent)
	p.byObj[obj.Id()] = osynth
	p.objects = append(p.objects, osynth)
	osynth.prepare(caller == nil)
	//
	for _, member := range p.vm.MemberObjects(obj.Id()) {
		if member.Kind == vm.PLAIN && hasThreads(member) {
			p.RequestObject(osynth, member)
		}
	}
	//
	return osynth
}

// RequestTask returns the task thread running a given method of an object,
// creating it if necessary.
func (p *DesignSynth) RequestTask(caller *ObjectSynth, obj *vm.Object, method string) *ThreadSynth {
	return p.RequestObject(caller, obj).RequestTask(method)
}

func (p *DesignSynth) newThread(object *ObjectSynth, name string, entry string) *ThreadSynth {
	thr := NewThreadSynth(ThreadId(len(p.threads)), object, name, entry)
	p.threads = append(p.threads, thr)
	//
	log.Debugf("thread %d: %s.%s", thr.Id(), object.Object().Name, entry)
	//
	return thr
}

// Wire the calls made by a thread into other tables.
func (p *DesignSynth) injectCalls(thr *ThreadSynth) {
	for _, call := range thr.SubObjCalls() {
		task := p.byObj[call.Callee.Id()].FindTask(call.Method)
		//
		if task == nil {
			panic(fmt.Sprintf("no task for %s.%s", call.Callee.Name, call.Method))
		}
		//
		thr.InjectSubModuleCall(call, task.Table())
	}
	//
	for _, call := range thr.DataFlowCalls() {
		df := p.byObj[call.Callee.Id()].FindThread(call.Method)
		//
		if df == nil {
			panic(fmt.Sprintf("no data-flow thread for %s.%s", call.Callee.Name, call.Method))
		}
		//
		thr.InjectDataFlowCall(call, df.Table())
	}
}
