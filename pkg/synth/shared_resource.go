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
	"slices"

	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/util/collection/bit"
	"github.com/robtaylor/karuta/pkg/vm"
	log "github.com/sirupsen/logrus"
)

// ThreadId identifies a synthesized thread within a design.  Identifiers are
// allocated in creation order, which is also the order in which threads are
// scanned.
type ThreadId uint

// SharedKey identifies an entity which may be shared between threads: either a
// member slot of an object, or (when Member is empty) an object as a whole
// (e.g. an array).
type SharedKey struct {
	Object vm.ObjectId
	Member string
}

func (p SharedKey) String() string {
	if p.Member == "" {
		return fmt.Sprintf("obj#%d", p.Object)
	}
	//
	return fmt.Sprintf("obj#%d.%s", p.Object, p.Member)
}

// MethodKey identifies a method of a given object.
type MethodKey struct {
	Object vm.ObjectId
	Method string
}

// ============================================================================
// Scan phase
// ============================================================================

// ScanResult accumulates which threads access which shared entities, as
// discovered while scanning every thread of a design.  Once scanning is
// complete, DetermineOwnerThreadAll fixes an owner for every entity and
// produces an immutable OwnershipTable; the scan result cannot be modified
// afterwards.
type ScanResult struct {
	records map[SharedKey]*accessRecord
	// Keys in the order they were first encountered
	order []SharedKey
	// External IO methods and the thread claiming each
	extIO map[MethodKey]ThreadId
	// Set once ownership has been determined
	resolved bool
}

type accessRecord struct {
	readers   bit.Set
	writers   bit.Set
	axiCtrl   bit.Set
	accessors []ThreadId
	synthName string
}

// NewScanResult constructs an empty scan result.
func NewScanResult() *ScanResult {
	return &ScanResult{
		records: make(map[SharedKey]*accessRecord),
		extIO:   make(map[MethodKey]ThreadId),
	}
}

// AddMemberAccessor records that a given thread reads (or writes) a member of
// an object.
func (p *ScanResult) AddMemberAccessor(thread ThreadId, obj vm.ObjectId, member string, write bool) {
	p.addAccessor(SharedKey{obj, member}, thread, write)
}

// AddObjectAccessor records that a given thread reads (or writes) an object as
// a whole (e.g. an array).
func (p *ScanResult) AddObjectAccessor(thread ThreadId, obj vm.ObjectId, write bool, synthName string) {
	rec := p.addAccessor(SharedKey{obj, ""}, thread, write)
	//
	if rec.synthName == "" {
		rec.synthName = synthName
	}
}

// AddAxiCtrlThread records that a given thread transfers the contents of an
// array over an AXI port.  Such arrays must always be synthesized as shared
// memories.
func (p *ScanResult) AddAxiCtrlThread(thread ThreadId, obj vm.ObjectId) {
	p.checkNotResolved()
	p.get(SharedKey{obj, ""}).axiCtrl.Insert(uint(thread))
}

// AddExtIOMethodAccessor records that a given thread claims an external IO
// method.  Such methods cannot be shared, hence this returns false (leaving the
// existing claim unchanged) when a different thread has claimed the method
// already.
func (p *ScanResult) AddExtIOMethodAccessor(thread ThreadId, method MethodKey) bool {
	p.checkNotResolved()
	//
	if owner, ok := p.extIO[method]; ok {
		return owner == thread
	}
	//
	p.extIO[method] = thread
	//
	return true
}

// HasAccessor checks whether any thread accesses a given object.
func (p *ScanResult) HasAccessor(obj vm.ObjectId) bool {
	rec, ok := p.records[SharedKey{obj, ""}]
	return ok && (len(rec.accessors) > 0 || rec.axiCtrl.Count() > 0)
}

// HasExtIOAccessor checks whether any thread has claimed a given external IO
// method.
func (p *ScanResult) HasExtIOAccessor(method MethodKey) bool {
	_, ok := p.extIO[method]
	return ok
}

// GetBySlotName returns the number of threads known to access a given member,
// creating an empty record on first use.
func (p *ScanResult) GetBySlotName(obj vm.ObjectId, member string) uint {
	return uint(len(p.get(SharedKey{obj, member}).accessors))
}

// GetByObj returns the number of threads known to access a given object,
// creating an empty record on first use.
func (p *ScanResult) GetByObj(obj vm.ObjectId) uint {
	return uint(len(p.get(SharedKey{obj, ""}).accessors))
}

// DetermineOwnerThreadAll selects exactly one owner thread for every shared
// entity.  A thread which writes the entity is preferred, and ties are broken
// by scan order.  This must be called after every thread of the design has
// been scanned, and before any thread is synthesized.
func (p *ScanResult) DetermineOwnerThreadAll() *OwnershipTable {
	p.checkNotResolved()
	p.resolved = true
	//
	table := &OwnershipTable{
		entries: make(map[SharedKey]*Ownership, len(p.records)),
		extIO:   p.extIO,
	}
	//
	for _, key := range p.order {
		rec := p.records[key]
		entry := &Ownership{
			Accessors: slices.Clone(rec.accessors),
			Readers:   toThreads(rec.readers),
			Writers:   toThreads(rec.writers),
			AxiCtrl:   toThreads(rec.axiCtrl),
			SynthName: rec.synthName,
		}
		//
		entry.Owner, entry.HasOwner = determineOwnerThread(rec)
		//
		if entry.HasOwner && len(rec.accessors) > 1 {
			log.Debugf("owner of %s is thread %d (of %d accessors)", key.String(), entry.Owner, len(rec.accessors))
		}
		//
		table.entries[key] = entry
	}
	//
	return table
}

// AXI transfer threads never own.  An array reached only through its AXI port
// has no shared memory, and the port carries the array itself.
func determineOwnerThread(rec *accessRecord) (ThreadId, bool) {
	for _, thr := range rec.accessors {
		if rec.writers.Contains(uint(thr)) {
			return thr, true
		}
	}
	//
	if len(rec.accessors) > 0 {
		return rec.accessors[0], true
	}
	//
	return 0, false
}

func (p *ScanResult) addAccessor(key SharedKey, thread ThreadId, write bool) *accessRecord {
	p.checkNotResolved()
	//
	rec := p.get(key)
	//
	if write {
		rec.writers.Insert(uint(thread))
	} else {
		rec.readers.Insert(uint(thread))
	}
	//
	if !slices.Contains(rec.accessors, thread) {
		rec.accessors = append(rec.accessors, thread)
	}
	//
	return rec
}

func (p *ScanResult) get(key SharedKey) *accessRecord {
	rec, ok := p.records[key]
	//
	if !ok {
		rec = &accessRecord{}
		p.records[key] = rec
		p.order = append(p.order, key)
	}
	//
	return rec
}

func (p *ScanResult) checkNotResolved() {
	if p.resolved {
		panic("scan result modified after ownership was determined")
	}
}

func toThreads(set bit.Set) []ThreadId {
	var threads []ThreadId
	//
	for t := range set.All() {
		threads = append(threads, ThreadId(t))
	}
	//
	return threads
}

// ============================================================================
// Synth phase
// ============================================================================

// OwnershipTable is the read-only outcome of the scan phase, recording the
// owner and accessors of every shared entity.
type OwnershipTable struct {
	entries map[SharedKey]*Ownership
	extIO   map[MethodKey]ThreadId
}

// Ownership describes how a shared entity is accessed.
type Ownership struct {
	// Thread whose local storage backs the entity (valid only if HasOwner).
	Owner    ThreadId
	HasOwner bool
	// Accessing threads in scan order (including the owner).
	Accessors []ThreadId
	Readers   []ThreadId
	Writers   []ThreadId
	// Threads transferring the entity over an AXI port.
	AxiCtrl   []ThreadId
	SynthName string
}

// NumAccessors returns the number of distinct threads accessing the entity.
func (p *Ownership) NumAccessors() uint {
	return uint(len(p.Accessors))
}

// IsOwner checks whether a given thread owns the entity.
func (p *Ownership) IsOwner(thread ThreadId) bool {
	return p.HasOwner && p.Owner == thread
}

// HasAxiCtrl checks whether any thread transfers the entity over an AXI port.
func (p *Ownership) HasAxiCtrl() bool {
	return len(p.AxiCtrl) > 0
}

// GetBySlotName returns the ownership of a given member.  Members which no
// thread accesses have an empty ownership.
func (p *OwnershipTable) GetBySlotName(obj vm.ObjectId, member string) *Ownership {
	return p.get(SharedKey{obj, member})
}

// GetByObj returns the ownership of a given object.
func (p *OwnershipTable) GetByObj(obj vm.ObjectId) *Ownership {
	return p.get(SharedKey{obj, ""})
}

// HasAccessor checks whether any thread accesses a given object.
func (p *OwnershipTable) HasAccessor(obj vm.ObjectId) bool {
	entry := p.get(SharedKey{obj, ""})
	return entry.NumAccessors() > 0 || entry.HasAxiCtrl()
}

// HasExtIOAccessor checks whether any thread has claimed a given external IO
// method.
func (p *OwnershipTable) HasExtIOAccessor(method MethodKey) bool {
	_, ok := p.extIO[method]
	return ok
}

func (p *OwnershipTable) get(key SharedKey) *Ownership {
	if entry, ok := p.entries[key]; ok {
		return entry
	}
	//
	return &Ownership{}
}

// ============================================================================
// Resource linking
// ============================================================================

// ResourceLinker collects the resources synthesized for each shared entity,
// and links every accessor resource to the resource of the owning thread once
// all threads have been synthesized.
type ResourceLinker struct {
	links map[SharedKey]*resourceLink
	order []SharedKey
}

type resourceLink struct {
	owner     *iroha.Resource
	accessors []*iroha.Resource
}

// NewResourceLinker constructs an empty linker.
func NewResourceLinker() *ResourceLinker {
	return &ResourceLinker{links: make(map[SharedKey]*resourceLink)}
}

// AddOwnerResource registers the resource of the owning thread of a shared
// entity.
func (p *ResourceLinker) AddOwnerResource(key SharedKey, res *iroha.Resource) {
	link := p.get(key)
	//
	if link.owner != nil && link.owner != res {
		panic(fmt.Sprintf("multiple owner resources for %s", key.String()))
	}
	//
	link.owner = res
}

// AddAccessorResource registers the resource of an accessing thread of a
// shared entity.
func (p *ResourceLinker) AddAccessorResource(key SharedKey, res *iroha.Resource) {
	link := p.get(key)
	//
	if !slices.Contains(link.accessors, res) {
		link.accessors = append(link.accessors, res)
	}
}

// ResolveResourceAccessors sets the owner resource as the parent of every
// accessor resource.  This must be called after every thread has been
// synthesized.
func (p *ResourceLinker) ResolveResourceAccessors() error {
	for _, key := range p.order {
		link := p.links[key]
		//
		if len(link.accessors) == 0 {
			continue
		} else if link.owner == nil {
			return fmt.Errorf("no owner resource for shared %s", key.String())
		}
		//
		for _, res := range link.accessors {
			if res != link.owner {
				res.Parent = link.owner
			}
		}
	}
	//
	return nil
}

func (p *ResourceLinker) get(key SharedKey) *resourceLink {
	link, ok := p.links[key]
	//
	if !ok {
		link = &resourceLink{}
		p.links[key] = link
		p.order = append(p.order, key)
	}
	//
	return link
}
