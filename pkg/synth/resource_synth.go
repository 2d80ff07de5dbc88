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

// ResourceSynth creates the port resources of a thread which are not tied to
// any instruction, such as the AXI ports of arrays no thread accesses.
type ResourceSynth struct {
	res *ResourceSet
}

// NewResourceSynth constructs a port synthesizer over a given resource set.
func NewResourceSynth(res *ResourceSet) *ResourceSynth {
	return &ResourceSynth{res}
}

// MayAddAxiMasterPort adds an AXI master port for an array, if it is
// annotated as having one.
func (p *ResourceSynth) MayAddAxiMasterPort(array *vm.Object) *iroha.Resource {
	if !array.AxiMaster {
		return nil
	}
	//
	return p.res.GetAxiPort(array, true)
}

// MayAddAxiSlavePort adds an AXI slave port for an array, if it is annotated
// as having one.
func (p *ResourceSynth) MayAddAxiSlavePort(array *vm.Object) *iroha.Resource {
	if !array.AxiSlave {
		return nil
	}
	//
	return p.res.GetAxiPort(array, false)
}

// MayAddExtIO adds the port of an external input or output method.
func (p *ResourceSynth) MayAddExtIO(method *vm.Method) *iroha.Resource {
	var (
		ann  = method.Annotation
		port = ann.Port
	)
	//
	if port == "" {
		port = method.Name
	}
	//
	switch {
	case ann.ExtOutput && len(method.Args) > 0:
		return p.res.GetExtIOResource(port, true, declWidth(method.Args[0]))
	case ann.ExtInput && len(method.Returns) > 0:
		return p.res.GetExtIOResource(port, false, declWidth(method.Returns[0]))
	}
	//
	return nil
}
