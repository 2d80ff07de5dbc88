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
	"strconv"

	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/vm"
)

// ChannelSynth collects the resources accessing each channel object across all
// threads, and connects them once every thread has been synthesized.  Each
// channel may have at most one writer and at most one reader; a missing end
// is an external port.
type ChannelSynth struct {
	order []vm.ObjectId
	ends  map[vm.ObjectId]*channelEnds
}

type channelEnds struct {
	channel *vm.Object
	writers []*iroha.Resource
	readers []*iroha.Resource
}

// NewChannelSynth constructs an empty channel registry.
func NewChannelSynth() *ChannelSynth {
	return &ChannelSynth{ends: make(map[vm.ObjectId]*channelEnds)}
}

// AddChannel records a resource accessing a given channel.
func (p *ChannelSynth) AddChannel(channel *vm.Object, res *iroha.Resource) {
	ends, ok := p.ends[channel.Id()]
	//
	if !ok {
		ends = &channelEnds{channel: channel}
		p.ends[channel.Id()] = ends
		p.order = append(p.order, channel.Id())
	}
	//
	switch res.Class {
	case iroha.CHANNEL_WRITE:
		if !slices.Contains(ends.writers, res) {
			ends.writers = append(ends.writers, res)
		}
	case iroha.CHANNEL_READ:
		if !slices.Contains(ends.readers, res) {
			ends.readers = append(ends.readers, res)
		}
	default:
		panic(fmt.Sprintf("not a channel resource: %s", res.String()))
	}
}

// Resolve creates a design channel for every channel object accessed, binding
// its writer and reader resources.
func (p *ChannelSynth) Resolve(design *iroha.Design) error {
	for _, id := range p.order {
		ends := p.ends[id]
		//
		if len(ends.writers) > 1 {
			return fmt.Errorf("channel %s has %d writers", ends.channel.Name, len(ends.writers))
		} else if len(ends.readers) > 1 {
			return fmt.Errorf("channel %s has %d readers", ends.channel.Name, len(ends.readers))
		}
		//
		ch := design.NewChannel(ends.channel.Width)
		//
		for _, res := range slices.Concat(ends.writers, ends.readers) {
			res.Params.Set(iroha.PARAM_CHANNEL, strconv.FormatUint(uint64(ch.Id), 10))
		}
		//
		if len(ends.writers) == 1 {
			ch.Writer = ends.writers[0]
		}
		//
		if len(ends.readers) == 1 {
			ch.Reader = ends.readers[0]
		}
	}
	//
	return nil
}
