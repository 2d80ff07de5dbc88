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
)

// FindOrCreateTaskCallResource returns the resource through which a caller
// table invokes a callee task table.  The resource records the member of the
// caller's object holding the callee.
func FindOrCreateTaskCallResource(caller *iroha.Table, callee *iroha.Table, member string) *iroha.Resource {
	for _, res := range iroha.FindResourcesByClass(caller, iroha.SUB_MODULE_TASK_CALL) {
		if res.CalleeTable == callee {
			return res
		}
	}
	//
	res := caller.NewResource(iroha.SUB_MODULE_TASK_CALL)
	res.CalleeTable = callee
	//
	if member != "" {
		res.Params.Set(iroha.PARAM_MEMBER, member)
	}
	//
	if tasks := iroha.FindResourcesByClass(callee, iroha.SUB_MODULE_TASK); len(tasks) > 0 {
		res.Parent = tasks[0]
	}
	//
	return res
}

// FindOrCreateTaskReturnValueResource returns the resource through which a
// caller table receives the return values of a callee task table, or nil if
// the callee returns nothing.
func FindOrCreateTaskReturnValueResource(caller *iroha.Table, callee *iroha.Table) *iroha.Resource {
	returns := iroha.FindResourcesByClass(callee, iroha.TASK_RETURN)
	//
	if len(returns) == 0 {
		return nil
	}
	//
	for _, res := range iroha.FindResourcesByClass(caller, iroha.TASK_RETURN_VALUE) {
		if res.CalleeTable == callee {
			return res
		}
	}
	//
	res := caller.NewResource(iroha.TASK_RETURN_VALUE)
	res.CalleeTable = callee
	res.Parent = returns[0]
	//
	return res
}

// FindOrCreateDataFlowCaller returns the resource through which a caller table
// notifies a data-flow table, given the shared register feeding the callee's
// data-flow input.
func FindOrCreateDataFlowCaller(caller *iroha.Table, sreg *iroha.Resource) *iroha.Resource {
	for _, res := range iroha.FindResourcesByClass(caller, iroha.SHARED_REG_WRITER) {
		if res.Parent == sreg {
			return res
		}
	}
	//
	res := caller.NewResource(iroha.SHARED_REG_WRITER)
	res.Parent = sreg
	res.Params.SetWidth(sreg.Params.Width())
	//
	return res
}
