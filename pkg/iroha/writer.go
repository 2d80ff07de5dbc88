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
	"io"
	"strconv"

	"github.com/robtaylor/karuta/pkg/sexp"
)

// Write a design in its textual S-Expression form.
func Write(w io.Writer, design *Design) error {
	for _, e := range ToSExp(design) {
		if _, err := fmt.Fprintln(w, sexp.Format(e, 3)); err != nil {
			return err
		}
	}
	//
	return nil
}

// ToSExp converts a design into a sequence of top-level S-Expressions, one per
// module and channel.
func ToSExp(design *Design) []sexp.SExp {
	var terms []sexp.SExp
	//
	for _, mod := range design.Modules {
		terms = append(terms, moduleToSExp(mod))
	}
	//
	for _, ch := range design.Channels {
		terms = append(terms, sexp.NewList(sym("CHANNEL"), num(ch.Id), typeToSExp(ch.Type),
			endpointToSExp(ch.Writer), endpointToSExp(ch.Reader)))
	}
	//
	return terms
}

func moduleToSExp(mod *Module) sexp.SExp {
	list := sexp.NewList(sym("MODULE"), num(mod.Id), sym(mod.Name))
	//
	if mod.Parent != nil {
		list.Append(sexp.NewList(sym("PARENT"), num(mod.Parent.Id)))
	}
	//
	for _, tab := range mod.Tables {
		list.Append(tableToSExp(tab))
	}
	//
	return list
}

func tableToSExp(tab *Table) sexp.SExp {
	var (
		list      = sexp.NewList(sym("TABLE"), num(tab.Id), sym(tab.Name))
		registers = sexp.NewList(sym("REGISTERS"))
		resources = sexp.NewList(sym("RESOURCES"))
	)
	//
	for _, reg := range tab.Registers {
		registers.Append(registerToSExp(reg))
	}
	//
	for _, res := range tab.Resources {
		resources.Append(resourceToSExp(res))
	}
	//
	list.Append(registers, resources)
	//
	if tab.Initial != nil {
		list.Append(sexp.NewList(sym("INITIAL"), num(tab.Initial.Id)))
	}
	//
	for _, st := range tab.States {
		state := sexp.NewList(sym("STATE"), num(st.Id))
		//
		for _, insn := range st.Insns {
			state.Append(insnToSExp(insn))
		}
		//
		list.Append(state)
	}
	//
	return list
}

func registerToSExp(reg *Register) sexp.SExp {
	var (
		class   = "REG"
		initial sexp.SExp
	)
	//
	switch reg.Class {
	case CONST:
		class = "CONST"
	case WIRE:
		class = "WIRE"
	}
	//
	if reg.Initial != nil {
		initial = sym(strconv.FormatInt(*reg.Initial, 10))
	} else {
		initial = sexp.NewList()
	}
	//
	return sexp.NewList(sym("REGISTER"), num(reg.Id), sym(regName(reg)), sym(class), typeToSExp(reg.Type), initial)
}

func resourceToSExp(res *Resource) sexp.SExp {
	var (
		inputs  = sexp.NewList()
		outputs = sexp.NewList()
		params  = sexp.NewList(sym("PARAMS"))
	)
	//
	for _, t := range res.InputTypes {
		inputs.Append(typeToSExp(t))
	}
	//
	for _, t := range res.OutputTypes {
		outputs.Append(typeToSExp(t))
	}
	//
	for _, k := range res.Params.Keys() {
		v, _ := res.Params.Get(k)
		params.Append(sexp.NewList(sym(k), sym(v)))
	}
	//
	list := sexp.NewList(sym("RESOURCE"), num(res.Id), sym(res.Class), inputs, outputs, params)
	//
	if res.Array != nil {
		kind := "INTERNAL"
		if res.Array.External {
			kind = "EXTERNAL"
		}
		//
		list.Append(sexp.NewList(sym("ARRAY"), num(res.Array.AddressWidth), typeToSExp(res.Array.Data), sym(kind)))
	}
	//
	if res.Parent != nil {
		list.Append(sexp.NewList(sym("PARENT-RESOURCE"), num(res.Parent.Table.Module.Id), num(res.Parent.Table.Id),
			num(res.Parent.Id)))
	}
	//
	if res.CalleeTable != nil {
		list.Append(sexp.NewList(sym("CALLEE-TABLE"), num(res.CalleeTable.Module.Id), num(res.CalleeTable.Id)))
	}
	//
	return list
}

func insnToSExp(insn *Insn) sexp.SExp {
	var (
		operand = sexp.NewList()
		targets = sexp.NewList()
		inputs  = sexp.NewList()
		outputs = sexp.NewList()
	)
	//
	if insn.Operand != "" {
		operand.Append(sym(insn.Operand))
	}
	//
	for _, st := range insn.Targets {
		targets.Append(num(st.Id))
	}
	//
	for _, reg := range insn.Inputs {
		inputs.Append(num(reg.Id))
	}
	//
	for _, reg := range insn.Outputs {
		outputs.Append(num(reg.Id))
	}
	//
	return sexp.NewList(sym("INSN"), num(insn.Id), sym(insn.Resource.Class), num(insn.Resource.Id), operand, targets,
		inputs, outputs)
}

func endpointToSExp(res *Resource) sexp.SExp {
	if res == nil {
		return sexp.NewList()
	}
	//
	return sexp.NewList(num(res.Table.Module.Id), num(res.Table.Id), num(res.Id))
}

func typeToSExp(vt ValueType) sexp.SExp {
	kind := "UINT"
	if vt.Signed {
		kind = "INT"
	}
	//
	return sexp.NewList(sym(kind), num(vt.Width))
}

func regName(reg *Register) string {
	if reg.Name == "" {
		return "()"
	}
	//
	return reg.Name
}

func sym(s string) *sexp.Symbol {
	return sexp.NewSymbol(s)
}

func num(n uint) *sexp.Symbol {
	return sexp.NewSymbol(strconv.FormatUint(uint64(n), 10))
}
