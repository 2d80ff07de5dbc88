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
package loader

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/robtaylor/karuta/pkg/sexp"
	"github.com/robtaylor/karuta/pkg/vm"
)

// THIS names the object whose method is executing, wherever an object register
// is expected.
const THIS = "this"

// LoadFile reads a bytecode listing from a given file, returning the VM holding
// its objects along with the top-level object.
func LoadFile(filename string) (*vm.VM, *vm.Object, error) {
	bytes, err := os.ReadFile(filename)
	//
	if err != nil {
		return nil, nil, err
	}
	//
	machine, root, serr := Load(sexp.NewSourceFile(filename, bytes))
	//
	if serr != nil {
		return nil, nil, serr
	}
	//
	return machine, root, nil
}

// Load a bytecode listing.  A listing consists of a single top-level object
// declaration, of the following form:
//
// (object NAME MEMBER*)
//
// Where each member is one of:
//
// (num NAME WIDTH [INIT] [const]) (enum NAME ORDINAL [const])
// (array NAME WIDTH LENGTH [axi-master] [axi-slave]) (channel NAME WIDTH)
// (object NAME MEMBER*) (thread NAME METHOD) (method NAME CLAUSE*)
//
// Method clauses declare arguments, return values, annotations, registers and
// code.  Registers are referred to by name, with argument registers named after
// their argument, and return registers named $ret0, $ret1, etc.
func Load(srcfile *sexp.SourceFile) (*vm.VM, *vm.Object, *sexp.SyntaxError) {
	term, srcmap, serr := srcfile.Parse()
	//
	if serr != nil {
		return nil, nil, serr
	}
	//
	p := newLoader(srcfile, srcmap)
	root, err := p.loadObject(term)
	//
	if err != nil {
		var serr *sexp.SyntaxError
		//
		if errors.As(err, &serr) {
			return nil, nil, serr
		}
		//
		return nil, nil, p.insns.SyntaxError(term, err.Error())
	}
	//
	return p.vm, root, nil
}

type loader struct {
	vm    *vm.VM
	insns *sexp.Translator[vm.Insn]
	// Registers of the method being loaded
	regs map[string]vm.RegisterId
}

func newLoader(srcfile *sexp.SourceFile, srcmap *sexp.SourceMap[sexp.SExp]) *loader {
	p := &loader{vm: vm.NewVM(), insns: sexp.NewTranslator[vm.Insn](srcfile, srcmap)}
	p.addInsnRules()
	//
	return p
}

// ============================================================================
// Objects
// ============================================================================

func (p *loader) loadObject(e sexp.SExp) (*vm.Object, error) {
	list, ok := e.(*sexp.List)
	//
	if !ok || list.Head() != "object" || list.Len() < 2 {
		return nil, p.errorf(e, "expected (object NAME ...)")
	}
	//
	name, err := p.symbol(list, 1)
	//
	if err != nil {
		return nil, err
	}
	//
	obj := p.vm.NewObject(name)
	//
	for _, member := range list.Elements[2:] {
		if err := p.loadMember(obj, member); err != nil {
			return nil, err
		}
	}
	//
	return obj, nil
}

// Threads may be declared repeatedly, and a method declaration replaces the
// built-in of the same name.
func (p *loader) redeclarable(existing vm.Value, kind string) bool {
	switch kind {
	case "thread":
		return true
	case "method":
		return existing.Kind == vm.METHOD && existing.Method.IsBuiltin()
	}
	//
	return false
}

func (p *loader) loadMember(obj *vm.Object, e sexp.SExp) error {
	list, ok := e.(*sexp.List)
	//
	if !ok || list.Head() == "" || list.Len() < 2 {
		return p.errorf(e, "expected member declaration")
	}
	//
	name, err := p.symbol(list, 1)
	//
	if err != nil {
		return err
	} else if v, ok := obj.Lookup(name); ok && !p.redeclarable(v, list.Head()) {
		return p.errorf(list.Elements[1], "duplicate member %s", name)
	}
	//
	switch list.Head() {
	case "num":
		return p.loadNum(obj, name, list)
	case "enum":
		return p.loadEnum(obj, name, list)
	case "array":
		return p.loadArray(obj, name, list)
	case "channel":
		return p.loadChannel(obj, name, list)
	case "object":
		sub, err := p.loadObject(list)
		//
		if err == nil {
			obj.Set(sub.Name, vm.NewObjectValue(sub.Id()))
		}
		//
		return err
	case "thread":
		return p.loadThread(obj, name, list)
	case "method":
		return p.loadMethod(obj, name, list)
	}
	//
	return p.errorf(list.Elements[0], "unknown member kind %s", list.Head())
}

func (p *loader) loadNum(obj *vm.Object, name string, list *sexp.List) error {
	var (
		width, init uint64
		err         error
		flags       map[string]bool
		rest        = 3
	)
	//
	if width, err = p.number(list, 2, 64); err != nil {
		return err
	}
	//
	if list.Len() > 3 && isNumber(list.Elements[3]) {
		if init, err = p.number(list, 3, 64); err != nil {
			return err
		}
		//
		rest = 4
	}
	//
	if flags, err = p.flags(list, rest, "const"); err != nil {
		return err
	}
	//
	value := vm.NewNumValue(uint(width), int64(init))
	value.Const = flags["const"]
	obj.Set(name, value)
	//
	return nil
}

func (p *loader) loadEnum(obj *vm.Object, name string, list *sexp.List) error {
	ordinal, err := p.number(list, 2, 64)
	//
	if err != nil {
		return err
	}
	//
	flags, err := p.flags(list, 3, "const")
	//
	if err != nil {
		return err
	}
	//
	obj.Set(name, vm.NewEnumValue(int64(ordinal), flags["const"]))
	//
	return nil
}

func (p *loader) loadArray(obj *vm.Object, name string, list *sexp.List) error {
	width, err := p.number(list, 2, 64)
	//
	if err != nil {
		return err
	}
	//
	length, err := p.number(list, 3, 32)
	//
	if err != nil {
		return err
	}
	//
	flags, err := p.flags(list, 4, "axi-master", "axi-slave")
	//
	if err != nil {
		return err
	}
	//
	array := p.vm.NewIntArray(name, uint(width), uint(length))
	array.AxiMaster = flags["axi-master"]
	array.AxiSlave = flags["axi-slave"]
	obj.Set(name, vm.NewObjectValue(array.Id()))
	//
	return nil
}

func (p *loader) loadChannel(obj *vm.Object, name string, list *sexp.List) error {
	if list.Len() != 3 {
		return p.errorf(list, "expected (channel NAME WIDTH)")
	}
	//
	width, err := p.number(list, 2, 64)
	//
	if err != nil {
		return err
	}
	//
	ch := p.vm.NewChannel(name, uint(width))
	obj.Set(name, vm.NewObjectValue(ch.Id()))
	//
	return nil
}

func (p *loader) loadThread(obj *vm.Object, name string, list *sexp.List) error {
	if list.Len() != 3 {
		return p.errorf(list, "expected (thread NAME METHOD)")
	}
	//
	method, err := p.symbol(list, 2)
	//
	if err != nil {
		return err
	}
	//
	obj.Threads = append(obj.Threads, vm.ThreadDecl{Name: name, Method: method})
	//
	return nil
}

// ============================================================================
// Methods
// ============================================================================

func (p *loader) loadMethod(obj *vm.Object, name string, list *sexp.List) error {
	var (
		method = &vm.Method{Name: name}
		locals []*sexp.List
		code   *sexp.List
	)
	//
	for _, e := range list.Elements[2:] {
		clause, ok := e.(*sexp.List)
		//
		if !ok || clause.Head() == "" {
			return p.errorf(e, "expected method clause")
		}
		//
		var err error
		//
		switch clause.Head() {
		case "args":
			method.Args, err = p.loadDecls(clause, true)
		case "returns":
			method.Returns, err = p.loadDecls(clause, false)
		case "annotate":
			err = p.loadAnnotation(&method.Annotation, clause)
		case "native":
			method.Native, err = p.symbolArg(clause)
		case "alt":
			method.AltImpl, err = p.symbolArg(clause)
		case "import":
			method.Imported, err = p.symbolArg(clause)
		case "regs":
			locals, err = p.lists(clause)
		case "code":
			code = clause
		default:
			err = p.errorf(clause.Elements[0], "unknown method clause %s", clause.Head())
		}
		//
		if err != nil {
			return err
		}
	}
	// Argument and return registers come first
	p.regs = make(map[string]vm.RegisterId)
	//
	for _, arg := range method.Args {
		method.Registers = append(method.Registers, declRegister(arg.Name, arg))
		p.regs[arg.Name] = vm.RegisterId(len(method.Registers) - 1)
	}
	//
	for i, ret := range method.Returns {
		name := fmt.Sprintf("$ret%d", i)
		method.Registers = append(method.Registers, declRegister(name, ret))
		p.regs[name] = vm.RegisterId(len(method.Registers) - 1)
	}
	//
	for _, decl := range locals {
		reg, err := p.loadRegister(decl)
		//
		if err != nil {
			return err
		} else if _, ok := p.regs[reg.Name]; ok || reg.Name == THIS {
			return p.errorf(decl, "duplicate register %s", reg.Name)
		}
		//
		method.Registers = append(method.Registers, reg)
		p.regs[reg.Name] = vm.RegisterId(len(method.Registers) - 1)
	}
	//
	if code != nil {
		if err := p.loadCode(method, code); err != nil {
			return err
		}
	}
	//
	obj.AddMethod(method)
	//
	return nil
}

func (p *loader) loadDecls(clause *sexp.List, named bool) ([]vm.VarDecl, error) {
	var decls []vm.VarDecl
	//
	for _, e := range clause.Elements[1:] {
		var (
			decl  vm.VarDecl
			list  = asList(e)
			index = 0
		)
		//
		if list == nil || list.Len() == 0 {
			return nil, p.errorf(e, "expected declaration")
		} else if named {
			name, err := p.symbol(list, 0)
			//
			if err != nil {
				return nil, err
			}
			//
			decl.Name = name
			index = 1
		}
		//
		kind, err := p.symbol(list, index)
		//
		if err != nil {
			return nil, err
		}
		//
		switch kind {
		case "int":
			width, err := p.number(list, index+1, 64)
			//
			if err != nil {
				return nil, err
			}
			//
			decl.Type, decl.Width = vm.TYPE_INT, uint(width)
		case "bool":
			decl.Type = vm.TYPE_BOOL
		case "object":
			decl.Type = vm.TYPE_OBJECT
		case "string":
			decl.Type = vm.TYPE_STRING
		default:
			return nil, p.errorf(list.Elements[index], "unknown type %s", kind)
		}
		//
		decls = append(decls, decl)
	}
	//
	return decls, nil
}

func (p *loader) loadAnnotation(ann *vm.Annotation, clause *sexp.List) error {
	for _, e := range clause.Elements[1:] {
		var (
			key  string
			port string
		)
		//
		switch e := e.(type) {
		case *sexp.Symbol:
			key = e.Value
		case *sexp.List:
			if e.Len() != 2 || e.Head() == "" || !e.Elements[1].IsSymbol() {
				return p.errorf(e, "expected (KEY VALUE)")
			}
			//
			key, port = e.Head(), e.Elements[1].String()
		}
		//
		switch key {
		case "data-flow-entry":
			ann.DataFlowEntry = true
		case "ext-entry":
			ann.ExtEntry = true
		case "ext-input":
			ann.ExtInput, ann.Port = true, port
		case "ext-output":
			ann.ExtOutput, ann.Port = true, port
		default:
			return p.errorf(e, "unknown annotation %s", key)
		}
	}
	//
	return nil
}

// (NAME num WIDTH) | (NAME enum) | (NAME object) | (NAME const WIDTH VALUE)
func (p *loader) loadRegister(list *sexp.List) (vm.Register, error) {
	name, err := p.symbol(list, 0)
	//
	if err != nil {
		return vm.Register{}, err
	}
	//
	kind, err := p.symbol(list, 1)
	//
	if err != nil {
		return vm.Register{}, err
	}
	//
	switch kind {
	case "num":
		width, err := p.number(list, 2, 64)
		return vm.NewNumRegister(name, uint(width)), err
	case "enum":
		return vm.Register{Name: name, Kind: vm.ENUM_ITEM}, nil
	case "object":
		return vm.Register{Name: name, Kind: vm.OBJECT}, nil
	case "const":
		width, err := p.number(list, 2, 64)
		//
		if err != nil {
			return vm.Register{}, err
		}
		//
		value, err := p.integer(list, 3)
		//
		return vm.NewConstRegister(name, uint(width), value), err
	}
	//
	return vm.Register{}, p.errorf(list.Elements[1], "unknown register kind %s", kind)
}

func (p *loader) loadCode(method *vm.Method, code *sexp.List) error {
	ninsns := uint(code.Len() - 1)
	//
	for _, e := range code.Elements[1:] {
		insn, serr := p.insns.Translate(e)
		//
		if serr != nil {
			return serr
		}
		// Jumps may target the end of the method
		var target uint
		//
		switch insn := insn.(type) {
		case *vm.Goto:
			target = insn.Target
		case *vm.If:
			target = insn.Target
		}
		//
		if target > ninsns {
			return p.errorf(e, "jump target %d out of range", target)
		}
		//
		method.Code = append(method.Code, insn)
	}
	//
	return nil
}

func declRegister(name string, decl vm.VarDecl) vm.Register {
	switch decl.Type {
	case vm.TYPE_INT:
		return vm.NewNumRegister(name, decl.Width)
	case vm.TYPE_BOOL:
		return vm.Register{Name: name, Kind: vm.ENUM_ITEM}
	default:
		return vm.Register{Name: name, Kind: vm.OBJECT}
	}
}

// ============================================================================
// Helpers
// ============================================================================

func (p *loader) symbol(list *sexp.List, i int) (string, error) {
	if i >= list.Len() {
		return "", p.errorf(list, "missing argument %d", i)
	} else if sym, ok := list.Elements[i].(*sexp.Symbol); ok {
		return sym.Value, nil
	}
	//
	return "", p.errorf(list.Elements[i], "expected symbol")
}

func (p *loader) symbolArg(list *sexp.List) (string, error) {
	if list.Len() != 2 {
		return "", p.errorf(list, "expected (%s NAME)", list.Head())
	}
	//
	return p.symbol(list, 1)
}

func (p *loader) number(list *sexp.List, i int, bits int) (uint64, error) {
	sym, err := p.symbol(list, i)
	//
	if err != nil {
		return 0, err
	}
	//
	n, err := strconv.ParseUint(sym, 10, bits)
	//
	if err != nil {
		return 0, p.errorf(list.Elements[i], "invalid number %s", sym)
	}
	//
	return n, nil
}

func (p *loader) integer(list *sexp.List, i int) (int64, error) {
	sym, err := p.symbol(list, i)
	//
	if err != nil {
		return 0, err
	}
	//
	n, err := strconv.ParseInt(sym, 0, 64)
	//
	if err != nil {
		return 0, p.errorf(list.Elements[i], "invalid integer %s", sym)
	}
	//
	return n, nil
}

func (p *loader) flags(list *sexp.List, start int, allowed ...string) (map[string]bool, error) {
	flags := make(map[string]bool)
	//
	for i := start; i < list.Len(); i++ {
		sym, err := p.symbol(list, i)
		//
		if err != nil {
			return nil, err
		} else if !slices.Contains(allowed, sym) {
			return nil, p.errorf(list.Elements[i], "unknown flag %s", sym)
		}
		//
		flags[sym] = true
	}
	//
	return flags, nil
}

func (p *loader) lists(clause *sexp.List) ([]*sexp.List, error) {
	var lists []*sexp.List
	//
	for _, e := range clause.Elements[1:] {
		l := asList(e)
		//
		if l == nil {
			return nil, p.errorf(e, "expected (NAME KIND ...)")
		}
		//
		lists = append(lists, l)
	}
	//
	return lists, nil
}

func (p *loader) errorf(e sexp.SExp, format string, args ...any) error {
	return p.insns.SyntaxError(e, fmt.Sprintf(format, args...))
}

func asList(e sexp.SExp) *sexp.List {
	if l, ok := e.(*sexp.List); ok {
		return l
	}
	//
	return nil
}

func isNumber(e sexp.SExp) bool {
	if sym, ok := e.(*sexp.Symbol); ok {
		_, err := strconv.ParseUint(sym.Value, 10, 64)
		return err == nil
	}
	//
	return false
}
