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
	"strings"
	"testing"

	"github.com/robtaylor/karuta/pkg/sexp"
	"github.com/robtaylor/karuta/pkg/synth"
	"github.com/robtaylor/karuta/pkg/util/assert"
	"github.com/robtaylor/karuta/pkg/vm"
)

const counterSrc = `
(object counter
  (num count 32 0)
  (num limit 32 10 const)
  (array buf 8 16)
  (channel ch 8)
  (object sub
    (method inc (args (x int 8)) (returns (int 8))
      (regs (one const 8 1))
      (code (add $ret0 x one))))
  (method main
    (regs (c enum) (v num 32) (one const 32 1) (s object) (r num 8))
    (code
      (member-read v this count)    ; 0
      (add v v one)                 ; 1
      (member-write this count v)   ; 2
      (load-obj s this sub)         ; 3
      (call s inc r)                ; 4
      (call-done r)                 ; 5
      (lt c v one)                  ; 6
      (if c 0)                      ; 7
      (goto 9)                      ; 8
      (nop))))`

func Test_Load_01(t *testing.T) {
	machine, top := check_Load(t, counterSrc)
	//
	assert.Equal(t, "counter", top.Name)
	// Members
	count, ok := top.Lookup("count")
	assert.True(t, ok)
	assert.Equal(t, vm.NUM, count.Kind)
	assert.Equal(t, uint(32), count.Width)
	assert.False(t, count.Const)
	//
	limit, _ := top.Lookup("limit")
	assert.True(t, limit.Const)
	assert.Equal(t, int64(10), limit.Num)
	//
	buf, _ := top.Lookup("buf")
	assert.True(t, machine.Object(buf.Object).IsIntArray())
	assert.Equal(t, uint(16), machine.Object(buf.Object).Length)
	//
	ch, _ := top.Lookup("ch")
	assert.True(t, machine.Object(ch.Object).IsChannel())
	//
	sub, _ := top.Lookup("sub")
	assert.Equal(t, vm.OBJECT, sub.Kind)
	assert.True(t, machine.Object(sub.Object).LookupMethod("inc") != nil)
}

func Test_Load_02(t *testing.T) {
	machine, top := check_Load(t, counterSrc)
	main := top.LookupMethod("main")
	//
	assert.True(t, main != nil)
	assert.Equal(t, 10, len(main.Code))
	assert.Equal(t, 5, len(main.Registers))
	// Register names resolve in declaration order
	assert.Equal(t, &vm.MemberRead{Target: 1, Object: vm.UNUSED_REGISTER, Label: "count"}, main.Code[0])
	assert.Equal(t, &vm.BinOp{Op: vm.ADD, Target: 1, Left: 1, Right: 2}, main.Code[1])
	assert.Equal(t, &vm.Funcall{Object: 3, Label: "inc", Args: []vm.RegisterId{4}}, main.Code[4])
	assert.Equal(t, &vm.If{Cond: 0, Target: 0}, main.Code[7])
	assert.Equal(t, &vm.Goto{Target: 9}, main.Code[8])
	assert.True(t, main.Registers[2].Const)
	// Arguments come first, then returns, then locals
	sub, _ := top.Lookup("sub")
	inc := machine.Object(sub.Object).LookupMethod("inc")
	assert.Equal(t, []string{"x", "$ret0", "one"}, registerNames(inc))
	assert.Equal(t, &vm.BinOp{Op: vm.ADD, Target: 1, Left: 0, Right: 2}, inc.Code[0])
}

func Test_Load_03(t *testing.T) {
	_, top := check_Load(t, `
(object io
  (method out (args (v int 4)) (annotate (ext-output led)))
  (method in (returns (int 4)) (annotate (ext-input sw)))
  (method flow (annotate data-flow-entry))
  (method wait (native wait))
  (thread worker flow))`)
	//
	out := top.LookupMethod("out")
	assert.True(t, out.Annotation.ExtOutput)
	assert.Equal(t, "led", out.Annotation.Port)
	assert.Equal(t, 1, len(out.Registers))
	//
	in := top.LookupMethod("in")
	assert.True(t, in.Annotation.ExtInput)
	assert.Equal(t, "$ret0", in.Registers[0].Name)
	//
	assert.True(t, top.LookupMethod("flow").Annotation.DataFlowEntry)
	assert.Equal(t, "wait", top.LookupMethod("wait").Native)
	assert.Equal(t, []vm.ThreadDecl{{Name: "worker", Method: "flow"}}, top.Threads)
}

func Test_Load_04(t *testing.T) {
	_, top := check_Load(t, `
(object o
  (method print (args (v int 8)) (code (nop)))
  (method main (code (nop))))`)
	//
	method := top.LookupMethod("print")
	assert.False(t, method.IsBuiltin())
	assert.Equal(t, 1, len(method.Args))
	assert.Equal(t, 1, len(method.Code))
	// Declaration replaces the built-in in place
	assert.Equal(t, "print", top.Methods()[0].Name)
	assert.True(t, top.LookupMethod("assert").IsBuiltin())
}

// ============================================================================
// Errors
// ============================================================================

func Test_LoadError_01(t *testing.T) {
	check_LoadError(t, `(object o (method main (code (assign bogus bogus))))`, "bogus", "unknown register bogus")
}

func Test_LoadError_02(t *testing.T) {
	check_LoadError(t, `(object o (method main (code (goto 5))))`, "(goto 5)", "jump target 5 out of range")
}

func Test_LoadError_03(t *testing.T) {
	check_LoadError(t, `(object o (method main (code (frobnicate))))`, "frobnicate", "unknown frobnicate")
}

func Test_LoadError_04(t *testing.T) {
	check_LoadError(t, `(object o (method main (code (nop 1))))`, "(nop 1)",
		"incorrect number of arguments (expected 0, found 1)")
}

func Test_LoadError_05(t *testing.T) {
	check_LoadError(t, `(object o (num x 8) (num x 8))`, "x 8))", "duplicate member x")
}

func Test_LoadError_06(t *testing.T) {
	check_LoadError(t, `(object o (method main (regs (this num 8))))`, "(this num 8)", "duplicate register this")
}

func Test_LoadError_07(t *testing.T) {
	check_LoadError(t, `(object o (method main (args (x float))))`, "float", "unknown type float")
}

func Test_LoadError_08(t *testing.T) {
	check_LoadError(t, `(object o (num print 8))`, "print", "duplicate member print")
}

// ============================================================================
// Synthesis
// ============================================================================

func Test_LoadSynth_01(t *testing.T) {
	machine, top := check_Load(t, counterSrc)
	//
	design, err := synth.NewDesignSynth(machine, top, synth.DefaultOptions()).Synth()
	assert.NoError(t, err)
	//
	var names []string
	//
	for _, mod := range design.Modules {
		for _, tab := range mod.Tables {
			names = append(names, tab.Name)
		}
	}
	//
	assert.True(t, len(names) > 0)
	assert.Equal(t, "main", names[0])
	assert.True(t, len(design.Modules[0].Tables[0].States) > 0)
}

// ============================================================================
// Helpers
// ============================================================================

func check_Load(t *testing.T, src string) (*vm.VM, *vm.Object) {
	t.Helper()
	//
	machine, top, err := Load(sexp.NewSourceFile("test.kb", []byte(src)))
	//
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	//
	return machine, top
}

// Check loading fails with a given message, reported at the first occurrence of
// a given fragment.
func check_LoadError(t *testing.T, src string, at string, msg string) {
	t.Helper()
	//
	_, _, err := Load(sexp.NewSourceFile("test.kb", []byte(src)))
	//
	if err == nil {
		t.Fatalf("expected error %q", msg)
	}
	//
	assert.Equal(t, msg, err.Message())
	assert.Equal(t, strings.Index(src, at), err.Span().Start())
}

func registerNames(method *vm.Method) []string {
	var names []string
	//
	for _, reg := range method.Registers {
		names = append(names, reg.Name)
	}
	//
	return names
}
