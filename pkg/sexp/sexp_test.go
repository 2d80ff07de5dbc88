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
package sexp

import (
	"reflect"
	"testing"

	"github.com/robtaylor/karuta/pkg/util/assert"
)

// ============================================================================
// Positive Tests
// ============================================================================

func TestSexp_01(t *testing.T) {
	CheckOk(t, nil, "")
}

func TestSexp_02(t *testing.T) {
	e1 := List{nil}
	CheckOk(t, &e1, "()")
}

func TestSexp_03(t *testing.T) {
	e1 := List{nil}
	e2 := List{[]SExp{&e1}}
	CheckOk(t, &e2, "(())")
}

func TestSexp_04(t *testing.T) {
	e1 := Symbol{"symbol"}
	CheckOk(t, &e1, "symbol")
}

func TestSexp_05(t *testing.T) {
	e1 := Symbol{"-12345"}
	CheckOk(t, &e1, "-12345")
}

func TestSexp_06(t *testing.T) {
	e1 := Symbol{"symbol"}
	e2 := List{[]SExp{&e1, &e1}}
	CheckOk(t, &e2, "(symbol symbol)")
}

func TestSexp_07(t *testing.T) {
	e1 := Symbol{"hello"}
	e2 := Symbol{"world"}
	e3 := List{[]SExp{&e2}}
	e4 := List{[]SExp{&e1, &e3}}
	CheckOk(t, &e4, "(hello(world))")
}

func TestSexp_08(t *testing.T) {
	e1 := Symbol{"add"}
	e2 := Symbol{"x"}
	e3 := List{[]SExp{&e1, &e2}}
	CheckOk(t, &e3, "; leading comment\n(add ; trailing comment\n x)\n")
}

func TestSexp_09(t *testing.T) {
	terms, err := ParseAll("(a) b (c d)")
	assert.NoError(t, err)
	assert.Equal(t, 3, len(terms))
	assert.Equal(t, "(c d)", terms[2].String())
}

func TestSexp_10(t *testing.T) {
	e, err := Parse("(MODULE 1 m (TABLE 1 t (STATE 1 (INSN 1 tr 1))))")
	assert.NoError(t, err)
	assert.Equal(t, "(MODULE 1 m\n  (TABLE 1 t\n    (STATE 1 (INSN 1 tr 1))))", Format(e, 2))
	assert.Equal(t, e.String(), Format(e, 10))
}

func TestSexp_11(t *testing.T) {
	srcfile := NewSourceFile("test", []byte("(a\n (b c))"))
	e, srcmap, err := srcfile.Parse()
	assert.True(t, err == nil)
	//
	inner := e.(*List).Get(1)
	span := srcmap.Get(inner)
	assert.Equal(t, 4, span.Start())
	assert.Equal(t, 9, span.End())
	//
	line := FindFirstEnclosingLine(srcfile.Contents(), span)
	assert.Equal(t, 2, line.Number())
	assert.Equal(t, " (b c))", line.String())
}

func TestTranslator_01(t *testing.T) {
	srcfile := NewSourceFile("test", []byte("(pair 1 2)\n(single 3)\n(pair 4)"))
	terms, srcmap, err := srcfile.ParseAll()
	assert.True(t, err == nil)
	//
	translator := NewTranslator[string](srcfile, srcmap)
	translator.AddArityRule("pair", 2, func(l *List) (string, error) {
		return l.Get(1).String() + "+" + l.Get(2).String(), nil
	})
	//
	r, serr := translator.Translate(terms[0])
	assert.True(t, serr == nil)
	assert.Equal(t, "1+2", r)
	// Unknown rule
	_, serr = translator.Translate(terms[1])
	assert.True(t, serr != nil)
	assert.Equal(t, "unknown single", serr.Message())
	line := serr.FirstEnclosingLine()
	assert.Equal(t, 2, line.Number())
	// Wrong arity
	_, serr = translator.Translate(terms[2])
	assert.True(t, serr != nil)
	line = serr.FirstEnclosingLine()
	assert.Equal(t, 3, line.Number())
}

// ============================================================================
// Negative Tests
// ============================================================================

// unexpected end of list
func TestSexp_Err1(t *testing.T) {
	CheckErr(t, ")")
}

// unexpected end of list
func TestSexp_Err2(t *testing.T) {
	CheckErr(t, "())")
}

// unexpected end of file
func TestSexp_Err3(t *testing.T) {
	CheckErr(t, "(string")
}

// unexpected remainder
func TestSexp_Err4(t *testing.T) {
	CheckErr(t, "(another string) x")
}

// ============================================================================
// Helpers
// ============================================================================

func CheckOk(t *testing.T, sexp1 SExp, input string) {
	sexp2, err := Parse(input)
	//
	if err != nil {
		t.Error(err)
	} else if !reflect.DeepEqual(sexp1, sexp2) {
		t.Errorf("%s != %s", sexp1, sexp2)
	}
}

func CheckErr(t *testing.T, input string) {
	_, err := Parse(input)
	//
	if err == nil {
		t.Errorf("input should not have parsed!")
	}
}
