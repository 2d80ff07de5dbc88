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
	"fmt"
)

// ListRule is a list translator is responsible converting a list with a given
// sequence of zero or more arguments into an expression type T.  The rule
// receives the complete list, including its leading symbol.
type ListRule[T comparable] func(*List) (T, error)

// ===================================================================
// Translator
// ===================================================================

// Translator is a generic mechanism for translating S-Expressions into a structured
// form.  Rules are selected by the leading symbol of a list, and any error
// reported by a rule is attributed to the span of the list being translated.
type Translator[T comparable] struct {
	srcfile *SourceFile
	srcmap  *SourceMap[SExp]
	lists   map[string]ListRule[T]
}

// NewTranslator constructs a new Translator instance.
func NewTranslator[T comparable](srcfile *SourceFile, srcmap *SourceMap[SExp]) *Translator[T] {
	return &Translator[T]{
		srcfile: srcfile,
		srcmap:  srcmap,
		lists:   make(map[string]ListRule[T]),
	}
}

// ===================================================================
// Public
// ===================================================================

// Translate a given S-Expression into a given structured representation T.
func (p *Translator[T]) Translate(sexp SExp) (T, *SyntaxError) {
	var empty T
	//
	list, ok := sexp.(*List)
	if !ok {
		return empty, p.SyntaxError(sexp, "expected list")
	}
	// Sanity check this list makes sense
	name := list.Head()
	if name == "" {
		return empty, p.SyntaxError(sexp, "invalid list")
	}
	// Lookup appropriate translator
	t := p.lists[name]
	// Check whether we found one.
	if t == nil {
		return empty, p.SyntaxError(list.Elements[0], fmt.Sprintf("unknown %s", name))
	}
	//
	item, err := t(list)
	//
	if serr, ok := err.(*SyntaxError); ok && serr != nil {
		return empty, serr
	} else if err != nil {
		return empty, p.SyntaxError(sexp, err.Error())
	}
	//
	return item, nil
}

// AddListRule adds a new list translator for lists starting with the given
// symbol.
func (p *Translator[T]) AddListRule(name string, t ListRule[T]) {
	p.lists[name] = t
}

// AddArityRule adds a list translator for lists which must have exactly n
// arguments (i.e. excluding the leading symbol).
func (p *Translator[T]) AddArityRule(name string, n int, t ListRule[T]) {
	p.lists[name] = func(list *List) (T, error) {
		var empty T
		//
		if list.Len() != n+1 {
			msg := fmt.Sprintf("incorrect number of arguments (expected %d, found %d)", n, list.Len()-1)
			return empty, p.SyntaxError(list, msg)
		}
		//
		return t(list)
	}
}

// SyntaxError constructs a syntax error for a given S-Expression.  If the
// expression is not known to the source map, the error covers the entire file.
func (p *Translator[T]) SyntaxError(sexp SExp, msg string) *SyntaxError {
	if p.srcmap != nil && p.srcmap.Has(sexp) {
		return p.srcfile.SyntaxError(p.srcmap.Get(sexp), msg)
	}
	//
	return p.srcfile.SyntaxError(NewSpan(0, len(p.srcfile.contents)), msg)
}
