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
	"strings"
)

// SExp is an S-Expression is either a List of zero or more S-Expressions, or
// a Symbol.
type SExp interface {
	// IsList checks whether this S-Expression is a list.
	IsList() bool
	// IsSymbol checks whether this S-Expression is a symbol.
	IsSymbol() bool
	// String generates a flat string representation.
	String() string
}

// ===================================================================
// List
// ===================================================================

// List represents a list of zero or more S-Expressions.
type List struct {
	Elements []SExp
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ SExp = (*List)(nil)

// NewList constructs a list from zero or more elements.
func NewList(elements ...SExp) *List {
	return &List{elements}
}

// IsList sets that is a list.
func (l *List) IsList() bool { return true }

// IsSymbol that a List is not a Symbol.
func (l *List) IsSymbol() bool { return false }

// Len gets the number of elements in this list.
func (l *List) Len() int { return len(l.Elements) }

// Get the ith element of this list.
func (l *List) Get(i int) SExp { return l.Elements[i] }

// Head returns the symbol at the start of this list, or "" if the list is empty
// or starts with a nested list.
func (l *List) Head() string {
	if len(l.Elements) > 0 {
		if s, ok := l.Elements[0].(*Symbol); ok {
			return s.Value
		}
	}
	//
	return ""
}

// Append one or more elements to this list.
func (l *List) Append(elements ...SExp) {
	l.Elements = append(l.Elements, elements...)
}

func (l *List) String() string {
	var builder strings.Builder
	//
	builder.WriteString("(")
	//
	for i, e := range l.Elements {
		if i != 0 {
			builder.WriteString(" ")
		}
		//
		builder.WriteString(e.String())
	}
	//
	builder.WriteString(")")
	//
	return builder.String()
}

// MatchSymbols matches a list which starts with at least n symbols, of which the
// first m match the given strings.
func (l *List) MatchSymbols(n int, symbols ...string) bool {
	if len(l.Elements) < n || len(symbols) > n {
		return false
	}

	for i := 0; i < len(symbols); i++ {
		switch ith := l.Elements[i].(type) {
		case *Symbol:
			if ith.Value != symbols[i] {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// depth returns the maximum nesting depth of lists within this list, where a
// list containing only symbols has depth 1.
func (l *List) depth() uint {
	var d uint
	//
	for _, e := range l.Elements {
		if ith, ok := e.(*List); ok {
			d = max(d, ith.depth())
		}
	}
	//
	return d + 1
}

// ===================================================================
// Symbol
// ===================================================================

// Symbol represents a terminating symbol.
type Symbol struct {
	Value string
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ SExp = (*Symbol)(nil)

// NewSymbol constructs a new symbol.
func NewSymbol(value string) *Symbol {
	return &Symbol{value}
}

// IsList sets that A Symbol is not a List.
func (s *Symbol) IsList() bool { return false }

// IsSymbol sets tha is a Symbol.
func (s *Symbol) IsSymbol() bool { return true }

func (s *Symbol) String() string { return s.Value }

// ===================================================================
// Formatting
// ===================================================================

// Format renders an S-Expression across multiple lines.  Lists whose nesting
// depth is at most flat are written on a single line, whilst deeper lists place
// each element on its own line indented by two spaces.
func Format(e SExp, flat uint) string {
	var builder strings.Builder
	//
	format(&builder, e, flat, 0)
	//
	return builder.String()
}

func format(builder *strings.Builder, e SExp, flat uint, indent int) {
	l, ok := e.(*List)
	//
	if !ok || l.depth() <= flat {
		builder.WriteString(e.String())
		return
	}
	//
	builder.WriteString("(")
	// Leading symbols stay on the opening line
	i := 0
	for ; i < len(l.Elements) && l.Elements[i].IsSymbol(); i++ {
		if i != 0 {
			builder.WriteString(" ")
		}
		//
		builder.WriteString(l.Elements[i].String())
	}
	//
	for ; i < len(l.Elements); i++ {
		builder.WriteString("\n")
		builder.WriteString(strings.Repeat("  ", indent+1))
		format(builder, l.Elements[i], flat, indent+1)
	}
	//
	builder.WriteString(")")
}
