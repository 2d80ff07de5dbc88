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
package vm

import (
	"fmt"
)

// ValueKind identifies the kind of value held in a register or object slot.
type ValueKind uint8

const (
	// NUM represents a fixed-width integer.
	NUM ValueKind = iota
	// ENUM_ITEM represents a single-bit enumeration item (e.g. a boolean).
	ENUM_ITEM
	// OBJECT represents a reference to another object.
	OBJECT
	// METHOD represents a method slot.
	METHOD
)

func (p ValueKind) String() string {
	switch p {
	case NUM:
		return "num"
	case ENUM_ITEM:
		return "enum"
	case OBJECT:
		return "object"
	case METHOD:
		return "method"
	}
	//
	return fmt.Sprintf("kind#%d", uint8(p))
}

// Value represents the contents of an object slot.  Numeric and enum values
// carry their declared width and current (i.e. initial) value.  Object values
// refer to a member object in the enclosing VM, and method values to a method.
type Value struct {
	Kind ValueKind
	// Declared bit width (numeric values only).
	Width uint
	// Numeric value, or ordinal of an enum item.
	Num int64
	// Indicates a compile-time constant.
	Const bool
	// Member object (object values only).
	Object ObjectId
	// Method (method values only).
	Method *Method
}

// NewNumValue constructs a numeric value of a given width.
func NewNumValue(width uint, num int64) Value {
	return Value{Kind: NUM, Width: width, Num: num}
}

// NewEnumValue constructs an enum item value.
func NewEnumValue(ordinal int64, constant bool) Value {
	return Value{Kind: ENUM_ITEM, Num: ordinal, Const: constant}
}

// NewObjectValue constructs a reference to a given object.
func NewObjectValue(obj ObjectId) Value {
	return Value{Kind: OBJECT, Object: obj}
}

// NewMethodValue constructs a method slot value.
func NewMethodValue(method *Method) Value {
	return Value{Kind: METHOD, Method: method}
}

func (p Value) String() string {
	switch p.Kind {
	case NUM:
		return fmt.Sprintf("%d:%d", p.Num, p.Width)
	case ENUM_ITEM:
		return fmt.Sprintf("enum(%d)", p.Num)
	case OBJECT:
		return fmt.Sprintf("obj#%d", p.Object)
	case METHOD:
		return fmt.Sprintf("method(%s)", p.Method.Name)
	}
	//
	return "?"
}
