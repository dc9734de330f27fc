// Copyright © 2024 Kaleido, Inc.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package contractspec walks a contract's interface description (its "spec")
// and exposes the operations the client factory needs to bind method names
// to argument/result marshalling: funcs, getFunc, funcArgsToScVals,
// funcResToNative and errorCases.
package contractspec

import (
	"context"
	"fmt"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
)

// ParamDescriptor describes one named, typed function input or the single output.
type ParamDescriptor struct {
	Name string
	Type string
	Doc  string
}

// FuncDescriptor describes one contract function.
type FuncDescriptor struct {
	Name    string
	Inputs  []ParamDescriptor
	Output  *ParamDescriptor
	Doc     string
}

// ErrorCase is one declared error-enum entry: a small non-negative integer code
// paired with the documentation string the client factory uses as the error message.
type ErrorCase struct {
	Value uint32
	Doc   string
}

// ValueCodec converts between host-language values and the platform's wire
// value type (xdr.ScVal) for one declared type name. Native<->wire conversion
// is the spec's own out-of-scope concern; the default codec below handles the
// common primitive types, and callers may supply a richer codec (e.g. one
// generated from a UDT registry) as the codec argument of New.
type ValueCodec interface {
	ToScVal(ctx context.Context, typeName string, value interface{}) (xdr.ScVal, error)
	FromScVal(ctx context.Context, typeName string, val xdr.ScVal) (interface{}, error)
}

// ContractSpec is the immutable, parsed form of a contract's interface description.
type ContractSpec struct {
	funcsByName map[string]*FuncDescriptor
	funcOrder   []string
	errors      []ErrorCase
	codec       ValueCodec
}

// New builds a ContractSpec from an ordered sequence of function descriptors
// and error-enum cases, exactly as parsed out of the contractspecv0 wasm
// section (see sorobanclient's wasm extraction) or supplied directly by a caller.
func New(funcs []FuncDescriptor, errors []ErrorCase, codec ValueCodec) *ContractSpec {
	if codec == nil {
		codec = DefaultValueCodec{}
	}
	cs := &ContractSpec{
		funcsByName: make(map[string]*FuncDescriptor, len(funcs)),
		errors:      errors,
		codec:       codec,
	}
	for i := range funcs {
		f := funcs[i]
		cs.funcsByName[f.Name] = &f
		cs.funcOrder = append(cs.funcOrder, f.Name)
	}
	return cs
}

// Funcs returns the function descriptors in declaration order.
func (cs *ContractSpec) Funcs() []*FuncDescriptor {
	out := make([]*FuncDescriptor, len(cs.funcOrder))
	for i, name := range cs.funcOrder {
		out[i] = cs.funcsByName[name]
	}
	return out
}

// GetFunc looks up one function descriptor by name.
func (cs *ContractSpec) GetFunc(ctx context.Context, name string) (*FuncDescriptor, error) {
	f, ok := cs.funcsByName[name]
	if !ok {
		return nil, i18n.NewError(ctx, errmsgs.MsgSpecUnknownFunction, name)
	}
	return f, nil
}

// ErrorCases returns the contract's declared {value, doc} error entries.
func (cs *ContractSpec) ErrorCases() []ErrorCase {
	return cs.errors
}

// FuncArgsToScVals deterministically marshals a name->value mapping into the
// ordered sequence of wire values matching the function's declared parameter
// order. A missing non-optional argument is an InvalidArgument failure.
func (cs *ContractSpec) FuncArgsToScVals(ctx context.Context, name string, namedArgs map[string]interface{}) ([]xdr.ScVal, error) {
	f, err := cs.GetFunc(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]xdr.ScVal, len(f.Inputs))
	for i, in := range f.Inputs {
		v, ok := namedArgs[in.Name]
		if !ok {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecMissingArgument, in.Name, name)
		}
		scv, err := cs.codec.ToScVal(ctx, in.Type, v)
		if err != nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecArgMarshalFailed, in.Name, name, err)
		}
		out[i] = scv
	}
	return out, nil
}

// FuncResToNative is the inverse of FuncArgsToScVals for the return value.
func (cs *ContractSpec) FuncResToNative(ctx context.Context, name string, wireValue xdr.ScVal) (interface{}, error) {
	f, err := cs.GetFunc(ctx, name)
	if err != nil {
		return nil, err
	}
	if f.Output == nil {
		return nil, nil
	}
	native, err := cs.codec.FromScVal(ctx, f.Output.Type, wireValue)
	if err != nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgSpecResultUnmarshalFailed, name, err)
	}
	return native, nil
}

// ErrorMessageTable folds ErrorCases() into an integer->message map the
// client factory attaches to every AssembledTransaction it builds (spec §4.1, §4.6).
func (cs *ContractSpec) ErrorMessageTable() map[uint32]string {
	table := make(map[uint32]string, len(cs.errors))
	for _, e := range cs.errors {
		table[e.Value] = e.Doc
	}
	return table
}

func (f *FuncDescriptor) String() string {
	return fmt.Sprintf("%s(%d args)", f.Name, len(f.Inputs))
}
