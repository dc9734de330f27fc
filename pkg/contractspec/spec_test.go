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

package contractspec

import (
	"context"
	"testing"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloSpec() *ContractSpec {
	return New([]FuncDescriptor{
		{
			Name:   "hello",
			Inputs: []ParamDescriptor{{Name: "to", Type: "string"}},
			Output: &ParamDescriptor{Type: "string"},
		},
		{
			Name: "inc",
		},
	}, []ErrorCase{
		{Value: 3, Doc: "insufficient"},
	}, nil)
}

func TestFuncsOrderPreserved(t *testing.T) {
	cs := helloSpec()
	funcs := cs.Funcs()
	require.Len(t, funcs, 2)
	assert.Equal(t, "hello", funcs[0].Name)
	assert.Equal(t, "inc", funcs[1].Name)
}

func TestGetFuncUnknown(t *testing.T) {
	cs := helloSpec()
	_, err := cs.GetFunc(context.Background(), "nope")
	assert.ErrorContains(t, err, "nope")
}

func TestFuncArgsToScValsMissingArgument(t *testing.T) {
	cs := helloSpec()
	_, err := cs.FuncArgsToScVals(context.Background(), "hello", map[string]interface{}{})
	assert.Error(t, err)
}

func TestFuncArgsToScValsRoundTrip(t *testing.T) {
	cs := helloSpec()
	scVals, err := cs.FuncArgsToScVals(context.Background(), "hello", map[string]interface{}{"to": "world"})
	require.NoError(t, err)
	require.Len(t, scVals, 1)

	native, err := DefaultValueCodec{}.FromScVal(context.Background(), "string", scVals[0])
	require.NoError(t, err)
	assert.Equal(t, "world", native)
}

func TestErrorMessageTable(t *testing.T) {
	cs := helloSpec()
	table := cs.ErrorMessageTable()
	assert.Equal(t, "insufficient", table[3])
}

func TestFuncResToNative(t *testing.T) {
	cs := helloSpec()
	str := xdr.ScString("hi")
	scv, err := xdr.NewScVal(xdr.ScValTypeScvString, str)
	require.NoError(t, err)

	native, err := cs.FuncResToNative(context.Background(), "hello", scv)
	require.NoError(t, err)
	assert.Equal(t, "hi", native)
}
