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

package sorobanclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sorobangoclient/sorobanclient/pkg/contractspec"
)

func helloSpec() *contractspec.ContractSpec {
	return contractspec.New([]contractspec.FuncDescriptor{
		{
			Name:   "hello",
			Inputs: []contractspec.ParamDescriptor{{Name: "to", Type: "string"}},
			Output: &contractspec.ParamDescriptor{Type: "string"},
		},
		{Name: "inc"},
	}, nil, nil)
}

func TestInvokeUnknownMethod(t *testing.T) {
	c := &Client{spec: helloSpec(), options: Options{}}
	_, err := c.Invoke(context.Background(), "nope", InvokeOptions{})
	require.Error(t, err)
}

func TestInvokeMissingArgsForNonNullaryMethod(t *testing.T) {
	c := &Client{spec: helloSpec(), options: Options{}}
	_, err := c.Invoke(context.Background(), "hello", InvokeOptions{})
	require.Error(t, err)
}
