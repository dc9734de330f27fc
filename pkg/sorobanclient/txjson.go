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
	"encoding/json"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
	"github.com/sorobangoclient/sorobanclient/pkg/txassembly"
)

// TxFromJSON parses the wire form far enough to extract the method name,
// then delegates to txassembly.FromJSON with a freshly bound parseResultXdr
// for that method (spec §4.6 txFromJSON<T>).
func (c *Client) TxFromJSON(ctx context.Context, data []byte) (*txassembly.AssembledTransaction, error) {
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgInternalError, err)
	}
	// GetFunc's only role here is to confirm probe.Method names a function in
	// the bound spec before FromJSON proceeds any further with it.
	if _, err := c.spec.GetFunc(ctx, probe.Method); err != nil {
		return nil, err
	}

	txOptions := &txassembly.Options{
		Client: txassembly.ClientOptions{
			RPC:               c.rpc,
			ContractID:        c.options.ContractID,
			NetworkPassphrase: c.options.NetworkPassphrase,
			AllowHTTP:         c.options.AllowHTTP,
			PublicKey:         c.options.PublicKey,
			SignTransaction:   c.options.SignTransaction,
			SignAuthEntry:     c.options.SignAuthEntry,
			ErrorTypes:        c.spec.ErrorMessageTable(),
		},
		MethodName: probe.Method,
		ParseResultXdr: func(wireValue xdr.ScVal) (interface{}, error) {
			return c.spec.FuncResToNative(ctx, probe.Method, wireValue)
		},
		ErrorTypes: c.spec.ErrorMessageTable(),
	}
	return txassembly.FromJSON(ctx, txOptions, data)
}
