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

package rpcclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(req *RPCRequest) *RPCResponse) (Client, func()) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		res := handler(&req)
		res.JSONRpc = "2.0"
		res.ID = req.ID
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(res))
	}))
	c, err := NewHTTPClient(context.Background(), &Config{URL: srv.URL, AllowHTTP: true})
	require.NoError(t, err)
	return c, srv.Close
}

func TestCallRPCSuccess(t *testing.T) {
	c, done := newTestServer(t, func(req *RPCRequest) *RPCResponse {
		assert.Equal(t, "getAccount", req.Method)
		var p GetAccountParams
		require.NoError(t, json.Unmarshal(req.Params, &p))
		assert.Equal(t, "GABC", p.Address)
		resultJSON, _ := json.Marshal(&GetAccountResult{AccountID: "GABC", Sequence: "42"})
		return &RPCResponse{Result: resultJSON}
	})
	defer done()

	var result GetAccountResult
	err := c.CallRPC(context.Background(), &result, "getAccount", &GetAccountParams{Address: "GABC"})
	require.NoError(t, err)
	assert.Equal(t, "42", result.Sequence)
}

func TestCallRPCErrorResponse(t *testing.T) {
	c, done := newTestServer(t, func(req *RPCRequest) *RPCResponse {
		return &RPCResponse{Error: &RPCError{Code: -32000, Message: "account not found"}}
	})
	defer done()

	var result GetAccountResult
	err := c.CallRPC(context.Background(), &result, "getAccount", &GetAccountParams{Address: "GABC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account not found")
}

func TestSorobanRPCRoundTrip(t *testing.T) {
	c, done := newTestServer(t, func(req *RPCRequest) *RPCResponse {
		switch req.Method {
		case "simulateTransaction":
			resultJSON, _ := json.Marshal(&SimulateTransactionResult{
				TransactionData: "deadbeef",
				Results:         []SimulateHostFunctionResult{{XDR: "cafe"}},
				LatestLedger:    100,
			})
			return &RPCResponse{Result: resultJSON}
		case "sendTransaction":
			resultJSON, _ := json.Marshal(&SendTransactionResult{Status: SendStatusPending, Hash: "abc123"})
			return &RPCResponse{Result: resultJSON}
		case "getTransaction":
			resultJSON, _ := json.Marshal(&GetTransactionResult{Status: TxStatusNotFound})
			return &RPCResponse{Result: resultJSON}
		default:
			return &RPCResponse{Error: &RPCError{Code: -32601, Message: "method not found"}}
		}
	})
	defer done()

	rpc := NewSorobanRPC(c)
	ctx := context.Background()

	sim, err := rpc.SimulateTransaction(ctx, "envelope")
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", sim.TransactionData)

	send, err := rpc.SendTransaction(ctx, "envelope")
	require.NoError(t, err)
	assert.Equal(t, SendStatusPending, send.Status)

	tx, err := rpc.GetTransaction(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, TxStatusNotFound, tx.Status)
}
