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

package senttx

import (
	"context"
	"testing"
	"time"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sorobangoclient/sorobanclient/pkg/rpcclient"
	"github.com/sorobangoclient/sorobanclient/pkg/txassembly"
)

type mockSorobanRPC struct {
	mock.Mock
}

func (m *mockSorobanRPC) GetAccount(ctx context.Context, address string) (*rpcclient.GetAccountResult, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(*rpcclient.GetAccountResult), args.Error(1)
}

func (m *mockSorobanRPC) SimulateTransaction(ctx context.Context, txEnvelopeXDR string) (*rpcclient.SimulateTransactionResult, error) {
	args := m.Called(ctx, txEnvelopeXDR)
	return args.Get(0).(*rpcclient.SimulateTransactionResult), args.Error(1)
}

func (m *mockSorobanRPC) SendTransaction(ctx context.Context, txEnvelopeXDR string) (*rpcclient.SendTransactionResult, error) {
	args := m.Called(ctx, txEnvelopeXDR)
	return args.Get(0).(*rpcclient.SendTransactionResult), args.Error(1)
}

func (m *mockSorobanRPC) GetTransaction(ctx context.Context, hash string) (*rpcclient.GetTransactionResult, error) {
	args := m.Called(ctx, hash)
	return args.Get(0).(*rpcclient.GetTransactionResult), args.Error(1)
}

func (m *mockSorobanRPC) GetLedgerEntries(ctx context.Context, keysXDR []string) (*rpcclient.GetLedgerEntriesResult, error) {
	args := m.Called(ctx, keysXDR)
	return args.Get(0).(*rpcclient.GetLedgerEntriesResult), args.Error(1)
}

func TestSendFailedOnNonPendingStatus(t *testing.T) {
	rpc := &mockSorobanRPC{}
	rpc.On("SendTransaction", mock.Anything, "envelope").Return(&rpcclient.SendTransactionResult{
		Status: rpcclient.SendStatusError,
	}, nil)

	options := &txassembly.Options{Client: txassembly.ClientOptions{RPC: rpc}}
	_, err := Init(context.Background(), options, "envelope")
	require.Error(t, err)
	rpc.AssertExpectations(t)
}

func TestSendSucceedsOnFirstPoll(t *testing.T) {
	rpc := &mockSorobanRPC{}
	rpc.On("SendTransaction", mock.Anything, "envelope").Return(&rpcclient.SendTransactionResult{
		Status: rpcclient.SendStatusPending,
		Hash:   "deadbeef",
	}, nil)
	rpc.On("GetTransaction", mock.Anything, "deadbeef").Return(&rpcclient.GetTransactionResult{
		Status: rpcclient.TxStatusSuccess,
	}, nil)

	options := &txassembly.Options{
		Client: txassembly.ClientOptions{RPC: rpc},
		Method: txassembly.MethodOptions{TimeoutInSeconds: 5},
	}
	st, err := Init(context.Background(), options, "envelope")
	require.NoError(t, err)
	require.Len(t, st.GetTransactionResponseAll, 1)
	require.Equal(t, rpcclient.TxStatusSuccess, st.GetTransactionResponse.Status)
	rpc.AssertExpectations(t)
}

func TestResultSendResultOnlyWhenNeverPolled(t *testing.T) {
	st := &SentTransaction{
		options:                 &txassembly.Options{},
		SendTransactionResponse: &rpcclient.SendTransactionResult{Status: rpcclient.SendStatusPending},
	}
	_, err := st.Result(context.Background())
	require.Error(t, err)
}

func TestResultParsesReturnValue(t *testing.T) {
	str := xdr.ScString("ok")
	scv, err := xdr.NewScVal(xdr.ScValTypeScvString, str)
	require.NoError(t, err)
	encoded, err := xdr.MarshalBase64(scv)
	require.NoError(t, err)

	st := &SentTransaction{
		options: &txassembly.Options{
			ParseResultXdr: func(wireValue xdr.ScVal) (interface{}, error) {
				return string(*wireValue.Str), nil
			},
		},
		GetTransactionResponse: &rpcclient.GetTransactionResult{
			Status:      rpcclient.TxStatusSuccess,
			ReturnValue: encoded,
		},
	}
	native, err := st.Result(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", native)
}

func TestResultMapsContractErrorCode(t *testing.T) {
	st := &SentTransaction{
		options: &txassembly.Options{
			ErrorTypes: map[uint32]string{3: "insufficient"},
			ParseResultXdr: func(wireValue xdr.ScVal) (interface{}, error) {
				return nil, errContractError
			},
		},
		GetTransactionResponse: &rpcclient.GetTransactionResult{
			Status:      rpcclient.TxStatusFailed,
			ReturnValue: mustMarshalVoidScVal(t),
		},
	}
	native, err := st.Result(context.Background())
	require.NoError(t, err)
	tagged, ok := native.(*txassembly.Err)
	require.True(t, ok)
	require.Equal(t, uint32(3), tagged.Code)
	require.Equal(t, "insufficient", tagged.Message)
}

// TestTransactionStillPendingAfterTimeout drives the backoff loop on a fake
// clock that advances by exactly the requested delay on every afterFn call,
// so the deadline is crossed deterministically without a real sleep (P6).
func TestTransactionStillPendingAfterTimeout(t *testing.T) {
	rpc := &mockSorobanRPC{}
	rpc.On("SendTransaction", mock.Anything, "envelope").Return(&rpcclient.SendTransactionResult{
		Status: rpcclient.SendStatusPending,
		Hash:   "deadbeef",
	}, nil)
	rpc.On("GetTransaction", mock.Anything, "deadbeef").Return(&rpcclient.GetTransactionResult{
		Status: rpcclient.TxStatusNotFound,
	}, nil)

	clock := time.Unix(0, 0)
	st := &SentTransaction{
		options: &txassembly.Options{
			Client: txassembly.ClientOptions{RPC: rpc},
			Method: txassembly.MethodOptions{TimeoutInSeconds: 3},
		},
		Signed: "envelope",
		nowFn:  func() time.Time { return clock },
		afterFn: func(d time.Duration) <-chan time.Time {
			clock = clock.Add(d)
			ch := make(chan time.Time, 1)
			ch <- clock
			return ch
		},
	}
	err := st.send(context.Background())
	require.Error(t, err)
	require.Greater(t, len(st.GetTransactionResponseAll), 0)
	rpc.AssertExpectations(t)
}

var errContractError = &fakeContractErr{}

type fakeContractErr struct{}

func (*fakeContractErr) Error() string { return "host invocation failed: Error(Contract, #3)" }

func mustMarshalVoidScVal(t *testing.T) string {
	v := xdr.ScVal{Type: xdr.ScValTypeScvVoid}
	encoded, err := xdr.MarshalBase64(v)
	require.NoError(t, err)
	return encoded
}
