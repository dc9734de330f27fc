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

import "context"

// The five domain operations the core state machine consumes (spec §4.5).
// Each is a typed, single-object-params wrapper around CallRPC - the adapter
// itself knows nothing about transaction assembly or simulation semantics.

type GetAccountParams struct {
	Address string `json:"address"`
}

type GetAccountResult struct {
	AccountID       string `json:"accountId"`
	Sequence        string `json:"sequence"`
}

type SimulateTransactionParams struct {
	Transaction string `json:"transaction"`
}

type RestorePreamble struct {
	TransactionData string `json:"transactionData"`
	MinResourceFee  string `json:"minResourceFee"`
}

type SimulateHostFunctionResult struct {
	Auth   []string `json:"auth"`
	XDR    string   `json:"xdr"`
}

type SimulateTransactionResult struct {
	Error           string                       `json:"error,omitempty"`
	TransactionData string                       `json:"transactionData,omitempty"`
	MinResourceFee  string                       `json:"minResourceFee,omitempty"`
	Results         []SimulateHostFunctionResult `json:"results,omitempty"`
	RestorePreamble *RestorePreamble             `json:"restorePreamble,omitempty"`
	LatestLedger    int64                        `json:"latestLedger"`
}

type SendTransactionParams struct {
	Transaction string `json:"transaction"`
}

const (
	SendStatusPending = "PENDING"
	SendStatusError   = "ERROR"
	SendStatusDuplicate = "DUPLICATE"
)

type SendTransactionResult struct {
	Status         string `json:"status"`
	Hash           string `json:"hash"`
	ErrorResultXdr string `json:"errorResultXdr,omitempty"`
	LatestLedger   int64  `json:"latestLedger"`
}

type GetTransactionParams struct {
	Hash string `json:"hash"`
}

const (
	TxStatusNotFound = "NOT_FOUND"
	TxStatusSuccess  = "SUCCESS"
	TxStatusFailed   = "FAILED"
)

type GetTransactionResult struct {
	Status       string `json:"status"`
	ReturnValue  string `json:"returnValue,omitempty"`
	ResultXdr    string `json:"resultXdr,omitempty"`
	LatestLedger int64  `json:"latestLedger"`
}

type GetLedgerEntriesParams struct {
	Keys []string `json:"keys"`
}

type LedgerEntryResult struct {
	Key               string `json:"key"`
	XDR               string `json:"xdr"`
	LiveUntilLedgerSeq *uint32 `json:"liveUntilLedgerSeq,omitempty"`
}

type GetLedgerEntriesResult struct {
	Entries      []LedgerEntryResult `json:"entries"`
	LatestLedger int64               `json:"latestLedger"`
}

// SorobanRPC bundles the five operations the transaction-assembly state
// machine needs into one interface, so the rest of the runtime depends on a
// narrow domain contract rather than the generic Client.CallRPC signature.
type SorobanRPC interface {
	GetAccount(ctx context.Context, address string) (*GetAccountResult, error)
	SimulateTransaction(ctx context.Context, txEnvelopeXDR string) (*SimulateTransactionResult, error)
	SendTransaction(ctx context.Context, txEnvelopeXDR string) (*SendTransactionResult, error)
	GetTransaction(ctx context.Context, hash string) (*GetTransactionResult, error)
	GetLedgerEntries(ctx context.Context, keysXDR []string) (*GetLedgerEntriesResult, error)
}

type sorobanRPC struct {
	c Client
}

func NewSorobanRPC(c Client) SorobanRPC {
	return &sorobanRPC{c: c}
}

func (s *sorobanRPC) GetAccount(ctx context.Context, address string) (*GetAccountResult, error) {
	res := new(GetAccountResult)
	if err := s.c.CallRPC(ctx, res, "getAccount", &GetAccountParams{Address: address}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *sorobanRPC) SimulateTransaction(ctx context.Context, txEnvelopeXDR string) (*SimulateTransactionResult, error) {
	res := new(SimulateTransactionResult)
	if err := s.c.CallRPC(ctx, res, "simulateTransaction", &SimulateTransactionParams{Transaction: txEnvelopeXDR}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *sorobanRPC) SendTransaction(ctx context.Context, txEnvelopeXDR string) (*SendTransactionResult, error) {
	res := new(SendTransactionResult)
	if err := s.c.CallRPC(ctx, res, "sendTransaction", &SendTransactionParams{Transaction: txEnvelopeXDR}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *sorobanRPC) GetTransaction(ctx context.Context, hash string) (*GetTransactionResult, error) {
	res := new(GetTransactionResult)
	if err := s.c.CallRPC(ctx, res, "getTransaction", &GetTransactionParams{Hash: hash}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *sorobanRPC) GetLedgerEntries(ctx context.Context, keysXDR []string) (*GetLedgerEntriesResult, error) {
	res := new(GetLedgerEntriesResult)
	if err := s.c.CallRPC(ctx, res, "getLedgerEntries", &GetLedgerEntriesParams{Keys: keysXDR}); err != nil {
		return nil, err
	}
	return res, nil
}
