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

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
	"github.com/tetratelabs/wazero"

	"github.com/sorobangoclient/sorobanclient/pkg/contractspec"
	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
)

// New binds spec to a live RPC endpoint without performing any wasm fetch or
// parse - used when the caller already has a ContractSpec in hand (e.g. a
// previous FromWasm/From call, or one built directly from entries).
func New(ctx context.Context, spec *contractspec.ContractSpec, options Options) (*Client, error) {
	rpc, err := newRPCClient(ctx, options)
	if err != nil {
		return nil, err
	}
	return &Client{spec: spec, rpc: rpc, options: options}, nil
}

// wasmSpecSectionName is the custom section the contract toolchain embeds the
// spec entries under.
const wasmSpecSectionName = "contractspecv0"

// FromWasm compiles the wasm module far enough to enumerate its custom
// sections (no instantiation - this is a read-only metadata pass), extracts
// contractspecv0, stream-parses its spec entries, and returns a bound client
// (spec §4.6 fromWasm).
func FromWasm(ctx context.Context, options Options, wasmBytes []byte) (*Client, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgWasmParseFailed, err)
	}
	defer compiled.Close(ctx)

	var specBytes []byte
	for _, section := range compiled.CustomSections() {
		if section.Name() == wasmSpecSectionName {
			specBytes = section.Data()
			break
		}
	}
	if specBytes == nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgWasmSpecSectionMissing)
	}

	funcs, errorCases, err := contractspec.ParseSpecEntries(ctx, specBytes)
	if err != nil {
		return nil, err
	}
	spec := contractspec.New(funcs, errorCases, contractspec.DefaultValueCodec{})

	client, err := New(ctx, spec, options)
	if err != nil {
		return nil, err
	}
	specCache.Set(options.ContractID, spec)
	return client, nil
}

// From fetches the contract-data ledger entry for options.ContractID,
// follows its executable reference to the wasm-hash ledger key, fetches the
// wasm ledger entry, extracts its code bytes, and delegates to FromWasm
// (spec §4.6 from). A cached spec for this contractId short-circuits the
// wasm fetch entirely.
func From(ctx context.Context, options Options) (*Client, error) {
	if cached, ok := specCache.Get(options.ContractID); ok {
		return New(ctx, cached, options)
	}

	rpc, err := newRPCClient(ctx, options)
	if err != nil {
		return nil, err
	}

	contractDataKey, err := contractDataLedgerKey(options.ContractID)
	if err != nil {
		return nil, err
	}
	dataEntries, err := rpc.GetLedgerEntries(ctx, []string{contractDataKey})
	if err != nil {
		return nil, err
	}
	if len(dataEntries.Entries) == 0 {
		return nil, i18n.NewError(ctx, errmsgs.MsgContractDataNotFound, options.ContractID)
	}

	wasmHash, err := executableWasmHash(dataEntries.Entries[0].XDR)
	if err != nil {
		return nil, err
	}

	codeKey, err := contractCodeLedgerKey(wasmHash)
	if err != nil {
		return nil, err
	}
	codeEntries, err := rpc.GetLedgerEntries(ctx, []string{codeKey})
	if err != nil {
		return nil, err
	}
	if len(codeEntries.Entries) == 0 {
		return nil, i18n.NewError(ctx, errmsgs.MsgContractCodeNotFound, options.ContractID)
	}

	wasmBytes, err := extractWasmCode(codeEntries.Entries[0].XDR)
	if err != nil {
		return nil, err
	}
	return FromWasm(ctx, options, wasmBytes)
}

func contractDataLedgerKey(contractID string) (string, error) {
	raw, err := strkey.Decode(strkey.VersionByteContract, contractID)
	if err != nil {
		return "", i18n.NewError(context.Background(), errmsgs.MsgInvalidContractID, contractID, err)
	}
	var hash xdr.Hash
	copy(hash[:], raw)
	cid := xdr.ContractId(hash)
	instanceKey := xdr.ScVal{Type: xdr.ScValTypeScvLedgerKeyContractInstance}
	key := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &cid},
			Key:        instanceKey,
			Durability: xdr.ContractDataDurabilityPersistent,
		},
	}
	return xdr.MarshalBase64(key)
}

func executableWasmHash(contractDataEntryXDR string) (xdr.Hash, error) {
	var entry xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(contractDataEntryXDR, &entry); err != nil {
		return xdr.Hash{}, err
	}
	if entry.ContractData == nil {
		return xdr.Hash{}, i18n.NewError(context.Background(), errmsgs.MsgContractDataNotFound, "")
	}
	instance := entry.ContractData.Val.Instance
	if instance == nil || instance.Executable.WasmHash == nil {
		return xdr.Hash{}, i18n.NewError(context.Background(), errmsgs.MsgContractDataNotFound, "")
	}
	return *instance.Executable.WasmHash, nil
}

func contractCodeLedgerKey(wasmHash xdr.Hash) (string, error) {
	key := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractCode,
		ContractCode: &xdr.LedgerKeyContractCode{
			Hash: wasmHash,
		},
	}
	return xdr.MarshalBase64(key)
}

func extractWasmCode(contractCodeEntryXDR string) ([]byte, error) {
	var entry xdr.LedgerEntryData
	if err := xdr.SafeUnmarshalBase64(contractCodeEntryXDR, &entry); err != nil {
		return nil, err
	}
	if entry.ContractCode == nil {
		return nil, i18n.NewError(context.Background(), errmsgs.MsgContractCodeNotFound, "")
	}
	return entry.ContractCode.Code, nil
}
