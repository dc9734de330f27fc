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

// Package txassembly implements the AssembledTransaction state machine
// (build -> simulate -> sign -> send) and the authorization-entry signing
// protocol layered on top of it.
package txassembly

import (
	"context"

	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/rpcclient"
)

// NullAccountID is the fixed, documented placeholder source account used to
// simulate read-only calls when no real invoking account is configured.
const NullAccountID = "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF"

// SignTransactionFunc signs a transaction envelope. networkPassphrase is
// mixed into the signature preimage by the underlying signer implementation;
// it is passed through unchanged here.
type SignTransactionFunc func(ctx context.Context, envelopeXDR string, networkPassphrase string) (signedEnvelopeXDR string, err error)

// SignAuthEntryFunc signs one authorization-entry preimage (already base64
// encoded) and returns the raw signature bytes.
type SignAuthEntryFunc func(ctx context.Context, preimageXDR string) (signature []byte, err error)

// ClientOptions configures one client instance; MethodOptions (per-call
// overrides) live alongside it in Options below.
type ClientOptions struct {
	RPC               rpcclient.SorobanRPC
	ContractID        string
	NetworkPassphrase string
	AllowHTTP         bool
	PublicKey         string
	SignTransaction   SignTransactionFunc
	SignAuthEntry     SignAuthEntryFunc
	ErrorTypes        map[uint32]string
}

// MethodOptions are per-invocation overrides. Simulate has no implicit
// default: its zero value false skips the initial simulation in Build, and
// only DefaultMethodOptions() sets it to true.
type MethodOptions struct {
	Fee              uint32
	TimeoutInSeconds uint32
	Simulate         bool
}

// DefaultMethodOptions mirrors the platform's documented defaults: the
// network's minimum fee, a 30 second validity/poll window, and simulate-by-default.
func DefaultMethodOptions() MethodOptions {
	return MethodOptions{
		Fee:              100,
		TimeoutInSeconds: 30,
		Simulate:         true,
	}
}

// ParseResultXdrFunc converts the parsed simulation/execution return value
// into a native result. It is bound by the client factory from
// spec.funcResToNative(name, _).
type ParseResultXdrFunc func(wireValue xdr.ScVal) (interface{}, error)

// Options is the frozen combination the client factory hands to Build: it
// never mutates after construction, matching the spec's "options" field.
type Options struct {
	Client         ClientOptions
	Method         MethodOptions
	MethodName     string
	Args           []xdr.ScVal
	ParseResultXdr ParseResultXdrFunc
	ErrorTypes     map[uint32]string
}
