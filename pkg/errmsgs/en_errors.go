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

package errmsgs

import (
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

var registered = false
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	if !registered {
		i18n.RegisterPrefix("SC01", "Soroban Client")
		registered = true
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (
	// Generic SC0100XX
	MsgContextCanceled    = ffe("SC010000", "Context canceled")
	MsgInternalError      = ffe("SC010001", "Internal error: %s")
	MsgInvalidArgument    = ffe("SC010002", "Invalid argument: %s")
	MsgInvalidContractID  = ffe("SC010004", "Invalid contract id '%s': %s")

	// RPC adapter SC0101XX (C1)
	MsgRPCClientInvalidHTTPURL    = ffe("SC010100", "Invalid JSON-RPC URL '%s' - must be http or https")
	MsgRPCClientAllowHTTPRequired = ffe("SC010101", "Non-TLS endpoint '%s' requires allowHttp to be set")
	MsgRPCClientRequestFailed     = ffe("SC010102", "JSON-RPC request failed: %s")
	MsgRPCClientResultParseFailed = ffe("SC010103", "Failed to parse JSON-RPC result into %T: %s")
	MsgRPCClientInvalidParam      = ffe("SC010104", "Invalid parameter '%s' to method %s: %s")
	MsgRPCClientNoConnection      = ffe("SC010105", "Client is not connected to an RPC endpoint - rpcUrl was not set")

	// Spec introspection SC0102XX (C2)
	MsgSpecUnknownFunction       = ffe("SC010200", "Unknown contract function '%s'")
	MsgSpecMissingArgument       = ffe("SC010201", "Missing required argument '%s' for function '%s'")
	MsgSpecArgMarshalFailed      = ffe("SC010202", "Failed to marshal argument '%s' of function '%s': %s")
	MsgSpecResultUnmarshalFailed = ffe("SC010203", "Failed to unmarshal return value of function '%s': %s")
	MsgSpecInvalidEntry          = ffe("SC010204", "Invalid spec entry at offset %d: %s")
	MsgSpecResidueAfterParse     = ffe("SC010205", "%d unexpected trailing bytes after parsing contractspecv0 section")
	MsgSpecValueTypeMismatch     = ffe("SC010206", "Expected %s for type '%s', got %T")
	MsgSpecWireTypeMismatch      = ffe("SC010207", "Wire value is not a %s")
	MsgSpecUnsupportedType       = ffe("SC010208", "Unsupported type '%s' in default value codec")
	MsgSpecInvalidAddress        = ffe("SC010209", "Invalid address '%s': %s")
	MsgSpecEmptyAddress          = ffe("SC010210", "Address must not be empty")
	MsgSpecUnsupportedAddressType = ffe("SC010211", "Unsupported ScAddress type %v")
	MsgSpecIntegerTypeMismatch   = ffe("SC010212", "Expected an integer value, got %T")

	// AssembledTransaction SC0103XX (C3)
	MsgTxNotYetSimulated        = ffe("SC010300", "Transaction has not yet been simulated")
	MsgTxExpiredState           = ffe("SC010301", "Simulation requires a restore of archived state before this call can succeed: %s")
	MsgTxSimulationFailed       = ffe("SC010302", "Simulation failed: %s")
	MsgTxNoSigner               = ffe("SC010303", "No signTransaction callback was supplied")
	MsgTxNoSignatureNeeded      = ffe("SC010304", "Transaction does not need a signature - it is a read-only call, or was not addressed to the given account")
	MsgTxNeedsMoreSignatures    = ffe("SC010305", "Transaction needs authorization entry signatures from: %v")
	MsgTxFakeAccount            = ffe("SC010306", "Simulation was attempted using the placeholder read-call account against an RPC endpoint that rejected it: %s")
	MsgTxNotSingleInvocation    = ffe("SC010307", "Transaction does not contain exactly one host function invocation operation")
	MsgTxNotBuilt               = ffe("SC010308", "Transaction has not yet been built")
	MsgTxContractError          = ffe("SC010309", "Contract returned error code %d: %s")

	// Auth-entry protocol SC0104XX (C4)
	MsgAuthNoSigner                      = ffe("SC010400", "No signAuthEntry callback was supplied")
	MsgAuthNoSignatureNeeded              = ffe("SC010401", "Public key %s is not among the accounts that need to sign this transaction's authorization entries")
	MsgAuthNoUnsignedNonInvokerEntries    = ffe("SC010402", "There are no unsigned non-invoker authorization entries to sign")
	MsgAuthEntrySignFailed                = ffe("SC010403", "Failed to sign authorization entry %d: %s")
	MsgAuthExpirationLookupFailed         = ffe("SC010404", "Failed to resolve a default expiration ledger for authorization entries: %s")

	// SentTransaction SC0105XX (C5)
	MsgSendFailed             = ffe("SC010500", "Submission failed with status %s: %s")
	MsgSendResultOnly         = ffe("SC010501", "Transaction was submitted but its result was never polled for")
	MsgTransactionStillPending = ffe("SC010502", "Transaction %s was still pending after %d polling attempts over %s")
	MsgTransactionFailed      = ffe("SC010503", "Transaction failed with no decodable return value")

	// Client factory SC0106XX (C6)
	MsgContractDataNotFound   = ffe("SC010600", "No contract data ledger entry found for contract %s", 404)
	MsgContractCodeNotFound   = ffe("SC010601", "No wasm ledger entry found for contract %s", 404)
	MsgWasmSpecSectionMissing = ffe("SC010602", "wasm module does not contain a contractspecv0 custom section")
	MsgWasmParseFailed        = ffe("SC010603", "Failed to parse wasm module: %s")
	MsgMethodArityMismatch    = ffe("SC010604", "Method %s expects %d arguments, called with %d")
)
