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

package txassembly

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
	"github.com/sorobangoclient/sorobanclient/pkg/log"
)

// contractErrorPattern extracts the numbered error code the contract raised,
// e.g. `Error(Contract, #3)`. A match whose code is present in errorTypes is
// surfaced as a tagged Err result rather than an exception (spec §4.2, §7).
var contractErrorPattern = regexp.MustCompile(`Error\(Contract, #(\d+)\)`)

// SimulationResult is the serialisable extract of a live simulation response
// that survives JSON round-tripping (spec "simulationResult").
type SimulationResult struct {
	Auth   []string `json:"auth"`
	Retval string   `json:"retval"`
}

// Err is the distinguished, non-throwing tagged value returned from .Result()
// when the contract raised a numbered error present in the error-type table.
type Err struct {
	Code    uint32
	Message string
}

func (e *Err) Error() string {
	return e.Message
}

// AssembledTransaction is the mutable build -> simulate -> sign -> send state
// machine. None of its methods are goroutine-safe; callers must serialise
// access to one instance themselves (spec §5).
type AssembledTransaction struct {
	ctx     context.Context
	options *Options

	raw   *txnbuild.TransactionParams
	built *txnbuild.Transaction

	simulation                *simulationSnapshot
	simulationResultCache     *SimulationResult
	simulationTransactionData string

	signed *txnbuild.Transaction

	// usingNullAccount records whether Build resolved to the placeholder
	// read-call account rather than a configured invoker, so a simulation
	// rejection can be reported as FakeAccount instead of a bare RPC error.
	usingNullAccount bool

	firstErr error
}

type simulationSnapshot struct {
	transactionData string
	minResourceFee  string
	results         []simResultEntry
	restoreRequired bool
	restoreInfo     string
	failed          bool
	failureMessage  string
}

type simResultEntry struct {
	auth  []string
	retXDR string
}

// deferError records the first error encountered on this instance, logging
// every subsequent one but never overwriting the first. Mirrors the
// chainable builder pattern used throughout this codebase for fluent
// construction that still surfaces an Error() at the end of a call chain.
func (a *AssembledTransaction) deferError(err error) error {
	if err == nil {
		return nil
	}
	if a.firstErr == nil {
		a.firstErr = err
	}
	log.L(a.ctx).Errorf("%s", err)
	return err
}

func (a *AssembledTransaction) Error() error {
	return a.firstErr
}

// Build is the sole constructor. It resolves the source account, builds a
// transaction containing a single host-function-invocation operation, and -
// unless options.Method.Simulate is false - runs an initial simulation.
func Build(ctx context.Context, opts *Options) (*AssembledTransaction, error) {
	a := &AssembledTransaction{ctx: ctx, options: opts}

	sourceAccount, err := a.resolveSourceAccount(ctx)
	if err != nil {
		return nil, a.deferError(err)
	}

	invokeOp, err := a.buildInvokeHostFunctionOp()
	if err != nil {
		return nil, a.deferError(err)
	}

	a.raw = &txnbuild.TransactionParams{
		SourceAccount:        sourceAccount,
		IncrementSequenceNum: true,
		BaseFee:              int64(a.fee()),
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(a.timeoutInSeconds())),
		},
		Operations: []txnbuild.Operation{invokeOp},
	}

	if opts.Method.Simulate {
		if err := a.Simulate(ctx); err != nil {
			return a, a.deferError(err)
		}
	}
	return a, nil
}

func (a *AssembledTransaction) fee() uint32 {
	if a.options.Method.Fee > 0 {
		return a.options.Method.Fee
	}
	return DefaultMethodOptions().Fee
}

func (a *AssembledTransaction) timeoutInSeconds() uint32 {
	if a.options.Method.TimeoutInSeconds > 0 {
		return a.options.Method.TimeoutInSeconds
	}
	return DefaultMethodOptions().TimeoutInSeconds
}

func (a *AssembledTransaction) resolveSourceAccount(ctx context.Context) (txnbuild.Account, error) {
	if a.options.Client.PublicKey != "" {
		acc, err := a.options.Client.RPC.GetAccount(ctx, a.options.Client.PublicKey)
		if err != nil {
			return nil, err
		}
		seq, err := strconv.ParseInt(acc.Sequence, 10, 64)
		if err != nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgInternalError, err)
		}
		return &txnbuild.SimpleAccount{AccountID: a.options.Client.PublicKey, Sequence: seq}, nil
	}
	// No invoking account configured: the null account lets a read-only call
	// be simulated without a real funded account (spec §4.2 step 1).
	a.usingNullAccount = true
	return &txnbuild.SimpleAccount{AccountID: NullAccountID, Sequence: 0}, nil
}

func (a *AssembledTransaction) buildInvokeHostFunctionOp() (*txnbuild.InvokeHostFunction, error) {
	contractAddr, err := contractIDToScAddress(a.options.Client.ContractID)
	if err != nil {
		return nil, err
	}
	return &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: contractAddr,
				FunctionName:    xdr.ScSymbol(a.options.MethodName),
				Args:            xdr.ScVec(a.options.Args),
			},
		},
		SourceAccount: a.invokerAddress(),
	}, nil
}

func (a *AssembledTransaction) invokerAddress() string {
	if a.options.Client.PublicKey != "" {
		return a.options.Client.PublicKey
	}
	return NullAccountID
}

func contractIDToScAddress(contractID string) (xdr.ScAddress, error) {
	raw, err := strkey.Decode(strkey.VersionByteContract, contractID)
	if err != nil {
		return xdr.ScAddress{}, i18n.NewError(context.Background(), errmsgs.MsgInvalidContractID, contractID, err)
	}
	var hash xdr.Hash
	copy(hash[:], raw)
	cid := xdr.ContractId(hash)
	return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &cid}, nil
}

// Simulate builds this.built from this.raw, calls the RPC simulateTransaction
// method, and - on success - re-builds this.built by assembling the
// simulated fee bump, resource footprint and auth entries into the
// transaction (spec §4.2 Simulate).
func (a *AssembledTransaction) Simulate(ctx context.Context) error {
	built, err := txnbuild.NewTransaction(*a.raw)
	if err != nil {
		return a.deferError(err)
	}
	a.built = built

	envelopeXDR, err := built.Base64()
	if err != nil {
		return a.deferError(err)
	}

	simRes, err := a.options.Client.RPC.SimulateTransaction(ctx, envelopeXDR)
	if err != nil {
		if a.usingNullAccount {
			return a.deferError(i18n.NewError(ctx, errmsgs.MsgTxFakeAccount, err))
		}
		return a.deferError(err)
	}

	snap := &simulationSnapshot{
		transactionData: simRes.TransactionData,
		minResourceFee:  simRes.MinResourceFee,
	}
	if simRes.RestorePreamble != nil {
		snap.restoreRequired = true
		snap.restoreInfo = simRes.RestorePreamble.TransactionData
	} else if simRes.Error != "" {
		snap.failed = true
		snap.failureMessage = simRes.Error
	} else {
		for _, r := range simRes.Results {
			snap.results = append(snap.results, simResultEntry{auth: r.Auth, retXDR: r.XDR})
		}
	}
	a.simulation = snap

	if !snap.failed && !snap.restoreRequired {
		if err := a.assembleSimulatedTransaction(snap); err != nil {
			return a.deferError(err)
		}
	}
	// ExpiredState and simulation-internal failures are not raised here - they
	// surface lazily the first time SimulationData is read (spec §4.2).
	return nil
}

// assembleSimulatedTransaction merges the simulated resource fee, footprint
// and auth entries back into a.raw and rebuilds a.built - the platform's
// assembler step, delegated here to the external transaction-building
// library's Transaction/TransactionParams types.
func (a *AssembledTransaction) assembleSimulatedTransaction(snap *simulationSnapshot) error {
	var txData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(snap.transactionData, &txData); err != nil {
		return err
	}

	if len(snap.results) > 0 && len(a.raw.Operations) == 1 {
		if invoke, ok := a.raw.Operations[0].(*txnbuild.InvokeHostFunction); ok {
			var auth []xdr.SorobanAuthorizationEntry
			for _, encoded := range snap.results[0].auth {
				var entry xdr.SorobanAuthorizationEntry
				if err := xdr.SafeUnmarshalBase64(encoded, &entry); err != nil {
					return err
				}
				auth = append(auth, entry)
			}
			invoke.Auth = auth
		}
	}

	resourceFee, _ := strconv.ParseInt(snap.minResourceFee, 10, 64)
	a.raw.BaseFee = a.raw.BaseFee + resourceFee
	a.raw.SorobanData = &txData

	// The source account's sequence number was already advanced by the
	// initial txnbuild.NewTransaction call in Simulate (IncrementSequenceNum
	// mutates the shared Account in place). Rebuilding here must not advance
	// it a second time, or the signed envelope ends up two ahead of the
	// on-chain sequence and the network rejects it as a bad-sequence error.
	a.raw.IncrementSequenceNum = false

	built, err := txnbuild.NewTransaction(*a.raw)
	if err != nil {
		return err
	}
	a.built = built
	return nil
}

// SimulationData returns {result, transactionData} drawn from either the
// serialisable cache (post-deserialisation path) or the live simulation
// (in-process path), writing through to the cache on first live access.
func (a *AssembledTransaction) SimulationData(ctx context.Context) (*SimulationResult, string, error) {
	if a.simulationResultCache != nil {
		return a.simulationResultCache, a.simulationTransactionData, nil
	}
	if a.simulation == nil {
		return nil, "", i18n.NewError(ctx, errmsgs.MsgTxNotYetSimulated)
	}
	if a.simulation.restoreRequired {
		return nil, "", i18n.NewError(ctx, errmsgs.MsgTxExpiredState, a.simulation.restoreInfo)
	}
	if a.simulation.failed {
		return nil, "", i18n.NewError(ctx, errmsgs.MsgTxSimulationFailed, a.simulation.failureMessage)
	}
	result := &SimulationResult{}
	if len(a.simulation.results) > 0 {
		result.Auth = a.simulation.results[0].auth
		result.Retval = a.simulation.results[0].retXDR
	}
	a.simulationResultCache = result
	a.simulationTransactionData = a.simulation.transactionData
	return result, a.simulationTransactionData, nil
}

// Result parses simulationData.result.retval via options.ParseResultXdr. If
// parsing fails with a contract-error pattern whose code is registered in
// options.ErrorTypes, the error descriptor is returned as a non-throwing
// *Err value instead of propagating the parse error (spec §4.2, §7).
func (a *AssembledTransaction) Result(ctx context.Context) (interface{}, error) {
	simResult, _, err := a.SimulationData(ctx)
	if err != nil {
		return nil, err
	}
	if simResult.Retval == "" {
		return nil, nil
	}
	var wire xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(simResult.Retval, &wire); err != nil {
		return a.mapContractError(err)
	}
	native, err := a.options.ParseResultXdr(wire)
	if err != nil {
		return a.mapContractError(err)
	}
	return native, nil
}

func (a *AssembledTransaction) mapContractError(err error) (interface{}, error) {
	m := contractErrorPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return nil, err
	}
	code, convErr := strconv.ParseUint(m[1], 10, 32)
	if convErr != nil {
		return nil, err
	}
	if msg, ok := a.options.ErrorTypes[uint32(code)]; ok {
		log.L(a.ctx).Warnf("%s", i18n.NewError(a.ctx, errmsgs.MsgTxContractError, code, msg))
		return &Err{Code: uint32(code), Message: msg}, nil
	}
	return nil, err
}

// IsReadCall is true iff the simulation reports zero auth entries and the
// transaction's resource footprint has zero read-write entries.
func (a *AssembledTransaction) IsReadCall(ctx context.Context) (bool, error) {
	simResult, txDataB64, err := a.SimulationData(ctx)
	if err != nil {
		return false, err
	}
	if len(simResult.Auth) > 0 {
		return false, nil
	}
	if txDataB64 == "" {
		return true, nil
	}
	var txData xdr.SorobanTransactionData
	if err := xdr.SafeUnmarshalBase64(txDataB64, &txData); err != nil {
		return false, err
	}
	return len(txData.Resources.Footprint.ReadWrite) == 0, nil
}

// NetworkPassphraseOrDefault returns the configured passphrase, or the public
// network's well-known passphrase if none was set.
func (a *AssembledTransaction) NetworkPassphraseOrDefault() string {
	if a.options.Client.NetworkPassphrase != "" {
		return a.options.Client.NetworkPassphrase
	}
	return network.PublicNetworkPassphrase
}

// SignOptions overrides the call-scoped force flag and signer callback.
type SignOptions struct {
	Force           bool
	SignTransaction SignTransactionFunc
}

// Sign runs the six-step signing procedure: require a built transaction,
// reject signing of an unforced read call, require a signer, require that no
// further co-signer signatures are outstanding, refresh the envelope's
// timebounds to the signing instant, then hand off to the signer callback.
func (a *AssembledTransaction) Sign(ctx context.Context, opts SignOptions) error {
	if a.built == nil {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgTxNotBuilt))
	}
	if !opts.Force {
		isRead, err := a.IsReadCall(ctx)
		if err != nil {
			return a.deferError(err)
		}
		if isRead {
			return a.deferError(i18n.NewError(ctx, errmsgs.MsgTxNoSignatureNeeded))
		}
	}
	signFn := opts.SignTransaction
	if signFn == nil {
		signFn = a.options.Client.SignTransaction
	}
	if signFn == nil {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgTxNoSigner))
	}
	needed, err := a.NeedsNonInvokerSigningBy(ctx, false)
	if err != nil {
		return a.deferError(err)
	}
	if len(needed) != 0 {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgTxNeedsMoreSignatures, needed))
	}

	if err := a.refreshEnvelope(); err != nil {
		return a.deferError(err)
	}

	envelopeXDR, err := a.built.Base64()
	if err != nil {
		return a.deferError(err)
	}
	signedXDR, err := signFn(ctx, envelopeXDR, a.NetworkPassphraseOrDefault())
	if err != nil {
		return a.deferError(err)
	}
	genericTx, err := txnbuild.TransactionFromXDR(signedXDR)
	if err != nil {
		return a.deferError(err)
	}
	tx, isSimple := genericTx.Transaction()
	if !isSimple {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgInternalError, "signed envelope is not a simple transaction"))
	}
	a.signed = tx
	return nil
}

// refreshEnvelope clones a.raw preserving the fee and post-simulation
// soroban resource data, clears any prior timebounds, and re-applies a fresh
// timeout measured from now - so the signed envelope's validity window
// reflects the signing instant, not the build instant (spec §4.2 step 5, P8).
//
// a.raw is nil after FromJSON: the invoker in a multi-party offline-signing
// flow deserialises a transaction it never built itself, only one that
// co-signers already signed auth entries into. Sign must still work from
// that state, so refreshEnvelope falls back to cloning a.built directly.
func (a *AssembledTransaction) refreshEnvelope() error {
	if a.raw == nil {
		return a.refreshEnvelopeFromBuilt()
	}
	params := *a.raw
	params.Preconditions = txnbuild.Preconditions{
		TimeBounds: txnbuild.NewTimeout(int64(a.timeoutInSeconds())),
	}
	params.IncrementSequenceNum = false
	rebuilt, err := txnbuild.NewTransaction(params)
	if err != nil {
		return err
	}
	a.built = rebuilt
	return nil
}

// refreshEnvelopeFromBuilt rebuilds the transaction from a.built's own
// source account, fee, operations (including any already-signed auth
// entries) and soroban resource data, with only the timebounds replaced.
func (a *AssembledTransaction) refreshEnvelopeFromBuilt() error {
	sourceAccount := a.built.SourceAccount()
	params := txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: false,
		BaseFee:              a.built.BaseFee(),
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(a.timeoutInSeconds())),
		},
		Operations: a.built.Operations(),
		SorobanData: extractSorobanData(a.built),
	}
	rebuilt, err := txnbuild.NewTransaction(params)
	if err != nil {
		return err
	}
	a.built = rebuilt
	return nil
}

// extractSorobanData pulls the soroban resource extension back out of an
// already-built transaction's envelope, for the refresh-from-built path
// where there is no surviving TransactionParams to read it from directly.
func extractSorobanData(tx *txnbuild.Transaction) *xdr.SorobanTransactionData {
	envelope := tx.ToXDR()
	if envelope.V1 == nil {
		return nil
	}
	return envelope.V1.Tx.Ext.SorobanData
}

// Send requires a signed envelope and hands it to a freshly initialised
// SentTransaction, which submits it immediately.
func (a *AssembledTransaction) Send(ctx context.Context, sender SentTransactionSender) (interface{}, error) {
	if a.signed == nil {
		return nil, a.deferError(i18n.NewError(ctx, errmsgs.MsgTxNotBuilt))
	}
	signedXDR, err := a.signed.Base64()
	if err != nil {
		return nil, a.deferError(err)
	}
	return sender.Init(ctx, a.options, signedXDR)
}

// SentTransactionSender is the narrow view of the senttx package that
// AssembledTransaction.Send needs, kept here to avoid an import cycle
// between txassembly and senttx (senttx already imports txassembly's Options).
type SentTransactionSender interface {
	Init(ctx context.Context, options *Options, signedEnvelopeXDR string) (interface{}, error)
}

// SignAndSend signs (if not already signed) then sends.
func (a *AssembledTransaction) SignAndSend(ctx context.Context, opts SignOptions, sender SentTransactionSender) (interface{}, error) {
	if a.signed == nil {
		if err := a.Sign(ctx, opts); err != nil {
			return nil, err
		}
	}
	return a.Send(ctx, sender)
}

// wireForm is the JSON interchange shape for multi-party / offline flows
// (spec §4.2 toJSON/fromJSON, §6).
type wireForm struct {
	Method                     string             `json:"method"`
	Tx                         string             `json:"tx"`
	SimulationResult           *SimulationResult  `json:"simulationResult,omitempty"`
	SimulationTransactionData string             `json:"simulationTransactionData,omitempty"`
}

// ToJSON encodes {method, tx, simulationResult, simulationTransactionData}.
func (a *AssembledTransaction) ToJSON(ctx context.Context) ([]byte, error) {
	if a.built == nil {
		return nil, a.deferError(i18n.NewError(ctx, errmsgs.MsgTxNotBuilt))
	}
	envelopeXDR, err := a.built.Base64()
	if err != nil {
		return nil, a.deferError(err)
	}
	w := wireForm{Method: a.options.MethodName, Tx: envelopeXDR}
	if a.simulationResultCache != nil {
		w.SimulationResult = a.simulationResultCache
		w.SimulationTransactionData = a.simulationTransactionData
	} else if a.simulation != nil && !a.simulation.failed && !a.simulation.restoreRequired {
		simResult, txData, err := a.SimulationData(ctx)
		if err != nil {
			return nil, a.deferError(err)
		}
		w.SimulationResult = simResult
		w.SimulationTransactionData = txData
	}
	return json.Marshal(w)
}

// FromJSON instantiates an unsimulated AssembledTransaction and rehydrates
// built and the cache fields; the live simulation object itself is not
// restored, so subsequent reads of SimulationData go through the cache.
func FromJSON(ctx context.Context, options *Options, data []byte) (*AssembledTransaction, error) {
	var w wireForm
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgInternalError, err)
	}
	opts := *options
	opts.MethodName = w.Method

	a := &AssembledTransaction{ctx: ctx, options: &opts}
	genericTx, err := txnbuild.TransactionFromXDR(w.Tx)
	if err != nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgInternalError, err)
	}
	tx, isSimple := genericTx.Transaction()
	if !isSimple {
		return nil, i18n.NewError(ctx, errmsgs.MsgInternalError, "decoded envelope is not a simple transaction")
	}
	a.built = tx

	if w.SimulationResult != nil {
		a.simulationResultCache = w.SimulationResult
		a.simulationTransactionData = w.SimulationTransactionData
	}
	return a, nil
}
