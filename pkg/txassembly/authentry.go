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

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
)

// invokeOp returns the sole InvokeHostFunction operation of the built
// transaction, erroring if the transaction is missing or its shape is not
// exactly one such operation (spec §4.3).
func (a *AssembledTransaction) invokeOp(ctx context.Context) (*txnbuild.InvokeHostFunction, error) {
	if a.built == nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgTxNotBuilt)
	}
	ops := a.built.Operations()
	if len(ops) != 1 {
		return nil, i18n.NewError(ctx, errmsgs.MsgTxNotSingleInvocation)
	}
	invoke, ok := ops[0].(*txnbuild.InvokeHostFunction)
	if !ok {
		return nil, i18n.NewError(ctx, errmsgs.MsgTxNotSingleInvocation)
	}
	return invoke, nil
}

// NeedsNonInvokerSigningBy inspects the single invocation operation's auth
// list and returns the de-duplicated, first-seen-order list of account
// public keys that still owe an address-credentialed signature.
//
// Callers must test len(result) == 0, never the truthiness of the returned
// slice - a non-nil empty slice is still truthy, which was the bug in the
// reference implementation this corrects.
func (a *AssembledTransaction) NeedsNonInvokerSigningBy(ctx context.Context, includeAlreadySigned bool) ([]string, error) {
	invoke, err := a.invokeOp(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var result []string
	for _, entry := range invoke.Auth {
		if entry.Credentials.Type != xdr.SorobanCredentialsTypeSorobanCredentialsAddress {
			continue
		}
		addrCreds := entry.Credentials.Address
		if addrCreds == nil {
			continue
		}
		if !includeAlreadySigned && !isUnsignedAddressCredentials(addrCreds) {
			continue
		}
		pk, err := scAddressAccountID(addrCreds.Address)
		if err != nil {
			return nil, err
		}
		if !seen[pk] {
			seen[pk] = true
			result = append(result, pk)
		}
	}
	return result, nil
}

func isUnsignedAddressCredentials(c *xdr.SorobanAddressCredentials) bool {
	return c.Signature.Type == xdr.ScValTypeScvVoid
}

func scAddressAccountID(addr xdr.ScAddress) (string, error) {
	if addr.Type != xdr.ScAddressTypeScAddressTypeAccount || addr.AccountId == nil {
		return "", i18n.NewError(context.Background(), errmsgs.MsgInternalError, "auth entry address credential is not an account address")
	}
	return addr.AccountId.Address(), nil
}

// SignAuthEntriesOptions overrides the call-scoped expiration ledger,
// signing callback and account identity used by SignAuthEntries.
type SignAuthEntriesOptions struct {
	Expiration    *uint32
	SignAuthEntry SignAuthEntryFunc
	PublicKey     string
}

// SignAuthEntries signs every unsigned, non-invoker, address-credentialed
// auth entry addressed to publicKey, splicing the signed credentials back
// into the transaction's operation in place. It deliberately does not
// re-simulate afterwards: the prior simulation already sized fees and
// resources assuming these entries would carry signatures of the expected
// shape.
func (a *AssembledTransaction) SignAuthEntries(ctx context.Context, opts SignAuthEntriesOptions) error {
	signFn := opts.SignAuthEntry
	if signFn == nil {
		signFn = a.options.Client.SignAuthEntry
	}
	if signFn == nil {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgAuthNoSigner))
	}
	publicKey := opts.PublicKey
	if publicKey == "" {
		publicKey = a.options.Client.PublicKey
	}

	required, err := a.NeedsNonInvokerSigningBy(ctx, false)
	if err != nil {
		return a.deferError(err)
	}
	isRequired := false
	for _, pk := range required {
		if pk == publicKey {
			isRequired = true
			break
		}
	}
	if !isRequired {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgAuthNoSignatureNeeded, publicKey))
	}

	expiration := opts.Expiration
	if expiration == nil {
		exp, err := a.defaultExpirationLedger(ctx)
		if err != nil {
			return a.deferError(err)
		}
		expiration = &exp
	}

	invoke, err := a.invokeOp(ctx)
	if err != nil {
		return a.deferError(err)
	}

	signedAny := false
	for i := range invoke.Auth {
		entry := &invoke.Auth[i]
		if entry.Credentials.Type != xdr.SorobanCredentialsTypeSorobanCredentialsAddress {
			continue
		}
		addrCreds := entry.Credentials.Address
		if addrCreds == nil {
			continue
		}
		entryPK, err := scAddressAccountID(addrCreds.Address)
		if err != nil {
			return a.deferError(err)
		}
		if entryPK != publicKey {
			continue
		}
		if !isUnsignedAddressCredentials(addrCreds) {
			continue
		}
		if err := a.signOneAuthEntry(ctx, i, entry, addrCreds, *expiration, signFn); err != nil {
			return a.deferError(err)
		}
		signedAny = true
	}
	if !signedAny {
		return a.deferError(i18n.NewError(ctx, errmsgs.MsgAuthNoUnsignedNonInvokerEntries))
	}

	// invoke is a.built's builder op, not its cached envelope - txnbuild caches
	// the envelope at construction, so Base64()/ToXDR() would otherwise keep
	// serializing the pre-splice, unsigned auth entries. Rebuild a.built from
	// its own operations so the spliced signature reaches the envelope before
	// ToJSON/Send sees it.
	if err := a.refreshEnvelopeFromBuilt(); err != nil {
		return a.deferError(err)
	}
	return nil
}

// signOneAuthEntry serialises the entry's authorization preimage to XDR
// (unhashed), delivers its base64 form to signFn, and splices the resulting
// signature back as a ScVec of {public_key, signature} maps stamped with
// expirationLedger - the platform's authorizeEntry wire shape. index is the
// entry's position in the auth list, reported in signing errors.
func (a *AssembledTransaction) signOneAuthEntry(
	ctx context.Context,
	index int,
	entry *xdr.SorobanAuthorizationEntry,
	addrCreds *xdr.SorobanAddressCredentials,
	expirationLedger uint32,
	signFn SignAuthEntryFunc,
) error {
	addrCreds.SignatureExpirationLedger = xdr.Uint32(expirationLedger)

	networkID := xdr.Hash(network.ID(a.NetworkPassphraseOrDefault()))
	preimage := xdr.HashIdPreimage{
		Type: xdr.EnvelopeTypeEnvelopeTypeSorobanAuthorization,
		SorobanAuthorization: &xdr.HashIdPreimageSorobanAuthorization{
			NetworkId:                 networkID,
			Nonce:                     addrCreds.Nonce,
			SignatureExpirationLedger: addrCreds.SignatureExpirationLedger,
			Invocation:                entry.RootInvocation,
		},
	}
	preimageXDR, err := xdr.MarshalBase64(preimage)
	if err != nil {
		return i18n.NewError(ctx, errmsgs.MsgAuthEntrySignFailed, index, err)
	}

	sig, err := signFn(ctx, preimageXDR)
	if err != nil {
		return i18n.NewError(ctx, errmsgs.MsgAuthEntrySignFailed, index, err)
	}

	pk, err := scAddressAccountID(addrCreds.Address)
	if err != nil {
		return err
	}
	sigScVal, err := buildSignatureScVal(pk, sig)
	if err != nil {
		return err
	}
	addrCreds.Signature = sigScVal
	return nil
}

// buildSignatureScVal assembles the {public_key: bytes, signature: bytes}
// map the platform's authorizeEntry procedure expects as the signature
// ScVal, wrapped in a single-element vector.
func buildSignatureScVal(publicKey string, signature []byte) (xdr.ScVal, error) {
	accountID, err := xdr.AddressToAccountId(publicKey)
	if err != nil {
		return xdr.ScVal{}, err
	}
	rawPK := accountID.Ed25519()
	if rawPK == nil {
		return xdr.ScVal{}, i18n.NewError(context.Background(), errmsgs.MsgInternalError, "public key is not an ed25519 account")
	}

	pkVal, err := xdr.NewScVal(xdr.ScValTypeScvBytes, xdr.ScBytes((*rawPK)[:]))
	if err != nil {
		return xdr.ScVal{}, err
	}
	sigVal, err := xdr.NewScVal(xdr.ScValTypeScvBytes, xdr.ScBytes(signature))
	if err != nil {
		return xdr.ScVal{}, err
	}
	pkKey, err := xdr.NewScVal(xdr.ScValTypeScvSymbol, xdr.ScSymbol("public_key"))
	if err != nil {
		return xdr.ScVal{}, err
	}
	sigKey, err := xdr.NewScVal(xdr.ScValTypeScvSymbol, xdr.ScSymbol("signature"))
	if err != nil {
		return xdr.ScVal{}, err
	}
	m := xdr.ScMap{
		{Key: pkKey, Val: pkVal},
		{Key: sigKey, Val: sigVal},
	}
	mapVal, err := xdr.NewScVal(xdr.ScValTypeScvMap, &m)
	if err != nil {
		return xdr.ScVal{}, err
	}
	vec := xdr.ScVec{mapVal}
	return xdr.NewScVal(xdr.ScValTypeScvVec, &vec)
}

// defaultExpirationLedger resolves the footprint's live-until-ledger via the
// RPC getLedgerEntries lookup, giving signatures a window anchored to the
// contract's persistent-storage lifetime rather than an arbitrary constant.
func (a *AssembledTransaction) defaultExpirationLedger(ctx context.Context) (uint32, error) {
	key, err := contractInstanceLedgerKey(ctx, a.options.Client.ContractID)
	if err != nil {
		return 0, err
	}
	entries, err := a.options.Client.RPC.GetLedgerEntries(ctx, []string{key})
	if err != nil {
		return 0, i18n.NewError(ctx, errmsgs.MsgAuthExpirationLookupFailed, err)
	}
	if len(entries.Entries) == 0 || entries.Entries[0].LiveUntilLedgerSeq == nil {
		return 0, i18n.NewError(ctx, errmsgs.MsgAuthExpirationLookupFailed, "no live-until-ledger in response")
	}
	return *entries.Entries[0].LiveUntilLedgerSeq, nil
}

// contractInstanceLedgerKey builds the base64 XDR LedgerKey for a contract's
// instance entry - getLedgerEntries takes keysXDR, not bare contract
// addresses, so the strkey ContractID must be wrapped the same way
// sorobanclient's own contractDataLedgerKey does for the From() fetch path.
func contractInstanceLedgerKey(ctx context.Context, contractID string) (string, error) {
	contractAddr, err := contractIDToScAddress(contractID)
	if err != nil {
		return "", err
	}
	key := xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   contractAddr,
			Key:        xdr.ScVal{Type: xdr.ScValTypeScvLedgerKeyContractInstance},
			Durability: xdr.ContractDataDurabilityPersistent,
		},
	}
	xdrStr, err := xdr.MarshalBase64(key)
	if err != nil {
		return "", i18n.NewError(ctx, errmsgs.MsgInternalError, err)
	}
	return xdrStr, nil
}
