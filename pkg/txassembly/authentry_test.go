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
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"
)

func addressCredEntry(t *testing.T, pk string, signed bool) xdr.SorobanAuthorizationEntry {
	accountID, err := xdr.AddressToAccountId(pk)
	require.NoError(t, err)
	sig := xdr.ScVal{Type: xdr.ScValTypeScvVoid}
	if signed {
		b := xdr.ScBool(true)
		sig, err = xdr.NewScVal(xdr.ScValTypeScvBool, b)
		require.NoError(t, err)
	}
	return xdr.SorobanAuthorizationEntry{
		Credentials: xdr.SorobanCredentials{
			Type: xdr.SorobanCredentialsTypeSorobanCredentialsAddress,
			Address: &xdr.SorobanAddressCredentials{
				Address:   xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &accountID},
				Nonce:     1,
				Signature: sig,
			},
		},
		RootInvocation: xdr.SorobanAuthorizedInvocation{
			Function: xdr.SorobanAuthorizedFunction{
				Type: xdr.SorobanAuthorizedFunctionTypeSorobanAuthorizedFunctionTypeContractFn,
			},
		},
	}
}

func transactionWithAuth(t *testing.T, entries []xdr.SorobanAuthorizationEntry) *txnbuild.Transaction {
	kp := keypair.MustRandom()
	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				FunctionName: "inc",
			},
		},
		Auth: entries,
	}
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: kp.Address(), Sequence: 1},
		IncrementSequenceNum: true,
		BaseFee:              100,
		Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(30)},
		Operations:           []txnbuild.Operation{op},
	})
	require.NoError(t, err)
	return tx
}

func TestNeedsNonInvokerSigningByDedupesAndFiltersSigned(t *testing.T) {
	a1 := keypair.MustRandom().Address()
	a2 := keypair.MustRandom().Address()

	entries := []xdr.SorobanAuthorizationEntry{
		addressCredEntry(t, a1, false),
		addressCredEntry(t, a2, false),
		addressCredEntry(t, a1, false), // duplicate of a1
	}
	at := &AssembledTransaction{
		ctx:     context.Background(),
		options: &Options{},
		built:   transactionWithAuth(t, entries),
	}

	needed, err := at.NeedsNonInvokerSigningBy(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, []string{a1, a2}, needed)
}

func TestNeedsNonInvokerSigningByEmptyWhenAllSigned(t *testing.T) {
	a1 := keypair.MustRandom().Address()
	entries := []xdr.SorobanAuthorizationEntry{addressCredEntry(t, a1, true)}
	at := &AssembledTransaction{
		ctx:     context.Background(),
		options: &Options{},
		built:   transactionWithAuth(t, entries),
	}

	needed, err := at.NeedsNonInvokerSigningBy(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, needed, 0, "caller must check length, not truthiness, of the returned slice")
}

func TestSignAuthEntriesNoSignatureNeededForUnrelatedAccount(t *testing.T) {
	required := keypair.MustRandom().Address()
	unrelated := keypair.MustRandom().Address()
	entries := []xdr.SorobanAuthorizationEntry{addressCredEntry(t, required, false)}
	at := &AssembledTransaction{
		ctx:     context.Background(),
		options: &Options{},
		built:   transactionWithAuth(t, entries),
	}

	err := at.SignAuthEntries(context.Background(), SignAuthEntriesOptions{
		PublicKey:     unrelated,
		SignAuthEntry: func(ctx context.Context, preimageXDR string) ([]byte, error) { return []byte("sig"), nil },
	})
	require.Error(t, err)
}

func TestSignAuthEntriesNoSigner(t *testing.T) {
	pk := keypair.MustRandom().Address()
	entries := []xdr.SorobanAuthorizationEntry{addressCredEntry(t, pk, false)}
	at := &AssembledTransaction{
		ctx:     context.Background(),
		options: &Options{},
		built:   transactionWithAuth(t, entries),
	}

	err := at.SignAuthEntries(context.Background(), SignAuthEntriesOptions{PublicKey: pk})
	require.Error(t, err)
}
