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

// Package senttx implements the submit-and-poll state machine that carries a
// signed envelope from network acknowledgement through to a terminal
// transaction status, with an exponential backoff bounded by the caller's
// timeout budget.
package senttx

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
	"github.com/sorobangoclient/sorobanclient/pkg/log"
	"github.com/sorobangoclient/sorobanclient/pkg/rpcclient"
	"github.com/sorobangoclient/sorobanclient/pkg/txassembly"
)

var contractErrorPattern = regexp.MustCompile(`Error\(Contract, #(\d+)\)`)

// SentTransaction holds the submitted envelope, the first network
// acknowledgement, and every subsequent poll attempt in submission order.
// It borrows options from the originating AssembledTransaction only to reach
// RPC and parseResultXdr; it never holds a back-reference to the
// AssembledTransaction itself.
type SentTransaction struct {
	ctx     context.Context
	options *txassembly.Options

	// CorrelationID is a client-local id stamped onto every submission for
	// tracing one transaction's send-then-poll sequence through log output;
	// it never crosses the wire and has no relation to the JSON-RPC request id.
	CorrelationID             string
	Signed                    string
	SendTransactionResponse   *rpcclient.SendTransactionResult
	GetTransactionResponseAll []*rpcclient.GetTransactionResult
	GetTransactionResponse    *rpcclient.GetTransactionResult

	// nowFn and afterFn default to time.Now/time.After; tests substitute a
	// fake clock so the backoff-and-timeout path (P6) doesn't need real sleeps.
	nowFn   func() time.Time
	afterFn func(time.Duration) <-chan time.Time
}

// Init assigns fields and immediately submits the envelope (spec §4.4 init).
func Init(ctx context.Context, options *txassembly.Options, signedEnvelopeXDR string) (*SentTransaction, error) {
	st := &SentTransaction{ctx: ctx, options: options, Signed: signedEnvelopeXDR, CorrelationID: uuid.New().String()}
	if err := st.send(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// Factory adapts Init to the narrow SentTransactionSender interface
// txassembly.AssembledTransaction.Send needs, without requiring txassembly to
// import this package (which would create a cycle, since this package
// already imports txassembly for Options and ParseResultXdrFunc).
type Factory struct{}

func (Factory) Init(ctx context.Context, options *txassembly.Options, signedEnvelopeXDR string) (interface{}, error) {
	return Init(ctx, options, signedEnvelopeXDR)
}

func (st *SentTransaction) send(ctx context.Context) error {
	sendRes, err := st.options.Client.RPC.SendTransaction(ctx, st.Signed)
	if err != nil {
		return err
	}
	st.SendTransactionResponse = sendRes
	if sendRes.Status != rpcclient.SendStatusPending {
		return i18n.NewError(ctx, errmsgs.MsgSendFailed, sendRes.Status, sendRes.ErrorResultXdr)
	}

	timeout := time.Duration(st.timeoutInSeconds()) * time.Second
	deadline := st.now().Add(timeout)

	attempt := 0
	for {
		getRes, err := st.options.Client.RPC.GetTransaction(ctx, sendRes.Hash)
		if err != nil {
			return err
		}
		st.GetTransactionResponseAll = append(st.GetTransactionResponseAll, getRes)
		st.GetTransactionResponse = getRes

		if getRes.Status != rpcclient.TxStatusNotFound {
			return nil
		}

		remaining := deadline.Sub(st.now())
		if remaining <= 0 {
			break
		}

		// min(2^i, remaining) seconds, clamped so the final sleep never
		// overshoots the caller's poll budget (spec §4.4 backoff schedule, §9).
		delay := time.Duration(1<<uint(attempt)) * time.Second
		if delay > remaining {
			delay = remaining
		}
		log.L(ctx).Debugf("[%s] polling getTransaction(%s) attempt %d, next delay %s", st.CorrelationID, sendRes.Hash, attempt, delay)

		select {
		case <-ctx.Done():
			return i18n.NewError(ctx, errmsgs.MsgContextCanceled)
		case <-st.after(delay):
		}
		attempt++
	}

	return i18n.NewError(ctx, errmsgs.MsgTransactionStillPending, sendRes.Hash, len(st.GetTransactionResponseAll), timeout)
}

func (st *SentTransaction) timeoutInSeconds() uint32 {
	if st.options.Method.TimeoutInSeconds > 0 {
		return st.options.Method.TimeoutInSeconds
	}
	return txassembly.DefaultMethodOptions().TimeoutInSeconds
}

// now and after are indirections over time.Now/time.After so tests can
// substitute a fake clock without sleeping real wall time.
func (st *SentTransaction) now() time.Time {
	if st.nowFn != nil {
		return st.nowFn()
	}
	return time.Now()
}

func (st *SentTransaction) after(d time.Duration) <-chan time.Time {
	if st.afterFn != nil {
		return st.afterFn(d)
	}
	return time.After(d)
}

// Result parses the final GetTransactionResponse's returnValue via
// options.ParseResultXdr, falling back through the precedence spelled out in
// spec §4.4: TransactionFailed when a terminal response lacks a return
// value, SendFailed when only the submission response exists and decodes to
// an error, SendResultOnly when submission succeeded but polling never ran,
// and a generic failure otherwise.
func (st *SentTransaction) Result(ctx context.Context) (interface{}, error) {
	if st.GetTransactionResponse != nil {
		if st.GetTransactionResponse.ReturnValue != "" {
			var wire xdr.ScVal
			if err := xdr.SafeUnmarshalBase64(st.GetTransactionResponse.ReturnValue, &wire); err != nil {
				return st.mapContractError(ctx, err)
			}
			native, err := st.options.ParseResultXdr(wire)
			if err != nil {
				return st.mapContractError(ctx, err)
			}
			return native, nil
		}
		return nil, i18n.NewError(ctx, errmsgs.MsgTransactionFailed)
	}
	if st.SendTransactionResponse != nil {
		if st.SendTransactionResponse.ErrorResultXdr != "" {
			return nil, i18n.NewError(ctx, errmsgs.MsgSendFailed, st.SendTransactionResponse.Status, st.SendTransactionResponse.ErrorResultXdr)
		}
		return nil, i18n.NewError(ctx, errmsgs.MsgSendResultOnly)
	}
	return nil, i18n.NewError(ctx, errmsgs.MsgTransactionFailed)
}

func (st *SentTransaction) mapContractError(ctx context.Context, err error) (interface{}, error) {
	m := contractErrorPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return nil, err
	}
	code, convErr := strconv.ParseUint(m[1], 10, 32)
	if convErr != nil {
		return nil, err
	}
	if msg, ok := st.options.ErrorTypes[uint32(code)]; ok {
		log.L(ctx).Warnf("%s", i18n.NewError(ctx, errmsgs.MsgTxContractError, code, msg))
		return &txassembly.Err{Code: uint32(code), Message: msg}, nil
	}
	return nil, err
}
