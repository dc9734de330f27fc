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

// Package rpcclient is a thin JSON-RPC 2.0 adapter for the node's RPC
// endpoint. Unlike the typical positional-array dialect, this endpoint
// encodes params as a single object and assigns plain integer request ids.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/sirupsen/logrus"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
	"github.com/sorobangoclient/sorobanclient/pkg/log"
	"github.com/sorobangoclient/sorobanclient/pkg/retry"
)

type RPCCode int64

const (
	RPCCodeParseError     RPCCode = -32700
	RPCCodeInvalidRequest RPCCode = -32600
	RPCCodeInternalError  RPCCode = -32603
)

type RPCRequest struct {
	JSONRpc string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type RPCError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type RPCResponse struct {
	JSONRpc string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

func (r *RPCResponse) Message() string {
	if r.Error != nil {
		return r.Error.Error()
	}
	return ""
}

// Client is the JSON-RPC transport consumed by the rest of the runtime. It
// carries no contract-specific behaviour of its own; methods like
// SimulateTransaction in soroban_methods.go are thin typed wrappers over CallRPC.
type Client interface {
	CallRPC(ctx context.Context, result interface{}, method string, params interface{}) error
}

type Config struct {
	URL       string `yaml:"url"`
	AllowHTTP bool   `yaml:"allowHttp"`
	Retry     retry.Config
}

type rpcClient struct {
	client         *resty.Client
	requestCounter int64
	retrier        *retry.Retry
}

// NewHTTPClient builds a Client from a bare URL, enforcing TLS unless allowHttp is set,
// exactly as the platform's ClientOptions.allowHttp flag requires.
func NewHTTPClient(ctx context.Context, conf *Config) (Client, error) {
	u, err := url.Parse(conf.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, i18n.NewError(ctx, errmsgs.MsgRPCClientInvalidHTTPURL, conf.URL)
	}
	if u.Scheme == "http" && !conf.AllowHTTP {
		return nil, i18n.NewError(ctx, errmsgs.MsgRPCClientAllowHTTPRequired, conf.URL)
	}
	rc := resty.New().SetBaseURL(u.String())
	return WrapRestyClient(rc, &conf.Retry), nil
}

func WrapRestyClient(rc *resty.Client, retryConf *retry.Config) Client {
	if retryConf == nil {
		retryConf = &retry.Config{}
	}
	return &rpcClient{client: rc, retrier: retry.NewRetryIndefinite(retryConf)}
}

func (rc *rpcClient) allocateRequestID() int64 {
	return atomic.AddInt64(&rc.requestCounter, 1)
}

func (rc *rpcClient) CallRPC(ctx context.Context, result interface{}, method string, params interface{}) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return i18n.NewError(ctx, errmsgs.MsgRPCClientInvalidParam, "params", method, err)
	}
	req := &RPCRequest{
		JSONRpc: "2.0",
		ID:      rc.allocateRequestID(),
		Method:  method,
		Params:  paramsJSON,
	}

	var res *RPCResponse
	err = rc.retrier.Do(ctx, func(attempt int) (bool, error) {
		var innerErr error
		res, innerErr = rc.syncRequest(ctx, req)
		// only transport-level failures (no response at all) are retryable;
		// a well-formed JSON-RPC error response is returned to the caller immediately.
		return res == nil, innerErr
	})
	if err != nil {
		return err
	}
	if res.Error != nil {
		return res.Error
	}
	if result != nil {
		if err := json.Unmarshal(res.Result, result); err != nil {
			return i18n.NewError(ctx, errmsgs.MsgRPCClientResultParseFailed, result, err)
		}
	}
	return nil
}

func (rc *rpcClient) syncRequest(ctx context.Context, req *RPCRequest) (*RPCResponse, error) {
	rpcRes := new(RPCResponse)
	log.L(ctx).Debugf("RPC[%d] --> %s", req.ID, req.Method)
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		jsonInput, _ := json.Marshal(req)
		log.L(ctx).Tracef("RPC[%d] INPUT: %s", req.ID, jsonInput)
	}
	start := time.Now()
	res, err := rc.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(rpcRes).
		SetError(rpcRes).
		Post("")
	if err != nil {
		log.L(ctx).Errorf("RPC[%d] <-- ERROR: %s", req.ID, err)
		return nil, i18n.NewError(ctx, errmsgs.MsgRPCClientRequestFailed, err)
	}
	if res.IsError() && rpcRes.Error == nil {
		return nil, i18n.NewError(ctx, errmsgs.MsgRPCClientRequestFailed, fmt.Sprintf("HTTP %d", res.StatusCode()))
	}
	log.L(ctx).Debugf("RPC[%d] <-- %s [%d] (%.2fms)", req.ID, req.Method, res.StatusCode(), float64(time.Since(start))/float64(time.Millisecond))
	return rpcRes, nil
}
