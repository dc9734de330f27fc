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

package contractspec

import (
	"bytes"
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
	"github.com/sorobangoclient/sorobanclient/pkg/log"
)

// ParseSpecEntries stream-decodes the contractspecv0 custom section: a
// concatenation of xdr.ScSpecEntry records with no length prefix between
// them. It consumes exactly one record per iteration and advances the
// cursor; residual bytes after the last full record are unexpected and
// logged rather than failing the parse, matching the platform's own decoder.
func ParseSpecEntries(ctx context.Context, raw []byte) ([]FuncDescriptor, []ErrorCase, error) {
	r := bytes.NewReader(raw)
	dec := xdr.NewDecoder(r)

	var funcs []FuncDescriptor
	var errorCases []ErrorCase
	for r.Len() > 0 {
		var entry xdr.ScSpecEntry
		start := len(raw) - r.Len()
		n, err := dec.Decode(&entry)
		if err != nil {
			if r.Len() == 0 {
				// the input ran out part-way through a record: trailing residue
				log.L(ctx).Warnf("%s", i18n.NewError(ctx, errmsgs.MsgSpecResidueAfterParse, len(raw)-start))
				break
			}
			return nil, nil, i18n.NewError(ctx, errmsgs.MsgSpecInvalidEntry, len(raw)-r.Len()-n, err)
		}
		switch entry.Kind {
		case xdr.ScSpecEntryKindScSpecEntryFunctionV0:
			fn := entry.FunctionV0
			fd := FuncDescriptor{Name: string(fn.Name), Doc: string(fn.Doc)}
			for _, in := range fn.Inputs {
				fd.Inputs = append(fd.Inputs, ParamDescriptor{
					Name: string(in.Name),
					Type: specTypeName(in.Type),
					Doc:  string(in.Doc),
				})
			}
			if len(fn.Outputs) > 0 {
				fd.Output = &ParamDescriptor{Type: specTypeName(fn.Outputs[0])}
			}
			funcs = append(funcs, fd)
		case xdr.ScSpecEntryKindScSpecEntryUdtErrorEnumV0:
			enum := entry.UdtErrorEnumV0
			for _, c := range enum.Cases {
				errorCases = append(errorCases, ErrorCase{Value: uint32(c.Value), Doc: string(c.Doc)})
			}
		default:
			// struct/union/enum UDT declarations describe argument shapes but
			// are not needed to bind method names - a richer ValueCodec would
			// consume them to build its own type registry.
		}
	}
	return funcs, errorCases, nil
}

func specTypeName(t xdr.ScSpecTypeDef) string {
	switch t.Type {
	case xdr.ScSpecTypeScSpecTypeBool:
		return "bool"
	case xdr.ScSpecTypeScSpecTypeU32:
		return "u32"
	case xdr.ScSpecTypeScSpecTypeI32:
		return "i32"
	case xdr.ScSpecTypeScSpecTypeU64:
		return "u64"
	case xdr.ScSpecTypeScSpecTypeI64:
		return "i64"
	case xdr.ScSpecTypeScSpecTypeString:
		return "string"
	case xdr.ScSpecTypeScSpecTypeSymbol:
		return "symbol"
	case xdr.ScSpecTypeScSpecTypeBytes:
		return "bytes"
	case xdr.ScSpecTypeScSpecTypeAddress:
		return "address"
	default:
		return "udt"
	}
}
