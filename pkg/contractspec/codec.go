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
	"context"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"

	"github.com/sorobangoclient/sorobanclient/pkg/errmsgs"
)

// DefaultValueCodec covers the primitive Soroban types directly: bool,
// u32/i32/u64/i64, string/symbol, bytes and contract addresses. UDTs
// (structs, unions, enums declared by the contract) are out of scope here -
// a caller with a richer type registry supplies its own ValueCodec to
// ContractSpec.New, per the spec's note that native<->wire conversion is a
// pluggable, externally-provided concern.
type DefaultValueCodec struct{}

func (DefaultValueCodec) ToScVal(ctx context.Context, typeName string, value interface{}) (xdr.ScVal, error) {
	switch typeName {
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return xdr.ScVal{}, i18n.NewError(ctx, errmsgs.MsgSpecValueTypeMismatch, "bool", typeName, value)
		}
		return xdr.NewScVal(xdr.ScValTypeScvBool, b)
	case "u32":
		v, err := asUint32(ctx, value)
		if err != nil {
			return xdr.ScVal{}, err
		}
		u := xdr.Uint32(v)
		return xdr.NewScVal(xdr.ScValTypeScvU32, u)
	case "i32":
		v, err := asInt32(ctx, value)
		if err != nil {
			return xdr.ScVal{}, err
		}
		i := xdr.Int32(v)
		return xdr.NewScVal(xdr.ScValTypeScvI32, i)
	case "u64":
		v, err := asUint64(ctx, value)
		if err != nil {
			return xdr.ScVal{}, err
		}
		u := xdr.Uint64(v)
		return xdr.NewScVal(xdr.ScValTypeScvU64, u)
	case "i64":
		v, err := asInt64(ctx, value)
		if err != nil {
			return xdr.ScVal{}, err
		}
		i := xdr.Int64(v)
		return xdr.NewScVal(xdr.ScValTypeScvI64, i)
	case "symbol":
		s, ok := value.(string)
		if !ok {
			return xdr.ScVal{}, i18n.NewError(ctx, errmsgs.MsgSpecValueTypeMismatch, "string", typeName, value)
		}
		sym := xdr.ScSymbol(s)
		return xdr.NewScVal(xdr.ScValTypeScvSymbol, sym)
	case "string":
		s, ok := value.(string)
		if !ok {
			return xdr.ScVal{}, i18n.NewError(ctx, errmsgs.MsgSpecValueTypeMismatch, "string", typeName, value)
		}
		str := xdr.ScString(s)
		return xdr.NewScVal(xdr.ScValTypeScvString, str)
	case "bytes":
		b, ok := value.([]byte)
		if !ok {
			return xdr.ScVal{}, i18n.NewError(ctx, errmsgs.MsgSpecValueTypeMismatch, "[]byte", typeName, value)
		}
		bytesVal := xdr.ScBytes(b)
		return xdr.NewScVal(xdr.ScValTypeScvBytes, bytesVal)
	case "address":
		s, ok := value.(string)
		if !ok {
			return xdr.ScVal{}, i18n.NewError(ctx, errmsgs.MsgSpecValueTypeMismatch, "string address", typeName, value)
		}
		addr, err := addressToScAddress(ctx, s)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.NewScVal(xdr.ScValTypeScvAddress, addr)
	default:
		return xdr.ScVal{}, i18n.NewError(ctx, errmsgs.MsgSpecUnsupportedType, typeName)
	}
}

func (DefaultValueCodec) FromScVal(ctx context.Context, typeName string, val xdr.ScVal) (interface{}, error) {
	switch typeName {
	case "bool":
		if val.B == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "bool")
		}
		return bool(*val.B), nil
	case "u32":
		if val.U32 == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "u32")
		}
		return uint32(*val.U32), nil
	case "i32":
		if val.I32 == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "i32")
		}
		return int32(*val.I32), nil
	case "u64":
		if val.U64 == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "u64")
		}
		return uint64(*val.U64), nil
	case "i64":
		if val.I64 == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "i64")
		}
		return int64(*val.I64), nil
	case "symbol":
		if val.Sym == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "symbol")
		}
		return string(*val.Sym), nil
	case "string":
		if val.Str == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "string")
		}
		return string(*val.Str), nil
	case "bytes":
		if val.Bytes == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "bytes")
		}
		return []byte(*val.Bytes), nil
	case "address":
		if val.Address == nil {
			return nil, i18n.NewError(ctx, errmsgs.MsgSpecWireTypeMismatch, "address")
		}
		return scAddressToString(ctx, *val.Address)
	default:
		return nil, i18n.NewError(ctx, errmsgs.MsgSpecUnsupportedType, typeName)
	}
}

func addressToScAddress(ctx context.Context, addr string) (xdr.ScAddress, error) {
	if len(addr) == 0 {
		return xdr.ScAddress{}, i18n.NewError(ctx, errmsgs.MsgSpecEmptyAddress)
	}
	switch addr[0] {
	case 'G':
		aid, err := xdr.AddressToAccountId(addr)
		if err != nil {
			return xdr.ScAddress{}, i18n.NewError(ctx, errmsgs.MsgSpecInvalidAddress, addr, err)
		}
		return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &aid}, nil
	case 'C':
		raw, err := strkey.Decode(strkey.VersionByteContract, addr)
		if err != nil {
			return xdr.ScAddress{}, i18n.NewError(ctx, errmsgs.MsgSpecInvalidAddress, addr, err)
		}
		var hash xdr.Hash
		copy(hash[:], raw)
		cid := xdr.ContractId(hash)
		return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &cid}, nil
	default:
		return xdr.ScAddress{}, i18n.NewError(ctx, errmsgs.MsgSpecInvalidAddress, addr, "unrecognised address prefix")
	}
}

func scAddressToString(ctx context.Context, addr xdr.ScAddress) (string, error) {
	switch addr.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		return addr.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		return strkey.Encode(strkey.VersionByteContract, addr.ContractId[:])
	default:
		return "", i18n.NewError(ctx, errmsgs.MsgSpecUnsupportedAddressType, addr.Type)
	}
}

func asUint32(ctx context.Context, value interface{}) (uint32, error) {
	switch v := value.(type) {
	case uint32:
		return v, nil
	case int:
		return uint32(v), nil
	case int64:
		return uint32(v), nil
	default:
		return 0, i18n.NewError(ctx, errmsgs.MsgSpecIntegerTypeMismatch, value)
	}
}

func asInt32(ctx context.Context, value interface{}) (int32, error) {
	switch v := value.(type) {
	case int32:
		return v, nil
	case int:
		return int32(v), nil
	case int64:
		return int32(v), nil
	default:
		return 0, i18n.NewError(ctx, errmsgs.MsgSpecIntegerTypeMismatch, value)
	}
}

func asUint64(ctx context.Context, value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case int:
		return uint64(v), nil
	case int64:
		return uint64(v), nil
	default:
		return 0, i18n.NewError(ctx, errmsgs.MsgSpecIntegerTypeMismatch, value)
	}
}

func asInt64(ctx context.Context, value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	default:
		return 0, i18n.NewError(ctx, errmsgs.MsgSpecIntegerTypeMismatch, value)
	}
}
