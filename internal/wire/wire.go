// Copyright The Draconis Authors. All Rights Reserved.
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

// Package wire implements the on-disk cache entry encoding. The original
// design calls for a BEVE binary envelope; this module uses CBOR
// (github.com/fxamacker/cbor/v2) as a binary, schema-light substitute with
// equivalent semantics — a compact self-describing container holding
// arbitrary payload bytes plus an expiry.
package wire

import (
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/draconis-go/draconis/internal/errs"
)

// Entry is the on-disk envelope for one cached value. Data holds the
// CBOR-encoded payload produced by the caller; Expires is zero for entries
// with no TTL.
type Entry struct {
	Data    []byte    `cbor:"data"`
	Expires time.Time `cbor:"expires,omitempty"`
}

// Encode serializes value into a payload, then wraps it with expires into
// an Entry envelope ready to write to disk.
func Encode(value any, expires time.Time) ([]byte, error) {
	payload, err := cbor.Marshal(value)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "encoding cache payload")
	}
	entry := Entry{Data: payload, Expires: expires}
	out, err := cbor.Marshal(entry)
	if err != nil {
		return nil, errs.Wrap(errs.ParseError, err, "encoding cache entry")
	}
	return out, nil
}

// Decode reads an Entry envelope and unmarshals its payload into dest,
// which must be a pointer. It returns the envelope's expiry.
func Decode(raw []byte, dest any) (time.Time, error) {
	var entry Entry
	if err := cbor.Unmarshal(raw, &entry); err != nil {
		return time.Time{}, errs.Wrap(errs.CorruptedData, err, "decoding cache entry")
	}
	if err := cbor.Unmarshal(entry.Data, dest); err != nil {
		return time.Time{}, errs.Wrap(errs.CorruptedData, err, "decoding cache payload")
	}
	return entry.Expires, nil
}
