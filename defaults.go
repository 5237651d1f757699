// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package protofeatures

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// FeatureSetDefaults is the compiled defaults table produced by
// [CompileDefaults]: one row per edition at which any feature's default
// changes, valid over the inclusive [MinimumEdition, MaximumEdition] range.
// Rows are in strictly increasing edition order under [CompareEditions].
//
// The table is logically immutable once compiled. It travels between
// processes in the wire format via [FeatureSetDefaults.Marshal] and
// [FeatureSetDefaults.Unmarshal].
type FeatureSetDefaults struct {
	MinimumEdition string
	MaximumEdition string
	Defaults       []FeatureSetEditionDefault
}

// FeatureSetEditionDefault is one row of a defaults table. Features holds a
// serialized instance of the base feature container, fully populated for
// Edition, with extension payloads nested under their extension field
// numbers.
type FeatureSetEditionDefault struct {
	Edition  string
	Features []byte
}

// Field numbers of the serialized form.
const (
	defaultsFieldDefaults       = 1
	defaultsFieldMinimumEdition = 2
	defaultsFieldMaximumEdition = 3

	editionDefaultFieldEdition  = 1
	editionDefaultFieldFeatures = 2
)

// Marshal serializes the table in the wire format. The output is
// deterministic: rows in table order, fields in field-number order, so
// compiling the same inputs twice yields byte-identical output.
func (d *FeatureSetDefaults) Marshal() ([]byte, error) {
	var data []byte
	for i := range d.Defaults {
		row, err := d.Defaults[i].marshal()
		if err != nil {
			return nil, err
		}
		data = protowire.AppendTag(data, defaultsFieldDefaults, protowire.BytesType)
		data = protowire.AppendBytes(data, row)
	}
	if d.MinimumEdition != "" {
		data = protowire.AppendTag(data, defaultsFieldMinimumEdition, protowire.BytesType)
		data = protowire.AppendString(data, d.MinimumEdition)
	}
	if d.MaximumEdition != "" {
		data = protowire.AppendTag(data, defaultsFieldMaximumEdition, protowire.BytesType)
		data = protowire.AppendString(data, d.MaximumEdition)
	}
	return data, nil
}

// Unmarshal replaces the contents of d with the table serialized in data.
// Unknown fields are skipped.
func (d *FeatureSetDefaults) Unmarshal(data []byte) error {
	*d = FeatureSetDefaults{}
	for len(data) > 0 {
		number, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("feature set defaults: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case number == defaultsFieldDefaults && typ == protowire.BytesType:
			value, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("feature set defaults: %w", protowire.ParseError(n))
			}
			data = data[n:]
			var row FeatureSetEditionDefault
			if err := row.unmarshal(value); err != nil {
				return err
			}
			d.Defaults = append(d.Defaults, row)
		case number == defaultsFieldMinimumEdition && typ == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("feature set defaults: %w", protowire.ParseError(n))
			}
			data = data[n:]
			d.MinimumEdition = value
		case number == defaultsFieldMaximumEdition && typ == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("feature set defaults: %w", protowire.ParseError(n))
			}
			data = data[n:]
			d.MaximumEdition = value
		default:
			n := protowire.ConsumeFieldValue(number, typ, data)
			if n < 0 {
				return fmt.Errorf("feature set defaults: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

func (r *FeatureSetEditionDefault) marshal() ([]byte, error) {
	var data []byte
	if r.Edition != "" {
		data = protowire.AppendTag(data, editionDefaultFieldEdition, protowire.BytesType)
		data = protowire.AppendString(data, r.Edition)
	}
	if len(r.Features) > 0 {
		data = protowire.AppendTag(data, editionDefaultFieldFeatures, protowire.BytesType)
		data = protowire.AppendBytes(data, r.Features)
	}
	return data, nil
}

func (r *FeatureSetEditionDefault) unmarshal(data []byte) error {
	for len(data) > 0 {
		number, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("feature set defaults row: %w", protowire.ParseError(n))
		}
		data = data[n:]
		switch {
		case number == editionDefaultFieldEdition && typ == protowire.BytesType:
			value, n := protowire.ConsumeString(data)
			if n < 0 {
				return fmt.Errorf("feature set defaults row: %w", protowire.ParseError(n))
			}
			data = data[n:]
			r.Edition = value
		case number == editionDefaultFieldFeatures && typ == protowire.BytesType:
			value, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return fmt.Errorf("feature set defaults row: %w", protowire.ParseError(n))
			}
			data = data[n:]
			r.Features = append([]byte(nil), value...)
		default:
			n := protowire.ConsumeFieldValue(number, typ, data)
			if n < 0 {
				return fmt.Errorf("feature set defaults row: %w", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}
