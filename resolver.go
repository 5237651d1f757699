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
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// A Resolver is bound to a single edition of a compiled defaults table and
// merges declared features on top of that edition's defaults. It is
// immutable once created: concurrent callers may share one resolver without
// locking.
type Resolver struct {
	edition  string
	defaults proto.Message
}

// NewResolver selects the row of the compiled table that applies at the
// given edition. The edition must lie within the table's inclusive range,
// and the table's rows must be in strictly increasing edition order; a table
// that is not is corrupt and rejected with [ErrDefaultsNotMonotone]. The row
// that applies is the latest one at or below the edition; its features are
// deserialized against schema, with extension payloads resolved through the
// schema's extensions.
func NewResolver(edition string, schema Schema, defaults *FeatureSetDefaults) (*Resolver, error) {
	if schema.Base == nil {
		return nil, fmt.Errorf("feature container schema has no base message")
	}
	if CompareEditions(edition, defaults.MinimumEdition) < 0 {
		return nil, fmt.Errorf("%w: edition %s is earlier than the minimum supported edition %s", ErrEditionBelowMin, edition, defaults.MinimumEdition)
	}
	if CompareEditions(defaults.MaximumEdition, edition) < 0 {
		return nil, fmt.Errorf("%w: edition %s is later than the maximum supported edition %s", ErrEditionAboveMax, edition, defaults.MaximumEdition)
	}
	rows := defaults.Defaults
	for i := 1; i < len(rows); i++ {
		if CompareEditions(rows[i-1].Edition, rows[i].Edition) >= 0 {
			return nil, fmt.Errorf("%w: edition %s is not later than edition %s", ErrDefaultsNotMonotone, rows[i].Edition, rows[i-1].Edition)
		}
	}
	bound := sort.Search(len(rows), func(i int) bool {
		return CompareEditions(rows[i].Edition, edition) > 0
	})
	if bound == 0 {
		return nil, fmt.Errorf("%w: no feature set defaults at or below edition %s", ErrNoDefaultForEdition, edition)
	}
	row := rows[bound-1]
	types, err := ExtensionTypes(schema.Extensions...)
	if err != nil {
		return nil, err
	}
	features := dynamicpb.NewMessage(schema.Base)
	if err := (proto.UnmarshalOptions{Resolver: types}).Unmarshal(row.Features, features); err != nil {
		return nil, fmt.Errorf("deserializing defaults for edition %s: %w", row.Edition, err)
	}
	return &Resolver{edition: edition, defaults: features}, nil
}

// Edition returns the edition this resolver is bound to.
func (r *Resolver) Edition() string {
	return r.edition
}

// Defaults returns a copy of the edition defaults captured at creation.
// Mutating the copy does not affect the resolver.
func (r *Resolver) Defaults() proto.Message {
	return proto.Clone(r.defaults)
}

// MergeFeatures computes the effective feature set of a schema element from
// the features declared on its lexical parent and on the element itself.
// The defaults captured at creation form the base; parent applies on top of
// them and child on top of both, with scalar fields overwriting and
// sub-messages merging recursively, so precedence is child over parent over
// defaults. Either input may be nil, meaning no declared features.
//
// Both inputs must be instances of the resolver's base container schema. The
// merged result is validated before it is returned: every enum-typed
// feature must have resolved to a value other than the enum's zero, which is
// reserved to mean "unknown"; landing on it indicates a defaulting bug in
// the inputs.
func (r *Resolver) MergeFeatures(parent, child proto.Message) (proto.Message, error) {
	merged := proto.Clone(r.defaults)
	for _, declared := range []proto.Message{parent, child} {
		if declared == nil {
			continue
		}
		if declaredDesc := declared.ProtoReflect().Descriptor(); declaredDesc != merged.ProtoReflect().Descriptor() {
			return nil, fmt.Errorf("features are a %s, not an instance of the feature container %s", declaredDesc.FullName(), merged.ProtoReflect().Descriptor().FullName())
		}
		proto.Merge(merged, declared)
	}
	if err := validateMerged(merged.ProtoReflect()); err != nil {
		return nil, err
	}
	return merged, nil
}

// validateMerged walks a merged feature set, including extension payloads,
// rejecting any enum-typed feature that is absent or resolved to the zero
// sentinel.
func validateMerged(msg protoreflect.Message) error {
	fields := msg.Descriptor().Fields()
	for i, length := 0, fields.Len(); i < length; i++ {
		field := fields.Get(i)
		switch {
		case field.Kind() == protoreflect.EnumKind:
			number := msg.Get(field).Enum()
			if !msg.Has(field) || number == 0 {
				name := protoreflect.Name("UNKNOWN")
				if value := field.Enum().Values().ByNumber(number); value != nil {
					name = value.Name()
				}
				return fmt.Errorf("%w: feature field %s resolved to %s", ErrUnknownEnumValue, field.FullName(), name)
			}
		case field.Kind() == protoreflect.MessageKind || field.Kind() == protoreflect.GroupKind:
			if msg.Has(field) {
				if err := validateMerged(msg.Get(field).Message()); err != nil {
					return err
				}
			}
		}
	}
	var rangeErr error
	msg.Range(func(field protoreflect.FieldDescriptor, value protoreflect.Value) bool {
		if field.IsExtension() && (field.Kind() == protoreflect.MessageKind || field.Kind() == protoreflect.GroupKind) {
			rangeErr = validateMerged(value.Message())
		}
		return rangeErr == nil
	})
	return rangeErr
}
