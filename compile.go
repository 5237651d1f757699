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
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"sync"

	"github.com/tidwall/btree"
	"golang.org/x/sync/semaphore"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
)

// CompileDefaults compiles a feature container schema into a defaults table
// covering the inclusive [minimumEdition, maximumEdition] range. The table
// has one row per edition, at or below maximumEdition, at which any feature
// of the base or of an extension payload declares a default; each row
// carries a serialized instance of the base container fully populated for
// that edition.
//
// Editions below minimumEdition are not filtered out of the table. The
// original defaulting system kept them, [NewResolver] separately rejects
// target editions below the minimum, and dropping the rows here would change
// the serialized artifact for no observable gain.
//
// CompileDefaults is pure: it validates its inputs, owns every dynamic
// instance it creates, and leaves the schema untouched.
func CompileDefaults(schema Schema, minimumEdition, maximumEdition string) (*FeatureSetDefaults, error) {
	if schema.Base == nil {
		return nil, fmt.Errorf("feature container schema has no base message")
	}
	if CompareEditions(maximumEdition, minimumEdition) < 0 {
		return nil, fmt.Errorf("invalid edition range: minimum edition %q is later than maximum edition %q", minimumEdition, maximumEdition)
	}
	source := schema.annotations()
	if err := validateContainer(schema.Base, source); err != nil {
		return nil, err
	}
	for _, extension := range schema.Extensions {
		if err := validateExtension(schema.Base, extension); err != nil {
			return nil, err
		}
		if err := validateContainer(extension.Message(), source); err != nil {
			return nil, err
		}
	}

	editions, err := collectEditions(schema, source, maximumEdition)
	if err != nil {
		return nil, err
	}
	defaults := &FeatureSetDefaults{
		MinimumEdition: minimumEdition,
		MaximumEdition: maximumEdition,
		Defaults:       make([]FeatureSetEditionDefault, 0, len(editions)),
	}
	for _, edition := range editions {
		row, err := buildRow(schema, source, edition)
		if err != nil {
			return nil, err
		}
		defaults.Defaults = append(defaults.Defaults, row)
	}
	return defaults, nil
}

// collectEditions gathers every edition at or below maximumEdition that any
// field of the base container or of an extension payload names in its
// defaults. The set is deduplicated and ordered by [CompareEditions]: if the
// base and an extension both change a default at the same edition, the table
// gets a single row and each schema fills its own portion of it.
func collectEditions(schema Schema, source AnnotationSource, maximumEdition string) ([]string, error) {
	set := btree.NewBTreeG[string](editionLess)
	collect := func(container protoreflect.MessageDescriptor) error {
		fields := container.Fields()
		for i, length := 0, fields.Len(); i < length; i++ {
			annotations, err := source.FeatureAnnotations(fields.Get(i))
			if err != nil {
				return err
			}
			for _, def := range annotations.EditionDefaults {
				if CompareEditions(def.Edition, maximumEdition) <= 0 {
					set.Set(def.Edition)
				}
			}
		}
		return nil
	}
	if err := collect(schema.Base); err != nil {
		return nil, err
	}
	for _, extension := range schema.Extensions {
		if err := collect(extension.Message()); err != nil {
			return nil, err
		}
	}
	editions := make([]string, 0, set.Len())
	set.Scan(func(edition string) bool {
		editions = append(editions, edition)
		return true
	})
	return editions, nil
}

// buildRow populates one defaults row: a fresh dynamic instance of the base
// container with every base field and every extension payload defaulted for
// the given edition, serialized deterministically.
func buildRow(schema Schema, source AnnotationSource, edition string) (FeatureSetEditionDefault, error) {
	features := dynamicpb.NewMessage(schema.Base)
	if err := fillDefaults(edition, features, source); err != nil {
		return FeatureSetEditionDefault{}, err
	}
	for _, extension := range schema.Extensions {
		extensionType := dynamicpb.NewExtensionType(extension)
		payload := features.Mutable(extensionType.TypeDescriptor()).Message()
		if err := fillDefaults(edition, payload, source); err != nil {
			return FeatureSetEditionDefault{}, err
		}
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(features)
	if err != nil {
		return FeatureSetEditionDefault{}, fmt.Errorf("serializing defaults for edition %s: %w", edition, err)
	}
	return FeatureSetEditionDefault{Edition: edition, Features: data}, nil
}

// fillDefaults sets every field of msg to its default at the given edition.
// For a message-typed feature, every default at or below the edition merges
// into the sub-message in ascending edition order, so later editions can add
// to a composite feature without restating it. For a scalar feature only the
// latest applicable default wins.
func fillDefaults(edition string, msg protoreflect.Message, source AnnotationSource) error {
	// A typed nil resolver keeps prototext away from the global registry.
	// Feature values cannot themselves contain extensions or Any.
	unmarshaler := prototext.UnmarshalOptions{Resolver: (*protoregistry.Types)(nil)}
	fields := msg.Descriptor().Fields()
	for i, length := 0, fields.Len(); i < length; i++ {
		field := fields.Get(i)
		msg.Clear(field)
		annotations, err := source.FeatureAnnotations(field)
		if err != nil {
			return err
		}
		defs := slices.Clone(annotations.EditionDefaults)
		slices.SortFunc(defs, func(a, b EditionDefault) int {
			return CompareEditions(a.Edition, b.Edition)
		})
		// Upper bound: the first default strictly after the edition. Nothing
		// before it means the field has no value at this edition at all.
		bound := sort.Search(len(defs), func(i int) bool {
			return CompareEditions(defs[i].Edition, edition) > 0
		})
		if bound == 0 {
			return fmt.Errorf("%w: feature field %s has no default at or below edition %s", ErrNoDefaultForEdition, field.FullName(), edition)
		}
		// The value is the text format for the field alone: a value literal
		// for scalars, a braced message literal for messages. prototext
		// cannot parse either by itself, so prefixing the field name turns
		// it into a parseable enclosing message.
		parse := func(def EditionDefault) (protoreflect.Value, error) {
			var text string
			if field.IsExtension() {
				text = fmt.Sprintf("[%s]: %s", field.FullName(), def.Value)
			} else {
				text = fmt.Sprintf("%s: %s", field.Name(), def.Value)
			}
			scratch := msg.New()
			if err := unmarshaler.Unmarshal([]byte(text), scratch.Interface()); err != nil {
				return protoreflect.Value{}, fmt.Errorf("%w: feature field %s at edition %s: %v", ErrMalformedDefault, field.FullName(), def.Edition, err)
			}
			return scratch.Get(field), nil
		}
		if field.Kind() == protoreflect.MessageKind || field.Kind() == protoreflect.GroupKind {
			// prototext has no merge option, so each default parses into a
			// scratch instance that then merges into the accumulated value.
			sub := msg.Mutable(field).Message()
			for _, def := range defs[:bound] {
				value, err := parse(def)
				if err != nil {
					return err
				}
				proto.Merge(sub.Interface(), value.Message().Interface())
			}
			continue
		}
		value, err := parse(defs[bound-1])
		if err != nil {
			return err
		}
		msg.Set(field, value)
	}
	return nil
}

// A CompileRequest is one unit of work for [Compiler.Compile]: a feature
// container schema and the edition range to compile it over.
type CompileRequest struct {
	Schema         Schema
	MinimumEdition string
	MaximumEdition string
}

// Compiler compiles defaults tables for several feature families at once,
// one per target toolchain. The zero value is ready to use.
type Compiler struct {
	// The maximum parallelism to use when compiling. If unspecified or set
	// to a non-positive value, then min(runtime.NumCPU(), runtime.GOMAXPROCS(-1))
	// will be used.
	MaxParallelism int
}

// Compile runs [CompileDefaults] for every request, bounded by the
// compiler's parallelism. Results are positionally aligned with requests.
// The first failure wins and is reported with the index of the request that
// caused it; ctx cancellation abandons requests not yet started.
func (c *Compiler) Compile(ctx context.Context, requests ...CompileRequest) ([]*FeatureSetDefaults, error) {
	parallelism := c.MaxParallelism
	if parallelism <= 0 {
		parallelism = min(runtime.NumCPU(), runtime.GOMAXPROCS(-1))
	}
	var (
		sem      = semaphore.NewWeighted(int64(parallelism))
		wait     sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make([]*FeatureSetDefaults, len(requests))
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	for i, request := range requests {
		if err := sem.Acquire(ctx, 1); err != nil {
			record(err)
			break
		}
		wait.Add(1)
		go func(i int, request CompileRequest) {
			defer wait.Done()
			defer sem.Release(1)
			defaults, err := CompileDefaults(request.Schema, request.MinimumEdition, request.MaximumEdition)
			if err != nil {
				record(fmt.Errorf("compile request #%d: %w", i, err))
				return
			}
			results[i] = defaults
		}(i, request)
	}
	wait.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
