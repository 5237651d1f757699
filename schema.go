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
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Schema describes a feature container: the base message schema of the
// feature namespace plus the message-typed extensions that attach
// language- or tool-specific features to it.
type Schema struct {
	// Base is the root message schema of the feature namespace. Required.
	Base protoreflect.MessageDescriptor
	// Extensions are extensions of Base whose payload messages carry
	// additional feature fields. May be empty.
	Extensions []protoreflect.ExtensionDescriptor
	// Annotations supplies the targets and edition defaults for each feature
	// field. If nil, [DescriptorAnnotations] is used, which reads them from
	// the fields' own options.
	Annotations AnnotationSource
}

func (s Schema) annotations() AnnotationSource {
	if s.Annotations == nil {
		return DescriptorAnnotations{}
	}
	return s.Annotations
}

// An EditionDefault pairs an edition with a textual default value. The value
// is in the text format: a field value literal for scalar features, or a
// message literal for message-typed features. It states what value the
// feature takes in that edition and onward, until a later default supersedes
// it.
type EditionDefault struct {
	Edition string
	Value   string
}

// FieldAnnotations holds the feature annotations of a single field of a
// feature container.
type FieldAnnotations struct {
	// Targets names the descriptor kinds the feature is meaningful for. A
	// feature field must have at least one target.
	Targets []descriptorpb.FieldOptions_OptionTargetType
	// EditionDefaults are the per-edition defaults of the field, in no
	// particular order.
	EditionDefaults []EditionDefault
}

// An AnnotationSource reports the feature annotations for fields of a
// feature container schema. The compiler cannot assume any particular
// options representation for the schemas it is handed, so annotation lookup
// is behind this interface; [DescriptorAnnotations] and [StaticAnnotations]
// are the two provided implementations.
type AnnotationSource interface {
	FeatureAnnotations(field protoreflect.FieldDescriptor) (FieldAnnotations, error)
}

// AnnotationSourceFunc is an AnnotationSource implemented by a function.
type AnnotationSourceFunc func(field protoreflect.FieldDescriptor) (FieldAnnotations, error)

var _ AnnotationSource = AnnotationSourceFunc(nil)

func (f AnnotationSourceFunc) FeatureAnnotations(field protoreflect.FieldDescriptor) (FieldAnnotations, error) {
	return f(field)
}

// DescriptorAnnotations reads feature annotations from the fields' own
// options, for schemas whose options are [*descriptorpb.FieldOptions]. The
// editions named by the options' edition enum are mapped to edition strings:
// EDITION_2023 becomes "2023", and the reserved testing editions drop their
// _ONLY suffix, so EDITION_99997_TEST_ONLY becomes "99997_TEST".
type DescriptorAnnotations struct{}

var _ AnnotationSource = DescriptorAnnotations{}

func (DescriptorAnnotations) FeatureAnnotations(field protoreflect.FieldDescriptor) (FieldAnnotations, error) {
	opts, ok := field.Options().(*descriptorpb.FieldOptions)
	if !ok {
		// this is most likely impossible except for contrived use cases...
		return FieldAnnotations{}, fmt.Errorf("%s: options is %T instead of *descriptorpb.FieldOptions", field.FullName(), field.Options())
	}
	annotations := FieldAnnotations{
		Targets: opts.GetTargets(),
	}
	for _, def := range opts.GetEditionDefaults() {
		edition, err := editionString(def.GetEdition())
		if err != nil {
			return FieldAnnotations{}, fmt.Errorf("%s: %w", field.FullName(), err)
		}
		annotations.EditionDefaults = append(annotations.EditionDefaults, EditionDefault{
			Edition: edition,
			Value:   def.GetValue(),
		})
	}
	return annotations, nil
}

// editionString maps an edition enum value to the identifier used by
// [CompareEditions]. The legacy pseudo-editions (PROTO2, PROTO3, LEGACY) keep
// their names; being longer than a four-digit year, they order after every
// year edition under [CompareEditions].
func editionString(edition descriptorpb.Edition) (string, error) {
	if edition == descriptorpb.Edition_EDITION_UNKNOWN {
		return "", fmt.Errorf("edition default names %v", edition)
	}
	name := strings.TrimPrefix(edition.String(), "EDITION_")
	return strings.TrimSuffix(name, "_ONLY"), nil
}

// StaticAnnotations is an AnnotationSource backed by a map from field full
// name to its annotations. It serves schemas whose options cannot carry the
// annotations, and editions that have no enum representation (such as
// "2023.1").
type StaticAnnotations map[protoreflect.FullName]FieldAnnotations

var _ AnnotationSource = StaticAnnotations(nil)

func (s StaticAnnotations) FeatureAnnotations(field protoreflect.FieldDescriptor) (FieldAnnotations, error) {
	return s[field.FullName()], nil
}

// ExtensionTypes builds a type registry holding dynamic extension types for
// the given extension descriptors. [NewResolver] uses such a registry to
// deserialize defaults rows, so that extension payloads round-trip as typed
// sub-messages rather than unknown bytes.
func ExtensionTypes(extensions ...protoreflect.ExtensionDescriptor) (*protoregistry.Types, error) {
	var types protoregistry.Types
	for _, extension := range extensions {
		if err := types.RegisterExtension(dynamicpb.NewExtensionType(extension)); err != nil {
			return nil, err
		}
	}
	return &types, nil
}
