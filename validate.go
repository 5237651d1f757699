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

	"google.golang.org/protobuf/reflect/protoreflect"
)

// validateContainer checks that a feature container message has a shape the
// compiler and resolver can handle: no oneofs, no required or repeated
// fields, and at least one target per field. It is pure and applies to the
// base schema and to every extension payload schema alike.
func validateContainer(container protoreflect.MessageDescriptor, source AnnotationSource) error {
	fields := container.Fields()
	for i, length := 0, fields.Len(); i < length; i++ {
		field := fields.Get(i)
		if oneof := field.ContainingOneof(); oneof != nil {
			return fmt.Errorf("%w: feature field %s is part of oneof %s", ErrUnsupportedShape, field.FullName(), oneof.Name())
		}
		if field.Cardinality() == protoreflect.Required {
			return fmt.Errorf("%w: feature field %s is required", ErrUnsupportedShape, field.FullName())
		}
		if field.Cardinality() == protoreflect.Repeated {
			return fmt.Errorf("%w: feature field %s is repeated", ErrUnsupportedShape, field.FullName())
		}
		annotations, err := source.FeatureAnnotations(field)
		if err != nil {
			return err
		}
		if len(annotations.Targets) == 0 {
			return fmt.Errorf("%w: feature field %s has no targets", ErrUnsupportedShape, field.FullName())
		}
	}
	return nil
}

// validateExtension checks that an extension of the base feature container
// is usable as a feature extension: present, extending the base, singular,
// message-typed, and with a payload that does not itself extend or get
// extended. It is pure.
func validateExtension(base protoreflect.MessageDescriptor, extension protoreflect.ExtensionDescriptor) error {
	if extension == nil {
		return fmt.Errorf("%w: extension of %s not found", ErrUnknownExtension, base.FullName())
	}
	if extension.ContainingMessage().FullName() != base.FullName() {
		return fmt.Errorf("%w: extension %s extends %s, not %s", ErrNotAnExtensionOf, extension.FullName(), extension.ContainingMessage().FullName(), base.FullName())
	}
	if extension.Kind() != protoreflect.MessageKind && extension.Kind() != protoreflect.GroupKind {
		// Extensions must be messages so that new features can be added to
		// them later.
		return fmt.Errorf("%w: extension %s has kind %s", ErrNotMessageTyped, extension.FullName(), extension.Kind())
	}
	if extension.Cardinality() == protoreflect.Repeated {
		return fmt.Errorf("%w: extension %s", ErrRepeatedExtension, extension.FullName())
	}
	payload := extension.Message()
	if payload.Extensions().Len() > 0 {
		return fmt.Errorf("%w: %s declares extension %s", ErrNestedExtensions, payload.FullName(), payload.Extensions().Get(0).FullName())
	}
	if payload.ExtensionRanges().Len() > 0 {
		return fmt.Errorf("%w: %s declares an extension range", ErrNestedExtensions, payload.FullName())
	}
	return nil
}
