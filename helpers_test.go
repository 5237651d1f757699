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
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// The test feature container:
//
//	package test;
//	message Features {
//	  optional int32 x = 1;
//	  optional int32 y = 2;
//	  optional Composite m = 3;
//	  optional Level e = 4;
//	  extensions 100 to 199;
//	}
//	message Composite {
//	  optional int32 a = 1;
//	  optional int32 b = 2;
//	}
//	message ExtFeatures {
//	  optional int32 b = 1;
//	  optional Level level = 2;
//	}
//	enum Level { LEVEL_UNKNOWN = 0; LEVEL_A = 1; LEVEL_B = 2; }
//	extend Features { optional ExtFeatures ext = 100; }
func buildTestFile(t *testing.T) protoreflect.FileDescriptor {
	t.Helper()
	file, err := protodesc.NewFile(testFileProto(), nil)
	require.NoError(t, err)
	return file
}

func testFileProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("test/features.proto"),
		Package: proto.String("test"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Features"),
				Field: []*descriptorpb.FieldDescriptorProto{
					testField("x", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
					testField("y", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
					testField("m", 3, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".test.Composite"),
					testField("e", 4, descriptorpb.FieldDescriptorProto_TYPE_ENUM, ".test.Level"),
				},
				ExtensionRange: []*descriptorpb.DescriptorProto_ExtensionRange{
					{Start: proto.Int32(100), End: proto.Int32(200)},
				},
			},
			{
				Name: proto.String("Composite"),
				Field: []*descriptorpb.FieldDescriptorProto{
					testField("a", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
					testField("b", 2, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
				},
			},
			{
				Name: proto.String("ExtFeatures"),
				Field: []*descriptorpb.FieldDescriptorProto{
					testField("b", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32, ""),
					testField("level", 2, descriptorpb.FieldDescriptorProto_TYPE_ENUM, ".test.Level"),
				},
			},
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			{
				Name: proto.String("Level"),
				Value: []*descriptorpb.EnumValueDescriptorProto{
					{Name: proto.String("LEVEL_UNKNOWN"), Number: proto.Int32(0)},
					{Name: proto.String("LEVEL_A"), Number: proto.Int32(1)},
					{Name: proto.String("LEVEL_B"), Number: proto.Int32(2)},
				},
			},
		},
		Extension: []*descriptorpb.FieldDescriptorProto{
			func() *descriptorpb.FieldDescriptorProto {
				ext := testField("ext", 100, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".test.ExtFeatures")
				ext.Extendee = proto.String(".test.Features")
				return ext
			}(),
		},
	}
}

func testField(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	field := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		field.TypeName = proto.String(typeName)
	}
	return field
}

func targets(types ...descriptorpb.FieldOptions_OptionTargetType) []descriptorpb.FieldOptions_OptionTargetType {
	return types
}

var targetFile = targets(descriptorpb.FieldOptions_TARGET_TYPE_FILE)

// testAnnotations returns the canonical annotations for the test schema:
// scalar x changes at 2024, composite m grows a second member at 2024, the
// extension's b changes at 2023.
func testAnnotations() StaticAnnotations {
	return StaticAnnotations{
		"test.Features.x": {
			Targets: targetFile,
			EditionDefaults: []EditionDefault{
				{Edition: "2022", Value: "1"},
				{Edition: "2024", Value: "3"},
			},
		},
		"test.Features.y": {
			Targets: targetFile,
			EditionDefaults: []EditionDefault{
				{Edition: "2022", Value: "1"},
			},
		},
		"test.Features.m": {
			Targets: targetFile,
			EditionDefaults: []EditionDefault{
				{Edition: "2022", Value: "{a: 1}"},
				{Edition: "2024", Value: "{b: 2}"},
			},
		},
		"test.Features.e": {
			Targets: targetFile,
			EditionDefaults: []EditionDefault{
				{Edition: "2022", Value: "LEVEL_A"},
			},
		},
		"test.ExtFeatures.b": {
			Targets: targetFile,
			EditionDefaults: []EditionDefault{
				{Edition: "2022", Value: "2"},
				{Edition: "2023", Value: "3"},
			},
		},
		"test.ExtFeatures.level": {
			Targets: targets(descriptorpb.FieldOptions_TARGET_TYPE_FIELD),
			EditionDefaults: []EditionDefault{
				{Edition: "2022", Value: "LEVEL_B"},
			},
		},
	}
}

func buildTestSchema(t *testing.T) Schema {
	t.Helper()
	file := buildTestFile(t)
	return Schema{
		Base:        file.Messages().ByName("Features"),
		Extensions:  []protoreflect.ExtensionDescriptor{file.Extensions().ByName("ext")},
		Annotations: testAnnotations(),
	}
}

// parseFeatures parses a text-format literal into a fresh instance of the
// schema's base container, resolving the schema's extensions.
func parseFeatures(t *testing.T, schema Schema, text string) proto.Message {
	t.Helper()
	types, err := ExtensionTypes(schema.Extensions...)
	require.NoError(t, err)
	features := dynamicpb.NewMessage(schema.Base)
	err = prototext.UnmarshalOptions{Resolver: types}.Unmarshal([]byte(text), features)
	require.NoError(t, err)
	return features
}

// decodeRow deserializes a defaults row against the schema.
func decodeRow(t *testing.T, schema Schema, row FeatureSetEditionDefault) proto.Message {
	t.Helper()
	types, err := ExtensionTypes(schema.Extensions...)
	require.NoError(t, err)
	features := dynamicpb.NewMessage(schema.Base)
	err = proto.UnmarshalOptions{Resolver: types}.Unmarshal(row.Features, features)
	require.NoError(t, err)
	return features
}
