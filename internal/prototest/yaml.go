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

package prototest

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"gopkg.in/yaml.v3"
)

// A Row pairs an edition with its decoded feature container, for rendering
// a defaults table.
type Row struct {
	Edition  string
	Features proto.Message
}

type yamlTable struct {
	MinimumEdition string    `yaml:"minimum_edition"`
	MaximumEdition string    `yaml:"maximum_edition"`
	Defaults       []yamlRow `yaml:"defaults"`
}

type yamlRow struct {
	Edition  string   `yaml:"edition"`
	Features []string `yaml:"features"`
}

// DefaultsToYAML renders a defaults table as a YAML document in a
// deterministic manner: rows in table order, fields in declaration order,
// extensions after regular fields in field-number order. Unlike the text
// format, the output is stable across runs, which makes it usable in golden
// comparisons.
func DefaultsToYAML(minimumEdition, maximumEdition string, rows []Row) (string, error) {
	table := yamlTable{
		MinimumEdition: minimumEdition,
		MaximumEdition: maximumEdition,
	}
	for _, row := range rows {
		table.Defaults = append(table.Defaults, yamlRow{
			Edition:  row.Edition,
			Features: messageLines(row.Features.ProtoReflect()),
		})
	}
	data, err := yaml.Marshal(table)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// messageLines renders each populated field as one "name: value" line.
func messageLines(msg protoreflect.Message) []string {
	var lines []string
	fields := msg.Descriptor().Fields()
	for i, length := 0, fields.Len(); i < length; i++ {
		field := fields.Get(i)
		if !msg.Has(field) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", field.Name(), formatValue(field, msg.Get(field))))
	}
	type extension struct {
		field protoreflect.FieldDescriptor
		value protoreflect.Value
	}
	var extensions []extension
	msg.Range(func(field protoreflect.FieldDescriptor, value protoreflect.Value) bool {
		if field.IsExtension() {
			extensions = append(extensions, extension{field, value})
		}
		return true
	})
	slices.SortFunc(extensions, func(a, b extension) int {
		return int(a.field.Number()) - int(b.field.Number())
	})
	for _, ext := range extensions {
		lines = append(lines, fmt.Sprintf("[%s]: %s", ext.field.FullName(), formatValue(ext.field, ext.value)))
	}
	return lines
}

func formatValue(field protoreflect.FieldDescriptor, value protoreflect.Value) string {
	switch field.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return "{" + strings.Join(messageLines(value.Message()), ", ") + "}"
	case protoreflect.EnumKind:
		if enumValue := field.Enum().Values().ByNumber(value.Enum()); enumValue != nil {
			return string(enumValue.Name())
		}
		return fmt.Sprint(value.Enum())
	case protoreflect.StringKind:
		return strconv.Quote(value.String())
	case protoreflect.BytesKind:
		return strconv.Quote(string(value.Bytes()))
	default:
		return fmt.Sprint(value.Interface())
	}
}
