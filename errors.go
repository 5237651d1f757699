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

import "errors"

// Errors returned by this package wrap one of the sentinel values below, so
// callers can classify a failure with [errors.Is] while the returned error
// itself names the offending field, extension, or edition. All of them are
// precondition failures: the inputs did not satisfy a documented invariant,
// and no partial result is produced.
var (
	// ErrUnsupportedShape indicates a feature container schema the resolver
	// cannot handle: a field in a oneof, a required or repeated field, or a
	// field with no targets.
	ErrUnsupportedShape = errors.New("unsupported feature container shape")

	// ErrUnknownExtension indicates a feature extension that could not be
	// found.
	ErrUnknownExtension = errors.New("unknown feature extension")

	// ErrNotAnExtensionOf indicates an extension whose containing message is
	// not the base feature container.
	ErrNotAnExtensionOf = errors.New("not an extension of the feature container")

	// ErrNotMessageTyped indicates a feature extension whose value is a
	// scalar. Feature extensions must be messages so that new features can be
	// added to them later.
	ErrNotMessageTyped = errors.New("feature extension is not message-typed")

	// ErrRepeatedExtension indicates a repeated feature extension.
	ErrRepeatedExtension = errors.New("feature extension is repeated")

	// ErrNestedExtensions indicates a feature extension whose payload message
	// itself declares extensions or extension ranges.
	ErrNestedExtensions = errors.New("feature extension payload declares extensions")

	// ErrNoDefaultForEdition indicates that no default value applies at or
	// below the requested edition, either for a single feature field during
	// compilation or for an entire defaults table during resolver creation.
	ErrNoDefaultForEdition = errors.New("no default for edition")

	// ErrMalformedDefault indicates a feature default whose text value failed
	// to parse.
	ErrMalformedDefault = errors.New("malformed edition default")

	// ErrEditionBelowMin indicates an edition earlier than the minimum
	// edition of a compiled defaults table.
	ErrEditionBelowMin = errors.New("edition is earlier than the minimum supported edition")

	// ErrEditionAboveMax indicates an edition later than the maximum edition
	// of a compiled defaults table.
	ErrEditionAboveMax = errors.New("edition is later than the maximum supported edition")

	// ErrDefaultsNotMonotone indicates a defaults table whose rows are not in
	// strictly increasing edition order. Such a table is corrupt: it cannot
	// have been produced by [CompileDefaults].
	ErrDefaultsNotMonotone = errors.New("feature set defaults are not strictly increasing")

	// ErrUnknownEnumValue indicates that a merged feature resolved to an
	// enum's zero value, which is reserved to mean "unknown".
	ErrUnknownEnumValue = errors.New("feature resolved to unknown enum value")
)
