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

// Package protofeatures computes the effective set of schema features that
// apply to a descriptor element at a particular edition.
//
// A schema language that uses editions does not bump a single monolithic
// version number. Instead, individual behaviors are controlled by named
// feature fields whose default values change at well-defined edition
// boundaries. A feature container is a message schema (the base) plus
// message-typed extensions of that base, one per language or tool that
// attaches its own features. Every feature field carries per-edition
// defaults; user schemas may override those defaults explicitly, and
// overrides inherit lexically down the descriptor tree.
//
// The package has three entry points, typically used in sequence:
//
//   - [CompileDefaults] turns a feature container schema and an inclusive
//     edition range into a [FeatureSetDefaults] table, one row per edition at
//     which any feature's default changes.
//   - [NewResolver] binds a compiled table to a single edition, selecting the
//     applicable row.
//   - [Resolver.MergeFeatures] overlays a parent element's effective features
//     and a child element's declared features on top of the edition defaults,
//     producing the child's effective feature set.
//
// Feature container schemas are not known when this package is built, so all
// introspection happens through protoreflect descriptors and instances are
// created dynamically. Where the descriptors' options cannot carry the
// feature annotations themselves, an [AnnotationSource] supplies them out of
// band.
package protofeatures
