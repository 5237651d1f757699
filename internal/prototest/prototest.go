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

// Package prototest contains test helpers for comparing and rendering
// feature messages and compiled defaults tables.
package prototest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/protocolbuffers/protoscope"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
)

// RequireFeaturesEqual fails the test if want and got differ. When wire is
// non-nil it is the serialized form got was decoded from, and a protoscope
// rendering of it is included in the failure for debugging.
func RequireFeaturesEqual(t *testing.T, want, got proto.Message, wire []byte) {
	t.Helper()
	diff := cmp.Diff(want, got, protocmp.Transform())
	if diff == "" {
		return
	}
	if wire != nil {
		t.Fatalf("features mismatch (-want +got):\n%v\nwire:\n%s", diff, DumpWire(wire))
	}
	t.Fatalf("features mismatch (-want +got):\n%v", diff)
}

// DumpWire renders serialized message bytes as protoscope text.
func DumpWire(wire []byte) string {
	return protoscope.Write(wire, protoscope.WriterOptions{})
}
