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
	"cmp"
	"strings"
)

// CompareEditions compares two edition identifiers, returning a negative
// number if a is earlier than b, zero if they are the same edition, and a
// positive number if a is later than b.
//
// An edition identifier is a dotted string such as "2023" or "2023.1". The
// identifiers are split on '.' and compared component-wise. For each pair of
// components, a shorter component orders before a longer one; components of
// equal length compare lexicographically. If one identifier is a prefix of
// the other, the one with fewer components is earlier. Length dominating
// lexicographic order is what makes "9" earlier than "10" and "2023.2"
// earlier than "2023.10".
//
// Every sort, search, and bounds check over editions in this package uses
// this single comparison.
func CompareEditions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if n := cmp.Compare(len(as[i]), len(bs[i])); n != 0 {
			return n
		}
		if n := strings.Compare(as[i], bs[i]); n != 0 {
			return n
		}
	}
	return cmp.Compare(len(as), len(bs))
}

// editionLess is CompareEditions as a strict less-than, in the shape the
// btree and sort APIs want.
func editionLess(a, b string) bool {
	return CompareEditions(a, b) < 0
}
