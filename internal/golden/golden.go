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

// Package golden provides a framework for writing file-based golden tests.
//
// The primary entry-point is [Corpus]. Define a new corpus in an ordinary Go
// test body and call [Corpus.Run] to execute it.
//
// Corpora can be "refreshed" automatically to update the golden test corpus
// with new data generated by the test instead of comparing it. To do this,
// run the test with the environment variable that [Corpus].Refresh names set
// to a file glob for all test files to regenerate expectations for.
package golden

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
)

// A Corpus describes a test data corpus. This is essentially a way for doing
// table-driven tests where the "table" is in your file system.
type Corpus struct {
	// The root of the test data directory, relative to the package directory
	// of the test that calls [Corpus.Run].
	Root string

	// An environment variable to check with regards to whether to run in
	// "refresh" mode or not.
	Refresh string

	// The file extensions (without a dot) of files which define a test case.
	Extensions []string

	// Possible outputs of the test, found at the test file's path suffixed
	// with the output's extension. A missing output file is treated as an
	// expected empty string.
	Outputs []Output
}

// An Output is one expected output of a golden test case.
type Output struct {
	// The extension (without a dot) appended to the test file's path to name
	// the file holding this output.
	Extension string
}

// Run executes a golden test.
//
// The test function executes a single test case in the corpus and writes the
// results to the entries of outputs, which will be the same length as
// Corpus.Outputs.
func (c Corpus) Run(t *testing.T, test func(t *testing.T, path, text string, outputs []string)) {
	var tests []string
	err := filepath.Walk(c.Root, func(path string, info fs.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		for _, extension := range c.Extensions {
			if strings.HasSuffix(path, "."+extension) {
				tests = append(tests, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal("golden: error while walking testdata:", err)
	}

	var refresh string
	if c.Refresh != "" {
		refresh = os.Getenv(c.Refresh)
		if !doublestar.ValidatePattern(refresh) {
			t.Fatalf("golden: invalid glob %q in %s", refresh, c.Refresh)
		}
	}
	if refresh != "" {
		t.Logf("golden: refreshing test data because %s=%s", c.Refresh, refresh)
		t.Fail()
	}

	for _, path := range tests {
		name, _ := filepath.Rel(c.Root, path)
		name = filepath.ToSlash(name)
		t.Run(name, func(t *testing.T) {
			input, err := os.ReadFile(path)
			if err != nil {
				t.Fatal("golden: error while reading test case:", err)
			}

			outputs := make([]string, len(c.Outputs))
			test(t, path, string(input), outputs)

			for i, output := range c.Outputs {
				outputPath := path + "." + output.Extension
				if refresh != "" {
					if ok, _ := doublestar.Match(refresh, filepath.ToSlash(path)); !ok {
						continue
					}
					if err := os.WriteFile(outputPath, []byte(outputs[i]), 0o600); err != nil {
						t.Error("golden: error while refreshing output:", err)
					}
					continue
				}

				var want string
				if data, err := os.ReadFile(outputPath); err == nil {
					want = string(data)
				} else if !os.IsNotExist(err) {
					t.Error("golden: error while reading output:", err)
					continue
				}
				if want == outputs[i] {
					continue
				}
				diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
					A:        difflib.SplitLines(want),
					B:        difflib.SplitLines(outputs[i]),
					FromFile: outputPath,
					ToFile:   "got",
					Context:  2,
				})
				if err != nil {
					diff = "<diff failed: " + err.Error() + ">"
				}
				t.Errorf("golden: output mismatch for %s:\n%s", outputPath, diff)
			}
		})
	}
}
