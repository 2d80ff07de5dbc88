// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package backend

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/robtaylor/karuta/pkg/util/assert"
)

func Test_Language_01(t *testing.T) {
	assert.Equal(t, LANG_VERILOG, Language("top.v"))
	assert.Equal(t, LANG_HTML, Language("top.html"))
	assert.Equal(t, LANG_CC, Language("top.cc"))
	assert.Equal(t, LANG_IR, Language("top.iroha"))
	assert.Equal(t, LANG_VERILOG, Language("top"))
}

func Test_Runner_01(t *testing.T) {
	var (
		out    bytes.Buffer
		runner = newRecorder(&out, "iroha", "lib", "/usr/lib/iroha")
		calls  = recordCalls(runner, nil)
	)
	//
	runner.Marker = "OUTPUT:"
	//
	assert.NoError(t, runner.WriteHdl("/tmp/a.iroha", "top.v"))
	assert.Equal(t, [][]string{{"iroha", "--iroha", "-I", "lib", "-I", "/usr/lib/iroha", "/tmp/a.iroha", "-v", "-s", "-o", "top.v"}},
		*calls)
	assert.Equal(t, "OUTPUT:top.v\n", out.String())
}

func Test_Runner_02(t *testing.T) {
	runner := newRecorder(io.Discard, "iroha")
	calls := recordCalls(runner, nil)
	// Rewriting the design passes no language flag
	assert.NoError(t, runner.WriteHdl("a.iroha", "b.iroha"))
	assert.Equal(t, [][]string{{"iroha", "--iroha", "a.iroha", "-s", "-o", "b.iroha"}}, *calls)
}

func Test_Runner_03(t *testing.T) {
	var out bytes.Buffer
	//
	runner := newRecorder(&out, "iroha")
	runner.Marker = "OUTPUT:"
	recordCalls(runner, errors.New("exit status 1"))
	//
	err := runner.WriteHdl("a.iroha", "top.v")
	assert.ErrorContains(t, err, "backend iroha failed: exit status 1")
	// No marker for a failed run
	assert.Equal(t, "", out.String())
}

func Test_Runner_04(t *testing.T) {
	dir := t.TempDir()
	ir := filepath.Join(dir, "a.iroha")
	//
	assert.NoError(t, os.WriteFile(ir, []byte("old"), 0o644))
	//
	runner := newRecorder(io.Discard, "iroha")
	runner.Exec = func(_ io.Writer, _ io.Writer, name string, args ...string) error {
		// Emulate the backend writing its output file
		return os.WriteFile(args[len(args)-1], []byte("new"), 0o644)
	}
	//
	assert.NoError(t, runner.Optimize(ir, "wire_insn"))
	//
	data, err := os.ReadFile(ir)
	assert.NoError(t, err)
	assert.Equal(t, "new", string(data))
	//
	_, err = os.Stat(ir + "~")
	assert.True(t, os.IsNotExist(err))
}

func Test_Runner_05(t *testing.T) {
	runner := newRecorder(io.Discard, "")
	assert.ErrorContains(t, runner.Run("a.iroha"), "no backend configured")
}

func newRecorder(out io.Writer, path string, dirs ...string) *Runner {
	runner := NewRunner(path, dirs)
	runner.Stdout = out
	runner.Stderr = io.Discard
	//
	return runner
}

// Replace the executor of a runner with one recording each command line.
func recordCalls(runner *Runner, result error) *[][]string {
	var calls [][]string
	//
	runner.Exec = func(_ io.Writer, _ io.Writer, name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		return result
	}
	//
	return &calls
}
