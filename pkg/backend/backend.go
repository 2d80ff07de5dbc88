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
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Flags selecting the language generated by the backend.
const (
	LANG_VERILOG = "-v"
	LANG_HTML    = "-h"
	LANG_CC      = "-c"
	// Rewriting the design itself selects no language.
	LANG_IR = ""
)

// Executor runs an external command to completion.
type Executor func(stdout io.Writer, stderr io.Writer, name string, args ...string) error

// Runner invokes the external backend on a design file which has already been
// written.
type Runner struct {
	// Backend executable.
	Path string
	// Directories passed to the backend with -I.
	SearchDirs []string
	// Marker printed before the name of each generated file (if not empty).
	Marker string
	// Destination of the backend's output and any markers.
	Stdout io.Writer
	Stderr io.Writer
	// Used to run the backend.
	Exec Executor
}

// NewRunner constructs a runner for a given backend executable, which runs it
// as a child process.
func NewRunner(path string, searchDirs []string) *Runner {
	return &Runner{
		Path:       path,
		SearchDirs: searchDirs,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Exec:       execCommand,
	}
}

// Language determines the backend flag for a given output file, based on its
// extension.
func Language(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return LANG_HTML
	case ".cc", ".cpp":
		return LANG_CC
	case ".iroha":
		return LANG_IR
	}
	//
	return LANG_VERILOG
}

// WriteHdl has the backend generate a given output file from a design file.
// The language is chosen by the extension of the output file.
func (p *Runner) WriteHdl(irPath string, ofn string) error {
	var args []string
	//
	if lang := Language(ofn); lang != LANG_IR {
		args = append(args, lang)
	}
	//
	args = append(args, "-s", "-o", ofn)
	//
	if err := p.Run(irPath, args...); err != nil {
		return err
	}
	//
	if p.Marker != "" {
		fmt.Fprintf(p.Stdout, "%s%s\n", p.Marker, ofn)
	}
	//
	return nil
}

// Optimize runs an optimization pass over a design file, replacing it with
// the result.
func (p *Runner) Optimize(irPath string, pass string) error {
	log.Debugf("pass: %s", pass)
	//
	tmp := irPath + "~"
	//
	if err := p.Run(irPath, "-opt", pass, "-o", tmp); err != nil {
		return err
	}
	//
	return os.Rename(tmp, irPath)
}

// Run the backend on a design file, with additional arguments.
func (p *Runner) Run(irPath string, extra ...string) error {
	if p.Path == "" {
		return fmt.Errorf("no backend configured")
	}
	//
	args := p.Args(irPath, extra...)
	//
	log.Debugf("executing %s %s", p.Path, strings.Join(args, " "))
	//
	if err := p.Exec(p.Stdout, p.Stderr, p.Path, args...); err != nil {
		return fmt.Errorf("backend %s failed: %w", p.Path, err)
	}
	//
	return nil
}

// Args returns the command line passed to the backend for a given design file.
func (p *Runner) Args(irPath string, extra ...string) []string {
	args := []string{"--iroha"}
	//
	for _, dir := range p.SearchDirs {
		args = append(args, "-I", dir)
	}
	//
	args = append(args, irPath)
	//
	return append(args, extra...)
}

func execCommand(stdout io.Writer, stderr io.Writer, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	//
	return cmd.Run()
}
