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
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/robtaylor/karuta/pkg/config"
	"github.com/robtaylor/karuta/pkg/loader"
	"github.com/robtaylor/karuta/pkg/sexp"
	"github.com/robtaylor/karuta/pkg/vm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or panic if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned integer, or panic if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string, or panic if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetStringArray gets an expected string array, or panic if an error arises.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Configure the log level and read the configuration for a given command.
// Flags take precedence over the configuration file.
func setup(cmd *cobra.Command) *config.Config {
	var (
		cfg  *config.Config
		err  error
		path = GetString(cmd, "config")
	)
	// Configure log level
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
	//
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	if cmd.Flags().Lookup("backend") != nil && cmd.Flags().Changed("backend") {
		cfg.Backend.Path = GetString(cmd, "backend")
	}
	//
	if cmd.Flags().Lookup("output-dir") != nil && cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir = GetString(cmd, "output-dir")
	}
	//
	if cmd.Flags().Lookup("max-inline-depth") != nil && cmd.Flags().Changed("max-inline-depth") {
		cfg.Synth.MaxInlineDepth = GetUint(cmd, "max-inline-depth")
	}
	//
	log.Debugf("using backend %s", cfg.Backend.Path)
	//
	return cfg
}

// ReadProgram reads a bytecode listing, or prints any syntax errors and exits.
func ReadProgram(filename string) (*vm.VM, *vm.Object) {
	log.Debug(fmt.Sprintf("reading listing %s", filename))
	// Read source file
	bytes, err := os.ReadFile(filename)
	// Sanity check for errors
	if err != nil {
		fmt.Println(err)
		os.Exit(3)
	}
	//
	machine, root, serr := loader.Load(sexp.NewSourceFile(filename, bytes))
	//
	if serr != nil {
		fmt.Print(formatSyntaxError(serr))
		os.Exit(4)
	}
	//
	return machine, root
}

// Format a syntax error with appropriate highlighting.
func formatSyntaxError(err *sexp.SyntaxError) string {
	var (
		builder    strings.Builder
		span       = err.Span()
		line       = err.FirstEnclosingLine()
		lineOffset = span.Start() - line.Start()
	)
	// Calculate length (ensures don't overflow line)
	length := max(min(line.Length()-lineOffset, span.Length()), 1)
	// Print error + line number
	fmt.Fprintf(&builder, "%s:%d:%d-%d %s\n", err.SourceFile().Filename(),
		line.Number(), 1+lineOffset, 1+lineOffset+length, err.Message())
	// Print separator line
	builder.WriteString("\n")
	// Print line
	builder.WriteString(line.String())
	builder.WriteString("\n")
	// Print indent (todo: account for tabs)
	builder.WriteString(strings.Repeat(" ", lineOffset))
	// Print highlight
	builder.WriteString(strings.Repeat("^", length))
	builder.WriteString("\n")
	//
	return builder.String()
}
