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
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/robtaylor/karuta/pkg/backend"
	"github.com/robtaylor/karuta/pkg/config"
	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/synth"
	"github.com/robtaylor/karuta/pkg/vm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Formats in which a design can be written.
const (
	FORMAT_SEXP = "sexp"
	FORMAT_CBOR = "cbor"
)

var synthCmd = &cobra.Command{
	Use:   "synth [flags] listing_file",
	Short: "synthesize a design from a bytecode listing.",
	Long: `Synthesize the top-level object of a bytecode listing into a design, which is
	 written to a file and, optionally, handed to the backend to generate HDL.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			cfg    = setup(cmd)
			format = GetString(cmd, "format")
			output = GetString(cmd, "output")
			hdls   = GetStringArray(cmd, "hdl")
			passes = GetStringArray(cmd, "opt")
		)
		//
		if format != FORMAT_SEXP && format != FORMAT_CBOR {
			fmt.Printf("unknown format \"%s\"\n", format)
			os.Exit(2)
		} else if format == FORMAT_CBOR && (len(hdls) > 0 || len(passes) > 0) {
			fmt.Println("the backend requires the sexp format")
			os.Exit(2)
		}
		//
		machine, root := ReadProgram(args[0])
		design := synthesize(cfg, machine, root)
		//
		if output == "" {
			output = defaultOutput(args[0], format)
		}
		//
		output = cfg.OutputPath(output)
		//
		if err := writeDesignFile(output, format, design); err != nil {
			fmt.Println(err)
			os.Exit(3)
		}
		//
		runner := backend.NewRunner(cfg.Backend.Path, cfg.SearchDirPaths())
		runner.Marker = cfg.Output.Marker
		//
		for _, pass := range passes {
			if err := runner.Optimize(output, pass); err != nil {
				log.Error(err)
				os.Exit(5)
			}
		}
		//
		for _, hdl := range hdls {
			if err := runner.WriteHdl(output, cfg.OutputPath(hdl)); err != nil {
				log.Error(err)
				os.Exit(5)
			}
		}
	},
}

// Synthesize a design, or report the failure and exit.
func synthesize(cfg *config.Config, machine *vm.VM, root *vm.Object) *iroha.Design {
	opts := synth.Options{MaxInlineDepth: cfg.Synth.MaxInlineDepth}
	//
	log.Debug("synthesize start")
	//
	design, err := synth.NewDesignSynth(machine, root, opts).Synth()
	//
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	//
	log.Debug("synthesize done")
	//
	return design
}

// Name of the design file written for a given listing, when none is specified.
func defaultOutput(listing string, format string) string {
	var (
		base = filepath.Base(listing)
		ext  = ".iroha"
	)
	//
	if format == FORMAT_CBOR {
		ext = ".cbor"
	}
	//
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

func writeDesignFile(filename string, format string, design *iroha.Design) error {
	var buf bytes.Buffer
	//
	if err := writeDesign(&buf, format, design); err != nil {
		return err
	}
	//
	log.Debugf("writing %s", filename)
	//
	return os.WriteFile(filename, buf.Bytes(), 0o644)
}

func writeDesign(w io.Writer, format string, design *iroha.Design) error {
	switch format {
	case FORMAT_SEXP:
		return iroha.Write(w, design)
	case FORMAT_CBOR:
		data, err := iroha.MarshalSnapshot(design)
		//
		if err == nil {
			_, err = w.Write(data)
		}
		//
		return err
	}
	//
	return fmt.Errorf("unknown format %s", format)
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(synthCmd)
	synthCmd.Flags().StringP("output", "o", "", "specify design output file.")
	synthCmd.Flags().String("format", FORMAT_SEXP, "format of design output file (sexp or cbor).")
	synthCmd.Flags().StringArray("hdl", []string{}, "generate HDL file(s) with the backend (.v, .html, .cc or .iroha).")
	synthCmd.Flags().StringArray("opt", []string{}, "run optimisation pass(es) on the design with the backend.")
	synthCmd.Flags().String("backend", config.DEFAULT_BACKEND, "backend executable.")
	synthCmd.Flags().String("output-dir", "", "directory for generated files.")
	synthCmd.Flags().Uint("max-inline-depth", config.DEFAULT_MAX_INLINE_DEPTH, "maximum depth of inlined calls.")
}
