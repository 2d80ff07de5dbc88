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
	"io"
	"os"
	"path/filepath"

	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/robtaylor/karuta/pkg/vm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] file",
	Short: "print the contents of a bytecode listing or design snapshot.",
	Long: `Print the instructions and registers of every method in a bytecode listing or,
	 given a CBOR design snapshot (.cbor), print the design in its textual form.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Configure log level
		if GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		if filepath.Ext(args[0]) == ".cbor" {
			dumpSnapshot(args[0])
			return
		}
		//
		machine, _ := ReadProgram(args[0])
		dumpObjects(os.Stdout, machine)
	},
}

func dumpSnapshot(filename string) {
	bytes, err := os.ReadFile(filename)
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(3)
	}
	//
	design, err := iroha.UnmarshalSnapshot(bytes)
	//
	if err == nil {
		err = iroha.Write(os.Stdout, design)
	}
	//
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
}

// Write every method of every plain object.
func dumpObjects(w io.Writer, machine *vm.VM) {
	for _, obj := range machine.Objects() {
		if obj.Kind != vm.PLAIN {
			continue
		}
		//
		for _, method := range obj.Methods() {
			if method.IsBuiltin() {
				continue
			}
			//
			fmt.Fprintf(w, "%s.%s\n", obj.Name, method.Name)
			fmt.Fprint(w, method.String())
		}
	}
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(dumpCmd)
}
