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
	"strconv"

	"github.com/pterm/pterm"
	"github.com/robtaylor/karuta/pkg/iroha"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] listing_file",
	Short: "summarize the design synthesized from a bytecode listing.",
	Long: `Synthesize a bytecode listing and print, for each table of the resulting design,
	 the number of states, instructions, registers and resources it holds.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := setup(cmd)
		machine, root := ReadProgram(args[0])
		design := synthesize(cfg, machine, root)
		//
		rows := fitColumns(summarize(design), terminalWidth())
		table, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		fmt.Println(table)
		fmt.Printf("%d modules, %d channels\n", len(design.Modules), len(design.Channels))
	},
}

// Width of the attached terminal, or zero if there is none.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	//
	if !term.IsTerminal(fd) {
		return 0
	}
	//
	width, _, err := term.GetSize(fd)
	//
	if err != nil {
		return 0
	}
	//
	return width
}

// Construct one row (after the header) for each table of a design.
func summarize(design *iroha.Design) pterm.TableData {
	data := pterm.TableData{{"Module", "Table", "States", "Insns", "Registers", "Resources"}}
	//
	for _, mod := range design.Modules {
		for _, tab := range mod.Tables {
			var ninsns int
			//
			for _, st := range tab.States {
				ninsns += len(st.Insns)
			}
			//
			data = append(data, []string{
				mod.Name,
				tab.Name,
				strconv.Itoa(len(tab.States)),
				strconv.Itoa(ninsns),
				strconv.Itoa(len(tab.Registers)),
				strconv.Itoa(len(tab.Resources)),
			})
		}
	}
	//
	return data
}

// Truncate the name columns (the first two) so that rows fit within a given
// width.  A width of zero means unlimited.
func fitColumns(data pterm.TableData, width int) pterm.TableData {
	if width == 0 {
		return data
	}
	// Column widths, plus separators
	var widths = make([]int, len(data[0]))
	//
	for _, row := range data {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	//
	total := 3 * (len(widths) - 1)
	//
	for _, w := range widths {
		total += w
	}
	// Share the excess between the name columns
	excess := total - width
	//
	if excess <= 0 {
		return data
	}
	//
	limits := []int{
		max(widths[0]-excess/2, 4),
		max(widths[1]-(excess-excess/2), 4),
	}
	//
	for _, row := range data {
		for i, limit := range limits {
			row[i] = truncate(row[i], limit)
		}
	}
	//
	return data
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	//
	return s[:n-1] + "~"
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Uint("max-inline-depth", 0, "maximum depth of inlined calls.")
}
