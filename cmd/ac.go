/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/notargets/gosemi/InputParameters"
	"github.com/notargets/gosemi/solver"
	"github.com/spf13/cobra"
)

// ACCmd represents the ac command
var ACCmd = &cobra.Command{
	Use:   "ac",
	Short: "Assemble the small signal matrix of a device",
	Long: `
Fills the doubled real form of the complex small signal matrix around the
initial solution, at the deck frequency or the one given with --freq,

gosemi ac -I deck.yaml [--freq Hz] [--ranks n]`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			dk   *InputParameters.DeviceDeck
			ev   *solver.Evaluator
			x    []float64
			freq float64
			res  solver.ACResult
		)
		if dk, ev, x, err = setup(cmd); err != nil {
			return
		}
		if freq, err = cmd.Flags().GetFloat64("freq"); err != nil {
			return
		}
		omega := dk.Omega()
		if freq > 0 {
			omega = 2 * math.Pi * freq
		}
		if res, err = ev.AC(context.Background(), x, omega); err != nil {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: omega %g rad/s\n", dk.Title, omega)
		PrintAC(cmd.OutOrStdout(), res)
		return
	},
}

func init() {
	rootCmd.AddCommand(ACCmd)
	addDeckFlags(ACCmd)
	ACCmd.Flags().Float64P("freq", "f", 0, "small signal frequency in Hz, overrides the deck when positive")
}
