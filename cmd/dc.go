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
	"io/ioutil"
	"os"

	"github.com/notargets/gosemi/InputParameters"
	"github.com/notargets/gosemi/solver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DCCmd represents the dc command
var DCCmd = &cobra.Command{
	Use:   "dc",
	Short: "Assemble the DC residual and Jacobian of a device",
	Long: `
Evaluates the bulk equations and every boundary condition of the deck at the
initial solution and prints the assembled system,

gosemi dc -I deck.yaml [--ranks n]`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			dk *InputParameters.DeviceDeck
			ev *solver.Evaluator
			x  []float64
		)
		if dk, ev, x, err = setup(cmd); err != nil {
			return
		}
		var res solver.DCResult
		if res, err = ev.DC(context.Background(), x); err != nil {
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: residual norm %g\n", dk.Title, res.Norm)
		PrintDC(cmd.OutOrStdout(), res)
		return
	},
}

func init() {
	rootCmd.AddCommand(DCCmd)
	addDeckFlags(DCCmd)
}

func addDeckFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("inputConditionsFile", "I", "", "YAML device deck with regions, nodes, links and BCs")
	cmd.Flags().IntP("ranks", "r", 0, "number of ranks, overrides the deck when positive")
	_ = viper.BindPFlag(cmd.Name()+".ranks", cmd.Flags().Lookup("ranks"))
}

// setup reads the deck named on the command line and builds its evaluator
func setup(cmd *cobra.Command) (dk *InputParameters.DeviceDeck, ev *solver.Evaluator, x []float64, err error) {
	var (
		fileName string
		data     []byte
	)
	if fileName, err = cmd.Flags().GetString("inputConditionsFile"); err != nil {
		return
	}
	if len(fileName) == 0 {
		fmt.Fprintf(cmd.OutOrStderr(), "Example File:%s\n", InputParameters.ExampleDeck)
		err = fmt.Errorf("must supply a device deck (-I, --inputConditionsFile)")
		return
	}
	if data, err = ioutil.ReadFile(fileName); err != nil {
		return
	}
	dk = &InputParameters.DeviceDeck{}
	if err = dk.Parse(data); err != nil {
		return
	}
	if ranks := viper.GetInt(cmd.Name() + ".ranks"); ranks > 0 {
		dk.Ranks = ranks
	}
	if viper.GetBool("verbose") {
		dk.Print(os.Stdout)
	}
	dirs, specs, err := dk.Build(logger)
	if err != nil {
		return
	}
	if ev, err = solver.NewEvaluator(dirs, specs, logger); err != nil {
		return
	}
	x = dirs[0].InitialSolution()
	return
}
