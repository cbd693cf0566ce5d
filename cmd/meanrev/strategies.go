package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/meanrev/internal/strategy"
	"github.com/quantlab/meanrev/internal/strategy/percentile"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List available strategies",
	Run: func(cmd *cobra.Command, args []string) {
		engine := strategy.NewEngine()
		engine.Register(percentile.New())

		for _, name := range engine.Names() {
			s, _ := engine.Get(name)
			fmt.Printf("%-12s %s\n", name, s.Description())
		}
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
