package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/wellspring/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print buildings, upgrades and events",
		Run: func(cmd *cobra.Command, args []string) {
			printCatalog()
		},
	}
}

func printCatalog() {
	titleColor := color.New(color.FgCyan, color.Bold)

	titleColor.Println("Buildings")
	buildings := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Name", "Type", "Base Cost", "Production", "Pollution"}),
	)
	for _, b := range catalog.Buildings() {
		_ = buildings.Append([]string{
			string(b.ID), b.Name, string(b.Type),
			"$" + humanize.Commaf(b.BaseCost),
			fmt.Sprintf("%g", b.BaseProduction),
			fmt.Sprintf("%+g", b.BasePollution),
		})
	}
	_ = buildings.Render()
	fmt.Println()

	titleColor.Println("Research")
	upgrades := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Name", "Cost", "Unlocks When", "Effect"}),
	)
	for _, u := range catalog.Upgrades() {
		_ = upgrades.Append([]string{
			string(u.ID), u.Name,
			"$" + humanize.Commaf(u.Cost),
			describeCondition(u.Trigger),
			u.Description,
		})
	}
	_ = upgrades.Render()
	fmt.Println()

	titleColor.Println("Events")
	events := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Title", "Effect"}),
	)
	for _, e := range catalog.Events() {
		_ = events.Append([]string{string(e.ID), e.Title, e.Describe(e.Amount)})
	}
	_ = events.Render()
}

func describeCondition(c catalog.Condition) string {
	switch c.Kind {
	case catalog.BuildingCountAtLeast:
		return fmt.Sprintf("%s ≥ %g", c.Building, c.Threshold)
	case catalog.MoneyAtLeast:
		return fmt.Sprintf("money ≥ $%s", humanize.Commaf(c.Threshold))
	case catalog.CleanWaterAbove:
		return fmt.Sprintf("clean water > %g", c.Threshold)
	case catalog.PollutionAtLeast:
		return fmt.Sprintf("pollution ≥ %g%%", c.Threshold)
	default:
		return strings.ToLower(string(c.Kind))
	}
}
