package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/wellspring/internal/catalog"
	"github.com/talgya/wellspring/internal/engine"
	"github.com/talgya/wellspring/internal/entropy"
	"github.com/talgya/wellspring/internal/persistence"
)

var (
	simTicks     int
	simSeed      int64
	simPlan      string
	simSession   string
	simHands     bool
	simStopEarly bool
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a session headless for N ticks and print the outcome",
		Long: `Runs a session without the server. The purchase plan is a comma-separated
list of building and upgrade ids bought in order as soon as they are affordable.`,
		Example: "  wellspring simulate --ticks 2000 --plan pump,pump,purifier,bottler,efficientPumps --hands",
		RunE:    runSimulate,
	}
	cmd.Flags().IntVarP(&simTicks, "ticks", "t", 500, "Number of ticks to run")
	cmd.Flags().Int64VarP(&simSeed, "seed", "s", 42, "Random seed for events")
	cmd.Flags().StringVarP(&simPlan, "plan", "p", "", "Comma-separated purchase plan")
	cmd.Flags().StringVar(&simSession, "session", "", "Load this session from the store and save it back afterwards")
	cmd.Flags().BoolVar(&simHands, "hands", false, "Collect, purify and sell by hand every tick")
	cmd.Flags().BoolVar(&simStopEarly, "stop-on-game-over", true, "Stop when the game is lost")
	return cmd
}

// planStep is one purchase in a plan.
type planStep struct {
	action engine.Action
}

func parsePlan(plan string) ([]planStep, error) {
	var steps []planStep
	for _, raw := range strings.Split(plan, ",") {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := catalog.LookupBuilding(catalog.BuildingID(id)); ok {
			steps = append(steps, planStep{engine.Action{Kind: engine.BuyBuilding, Target: id}})
			continue
		}
		if _, ok := catalog.LookupUpgrade(catalog.UpgradeID(id)); ok {
			steps = append(steps, planStep{engine.Action{Kind: engine.BuyUpgrade, Target: id}})
			continue
		}
		known := append(catalog.BuildingIDs(), catalog.UpgradeIDs()...)
		if hint := catalog.Suggest(id, known); hint != "" {
			return nil, fmt.Errorf("unknown plan item %q (did you mean %q?)", id, hint)
		}
		return nil, fmt.Errorf("unknown plan item %q", id)
	}
	return steps, nil
}

// simResult summarizes a headless run.
type simResult struct {
	Ticks     int
	Bought    int
	Events    int
	Remaining []planStep
}

// simulate ticks sess up to n times, buying plan items in order as they become
// affordable. The fake clock advances one interval per tick so event expiry
// follows game time.
func simulate(sess *engine.Session, clock *engine.FakeClock, interval time.Duration, plan []planStep, n int, hands, stopOnGameOver bool) simResult {
	var res simResult
	for res.Ticks < n {
		for len(plan) > 0 {
			applied, err := sess.Dispatch(plan[0].action)
			if err != nil || !applied {
				break
			}
			plan = plan[1:]
			res.Bought++
		}
		if hands {
			for _, kind := range []engine.ActionKind{engine.ManualCollect, engine.PurifyWater, engine.SellCleanWater} {
				_, _ = sess.Dispatch(engine.Action{Kind: kind})
			}
		}

		tr := sess.Tick()
		res.Ticks++
		if tr.Event != nil {
			res.Events++
		}
		clock.Advance(interval)
		sess.ExpireEvent()

		if stopOnGameOver && sess.Snapshot().GameOver {
			break
		}
	}
	res.Remaining = plan
	return res
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging("warn")

	plan, err := parsePlan(simPlan)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st := engine.NewState()
	var store persistence.Store
	if simSession != "" {
		store, err = persistence.Open(ctx, persistence.Options{
			Driver:      cfg.Storage.Driver,
			SQLitePath:  cfg.Storage.SQLitePath,
			PostgresDSN: cfg.Storage.PostgresDSN,
		})
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer store.Close()

		loaded, err := persistence.LoadExisting(ctx, store, simSession)
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			color.Yellow("Session %s not in store, starting fresh", simSession)
		case err != nil:
			color.Yellow("Warning: could not load session %s, starting fresh: %v", simSession, err)
		default:
			st = loaded
		}
	}

	clock := engine.NewFakeClock(time.Unix(0, 0))
	id := simSession
	if id == "" {
		id = "simulation"
	}
	sess := engine.NewSession(id, st, engine.SessionOptions{
		RNG:      entropy.Derive(simSeed, id),
		Clock:    clock,
		EventTTL: cfg.Sim.EventTTL,
	})

	start := time.Now()
	res := simulate(sess, clock, cfg.Sim.TickInterval, plan, simTicks, simHands, simStopEarly)
	elapsed := time.Since(start)

	if store != nil {
		if err := store.Save(ctx, sess.ID, sess.State()); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		if err := store.RecordEvents(ctx, sess.ID, sess.DrainEvents()); err != nil {
			return fmt.Errorf("record events: %w", err)
		}
	}

	printSimSummary(sess.Snapshot(), res, elapsed)
	return nil
}

func printSimSummary(snap engine.Snapshot, res simResult, elapsed time.Duration) {
	titleColor := color.New(color.FgCyan, color.Bold)
	successColor := color.New(color.FgGreen, color.Bold)
	errorColor := color.New(color.FgRed, color.Bold)
	infoColor := color.New(color.FgYellow)

	fmt.Println()
	titleColor.Printf("═══ Simulation: %s ═══\n", snap.SessionID)
	fmt.Printf("Ran %d ticks (day %d) in %v, %d purchases, %d events\n",
		res.Ticks, snap.Stats.Day, elapsed.Round(time.Millisecond), res.Bought, res.Events)

	fmt.Printf("Money:          $%s\n", humanize.Commaf(float64(int64(snap.Resources.Money))))
	fmt.Printf("Polluted water: %s\n", humanize.FormatFloat("#,###.##", snap.Resources.PollutedWater))
	fmt.Printf("Clean water:    %s\n", humanize.FormatFloat("#,###.##", snap.Resources.CleanWater))
	fmt.Printf("Aquifer:        %.2f%%\n", snap.Stats.AquiferLevel)
	fmt.Printf("Pollution:      %.2f%%\n", snap.Stats.PollutionLevel)
	fmt.Printf("Eco score:      %.1f\n", snap.Stats.EcoScore)
	fmt.Printf("Forecast:       %s\n", snap.Stats.Forecast)

	if snap.GameOver {
		errorColor.Printf("GAME OVER: %s\n", snap.GameOverReason)
	} else {
		successColor.Println("The utility is still running.")
	}

	if len(snap.Upgrades.Purchased) > 0 {
		names := make([]string, 0, len(snap.Upgrades.Purchased))
		for _, id := range snap.Upgrades.Purchased {
			names = append(names, string(id))
		}
		infoColor.Printf("Researched: %s\n", strings.Join(names, ", "))
	}
	if len(res.Remaining) > 0 {
		infoColor.Printf("Plan items not reached: %d (next: %s)\n", len(res.Remaining), res.Remaining[0].action.Target)
	}
	fmt.Println()

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Building", "Owned", "Next Cost", "Production", "Pollution"}),
	)
	for _, b := range snap.Buildings {
		_ = table.Append([]string{
			b.Name,
			fmt.Sprintf("%d", b.Count),
			"$" + humanize.Commaf(b.Cost),
			fmt.Sprintf("%.2f", b.ProductionRate),
			fmt.Sprintf("%+.3f", b.PollutionRate),
		})
	}
	_ = table.Render()
}
