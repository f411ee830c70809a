package cli

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/dcrew44/llm-social-network/internal/admission"
	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/simagent"
	"github.com/dcrew44/llm-social-network/internal/store"
	"github.com/dcrew44/llm-social-network/internal/timeline"
)

// NewSimulateCommand implements `simulate --ticks N --agents M --k K
// --ranking {new,top,hot} --seed S` (§6.2). It drives a run end to end:
// run_started/run_config, then for each tick, every agent is served a
// timeline and proposes actions through Action Admission, then the clock
// advances.
func NewSimulateCommand(opts *RootOptions) *cobra.Command {
	var (
		ticks      int
		agents     int
		k          int
		ranking    string
		seed       int64
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "run a deterministic simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg, err := loadRunConfigFile(configPath)
				if err != nil {
					return WrapExitError(ExitCommandError, "load config", err)
				}
				applyRunConfigFile(cmd, cfg, &ticks, &agents, &k, &ranking, &seed)
			}

			algorithm := domain.RankingAlgorithm(ranking)
			if !algorithm.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("unknown ranking algorithm %q", ranking))
			}

			f := formatter(opts, cmd)
			s, err := store.Open(opts.DBPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "open database", err)
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := runSimulation(ctx, s, ticks, agents, k, algorithm, seed); err != nil {
				return WrapExitError(ExitFailure, "simulate", err)
			}
			return f.Success(map[string]any{
				"ticks": ticks, "agents": agents, "k": k, "ranking": ranking, "seed": seed,
			})
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 10, "number of ticks to simulate")
	cmd.Flags().IntVar(&agents, "agents", 5, "number of agents")
	cmd.Flags().IntVar(&k, "k", 10, "timeline length per agent")
	cmd.Flags().StringVar(&ranking, "ranking", "hot", "ranking algorithm (new|top|hot)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML file of run defaults; explicit flags still take precedence")
	return cmd
}

// applyRunConfigFile overlays cfg onto the flag-backed variables, but
// only where the corresponding flag was not explicitly set on the
// command line — an explicit flag always wins over the config file.
func applyRunConfigFile(cmd *cobra.Command, cfg *RunConfigFile, ticks, agents, k *int, ranking *string, seed *int64) {
	if !cmd.Flags().Changed("ticks") && cfg.Ticks != 0 {
		*ticks = cfg.Ticks
	}
	if !cmd.Flags().Changed("agents") && cfg.Agents != 0 {
		*agents = cfg.Agents
	}
	if !cmd.Flags().Changed("k") && cfg.K != 0 {
		*k = cfg.K
	}
	if !cmd.Flags().Changed("ranking") && cfg.Ranking != "" {
		*ranking = cfg.Ranking
	}
	if !cmd.Flags().Changed("seed") && cfg.Seed != 0 {
		*seed = cfg.Seed
	}
}

func runSimulation(ctx context.Context, s *store.Store, ticks, agentCount, k int, algorithm domain.RankingAlgorithm, seed int64) error {
	runID := domain.DeriveRunID(seed, agentCount, ticks, k, algorithm)

	startedTick, err := s.CurrentTick(ctx)
	if err != nil {
		return err
	}
	runStartedSeq, err := s.Append(ctx, startedTick, domain.KindRunStarted, nil,
		domain.Payload{RunStarted: &domain.RunStartedPayload{RunID: runID, StartedTick: startedTick}})
	if err != nil {
		return err
	}
	if err := s.ApplyEvent(ctx, domain.Event{
		Seq: runStartedSeq, Tick: startedTick, Kind: domain.KindRunStarted,
		Payload: domain.Payload{RunStarted: &domain.RunStartedPayload{RunID: runID, StartedTick: startedTick}},
	}); err != nil {
		return err
	}

	if _, err := s.Append(ctx, startedTick, domain.KindRunConfig, nil, domain.Payload{RunConfig: &domain.RunConfigPayload{
		RunID: runID, Seed: seed, Agents: agentCount, RankingAlgorithm: algorithm, K: k, Ticks: ticks,
	}}); err != nil {
		return err
	}

	agentIDs := make([]string, agentCount)
	roster := make([]*simagent.Agent, agentCount)
	for i := range agentIDs {
		agentIDs[i] = fmt.Sprintf("agent-%d", i)
		roster[i] = simagent.New(simagent.DefaultConfig(agentIDs[i], seed+int64(i)))
	}

	for tick := 0; tick < ticks; tick++ {
		currentTick, err := s.CurrentTick(ctx)
		if err != nil {
			return err
		}
		for _, i := range agentTurnOrder(seed, tick, agentCount) {
			agent := roster[i]
			tl, err := timeline.Serve(ctx, s, agentIDs[i], algorithm, k, seed)
			if err != nil {
				return err
			}
			otherUserID := agentIDs[(i+1)%len(agentIDs)]
			actFn := func(req admission.Request) (*domain.ActionPayload, error) {
				return admission.Act(ctx, s, currentTick, req)
			}
			agent.Turn(actFn, tl, currentTick, otherUserID)
		}
		if _, err := s.AdvanceTick(ctx); err != nil {
			return err
		}
	}
	return nil
}

// agentTurnOrder derives the per-tick seeded permutation of agent roster
// indices that §5 calls for ("agent order is determined by a seeded
// permutation"): a fresh *rand.Rand seeded from the run seed and the tick
// number, so the order varies tick to tick but is fully reproducible for a
// given (seed, tick) pair.
func agentTurnOrder(seed int64, tick, agentCount int) []int {
	r := rand.New(rand.NewSource(seed + int64(tick)))
	return r.Perm(agentCount)
}
