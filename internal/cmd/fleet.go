package cmd

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oeoc/neverstop/internal/fleet"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Work with fleet definition files",
}

var fleetValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a YAML fleet definition",
	Long: `Parse a YAML fleet definition and report every problem found: unknown
keys, duplicate ids, unknown statuses, health scores outside 0-100 and
tasks assigned to agents that do not exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runFleetValidate,
}

var fleetSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Print a generated fleet as YAML",
	Long: `Print the demo fleet as a YAML fleet definition. The output can be edited
and loaded back through fleet.file.`,
	Args: cobra.NoArgs,
	RunE: runFleetSeed,
}

var (
	seedAgents int
	seedValue  uint64
)

func init() {
	fleetSeedCmd.Flags().IntVar(&seedAgents, "agents", fleet.DefaultAgentCount, "number of agents")
	fleetSeedCmd.Flags().Uint64Var(&seedValue, "seed", 1, "random seed")

	rootCmd.AddCommand(fleetCmd)
	fleetCmd.AddCommand(fleetValidateCmd)
	fleetCmd.AddCommand(fleetSeedCmd)
}

func runFleetValidate(cmd *cobra.Command, args []string) error {
	f, err := fleet.LoadFile(args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d agents, %d tasks, %d events)\n",
		args[0], len(f.Agents), len(f.Tasks), len(f.Events))
	return nil
}

func runFleetSeed(cmd *cobra.Command, args []string) error {
	rng := rand.New(rand.NewPCG(seedValue, 1))
	f := fleet.SeedFleet(seedAgents, rng, time.Now().UTC().Truncate(time.Second))

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode fleet: %w", err)
	}
	return enc.Close()
}
