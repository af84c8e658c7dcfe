package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/config"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/identity"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/index"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/store"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/view"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/intel/workflow"
	"github.com/seymourandrew3mx-68/CybercrimeInfra-FHE/internal/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "cintel",
	Short: "Multi-party encrypted crime-intelligence registry",
	Long: `cintel is a registry for encrypted cybercrime-infrastructure
intelligence shared between agencies.

Records are submitted as opaque ciphertext, tracked through a
pending/analyzed/actioned workflow, and listed through a read view that
tolerates partial ledger failures. The ledger backend (memory, redis,
sqlite, etcd) is selected in cintel.yaml or via CINTEL_* environment
variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./cintel.yaml, ~/.config/cintel/cintel.yaml)")
	rootCmd.PersistentFlags().String("actor", "", "acting identity (default: $CINTEL_ACTOR, config, OS user)")
	rootCmd.PersistentFlags().String("namespace", "", "ledger key namespace (overrides config)")
}

// app bundles everything a command needs against one ledger connection.
// Commands build it with newApp and must defer Close.
type app struct {
	cfg     *config.Config
	actor   string
	client  ledger.Client
	store   *store.Store
	index   *index.Manager
	engine  *workflow.Engine
	builder *view.Builder
	logger  *log.Logger
}

// newApp loads config, resolves the actor, opens the ledger, and wires
// the registry components.
func newApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	if ns, _ := cmd.Flags().GetString("namespace"); ns != "" {
		cfg.Namespace = ns
	}

	actorFlag, _ := cmd.Flags().GetString("actor")
	actor, err := identity.Resolve(actorFlag, cfg.Actor)
	if err != nil {
		return nil, err
	}

	client, err := ledger.Open(cfg.LedgerConfig())
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger("[cintel] ")
	retry := cfg.RetryPolicy()

	st := store.New(client, cfg.Namespace)

	idxCfg := index.DefaultConfig()
	idxCfg.Namespace = cfg.Namespace
	idxCfg.Logger = logger
	idxCfg.Retry = retry
	idx := index.New(client, idxCfg)

	policy := workflow.DefaultPolicy()
	if cfg.PolicyFile != "" {
		policy, err = workflow.LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			idx.Close()
			_ = client.Close()
			return nil, err
		}
	}

	engine := workflow.New(st, idx, workflow.Config{
		Policy: &policy,
		Retry:  retry,
		Logger: logger,
	})
	builder := view.New(st, idx, view.Config{Logger: logger})

	return &app{
		cfg:     cfg,
		actor:   actor,
		client:  client,
		store:   st,
		index:   idx,
		engine:  engine,
		builder: builder,
		logger:  logger,
	}, nil
}

// Close releases the ledger connection and the index coordinator.
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.logger.Printf("error closing index: %v", err)
	}
	if err := a.client.Close(); err != nil {
		a.logger.Printf("error closing ledger: %v", err)
	}
}
