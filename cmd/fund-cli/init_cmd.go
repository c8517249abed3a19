package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"fundcore/core/genesis"
)

func runInitCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFundFlagSet("init", stderr, initUsage)
	var genesisPath string
	var force bool
	fs.StringVar(&genesisPath, "genesis", "", "path to the genesis document (defaults to the configured file)")
	fs.BoolVar(&force, "force", false, "apply even when the database is already initialised")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}

	env, err := openEnv()
	if err != nil {
		return printCommandError(stderr, err.Error())
	}
	defer env.Close()

	path := strings.TrimSpace(genesisPath)
	if path == "" {
		path = strings.TrimSpace(env.cfg.GenesisFile)
	}
	if path == "" {
		return printCommandError(stderr, "no genesis document: set --genesis or GenesisFile in the config")
	}

	started := time.Now()
	spec, opErr := applyGenesis(env, path, force)
	observeCommand("init", started, opErr)
	if opErr != nil {
		return printCommandError(stderr, opErr.Error())
	}
	env.logger.Info("genesis applied",
		slog.String("operation", "init"),
		slog.String("genesis", path),
		slog.Int("share_classes", len(spec.ShareClasses)),
		slog.Int("investors", len(spec.Investors)),
	)
	writeJSONResult(stdout, struct {
		GenesisTime  string `json:"genesisTime"`
		Governance   int    `json:"governance"`
		ShareClasses int    `json:"shareClasses"`
		Investors    int    `json:"investors"`
	}{
		GenesisTime:  spec.GenesisTime,
		Governance:   len(spec.Governance),
		ShareClasses: len(spec.ShareClasses),
		Investors:    len(spec.Investors),
	})
	return 0
}

func applyGenesis(env *cliEnv, path string, force bool) (*genesis.GenesisSpec, error) {
	orchestrator, err := env.ledger.Orchestrator()
	if err != nil {
		return nil, err
	}
	if orchestrator != ([20]byte{}) && !force {
		return nil, fmt.Errorf("state database already initialised; pass --force to reapply")
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return nil, err
	}
	if err := genesis.ApplyGenesisSpec(spec, env.manager); err != nil {
		return nil, err
	}
	return spec, nil
}

func initUsage() string {
	return strings.TrimSpace(`Usage:
  fund-cli init [--genesis path] [--force]

Loads the genesis document, validates it and seeds governance roles, the
orchestrator identity, share classes and investor records in one atomic
write. Without --force the command refuses a database that already has an
orchestrator configured.`)
}
