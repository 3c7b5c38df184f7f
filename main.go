package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	platform "github.com/ducbang/OpenNIC-Wizard/dns/platform"
	"github.com/ducbang/OpenNIC-Wizard/logger"
	"github.com/ducbang/OpenNIC-Wizard/switcher"
)

var version = "version_replaceme"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "opennic-resolver",
		Short:         "Point the system resolver at OpenNIC servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runService,
	}
	BindFlags(root.PersistentFlags())
	root.Flags().Bool("show-config", false, "Show configuration sources and exit")

	root.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the system resolver configuration",
			Args:  cobra.NoArgs,
			RunE:  runShow,
		},
		&cobra.Command{
			Use:   "set ADDR...",
			Short: "Replace the system resolver list",
			Args:  cobra.MinimumNArgs(1),
			RunE:  runSet,
		},
		&cobra.Command{
			Use:   "bootstrap",
			Short: "Print the bootstrap file locations",
			Args:  cobra.NoArgs,
			RunE:  runBootstrap,
		},
		&cobra.Command{
			Use:   "restore",
			Short: "Put back the resolver configuration saved at startup",
			Args:  cobra.NoArgs,
			RunE:  runRestore,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "opennic-resolver version "+version)
			},
		},
	)

	return root
}

// setup loads the configuration and creates the resolver backend it describes.
func setup(cmd *cobra.Command) (*Config, platform.ResolverSystem, error) {
	logger.Init(cmd.ErrOrStderr())

	config, err := LoadConfig(cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.GetLogger().SetLevel(logger.ParseLevel(config.LogLevel))

	system, err := platform.New(platform.Options{
		Storage:            newStorage(config),
		BootstrapStorage:   platform.NewOSStorage(),
		ResolvConfPath:     config.ResolvConf,
		BackupPath:         config.BackupPath,
		BootstrapOverrides: config.BootstrapOverrides(),
	})
	if err != nil {
		return nil, nil, err
	}

	return config, system, nil
}

// newStorage returns the real filesystem, or an in-memory copy of the resolver
// file when simulating. Bootstrap lookups always use the real filesystem.
func newStorage(config *Config) platform.Storage {
	if !config.Simulate {
		return platform.NewOSStorage()
	}

	storage := platform.NewMemoryStorage()
	if data, err := os.ReadFile(config.ResolvConf); err == nil {
		storage.Put(config.ResolvConf, string(data))
	}
	logger.Info("Simulating: %s will not be modified", config.ResolvConf)
	return storage
}

func runService(cmd *cobra.Command, _ []string) error {
	if show, _ := cmd.Flags().GetBool("show-config"); show {
		config, err := LoadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		config.ShowConfig(cmd.OutOrStdout())
		return nil
	}

	config, system, err := setup(cmd)
	if err != nil {
		return err
	}
	logger.Info("opennic-resolver version " + version)

	// Create a context that will be cancelled on interrupt signals
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return switcher.Run(ctx, system, switcher.Config{
		LogLevel:   config.LogLevel,
		EnableAPI:  config.EnableAPI,
		HTTPAddr:   config.HTTPAddr,
		SocketPath: config.SocketPath,
		Version:    version,
		Servers:    config.Servers,
	})
}

func runShow(cmd *cobra.Command, _ []string) error {
	_, system, err := setup(cmd)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), system.GetSystemResolverList())
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	_, system, err := setup(cmd)
	if err != nil {
		return err
	}

	applied, err := platform.ApplyResolvers(cmd.Context(), system, args)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("no resolver could be written to %s", system.Name())
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.Join(applied, "\n"))
	return nil
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	_, system, err := setup(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "t1:      %s\n", system.BootstrapT1Path())
	fmt.Fprintf(out, "domains: %s\n", system.BootstrapDomainsPath())
	return nil
}

func runRestore(cmd *cobra.Command, _ []string) error {
	config, system, err := setup(cmd)
	if err != nil {
		return err
	}

	if err := system.Restore(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", config.ResolvConf, config.BackupPath)
	return nil
}
