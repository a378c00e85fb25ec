// Command sshlogd is the host-local SSH session observability and
// control daemon (spec.md §1). It loads its config and plugin rules,
// binds the IPC socket, and serves requests until terminated.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sshlog/agent/config"
	"github.com/sshlog/agent/daemon"
	"github.com/sshlog/agent/logger"
	"github.com/sshlog/agent/plugin"
	"github.com/sshlog/agent/plugin/action"
	"github.com/sshlog/agent/plugin/filter"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "sshlogd",
		Short: "SSH session observability and control daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "/etc/sshlogd/sshlogd.yaml", "path to the daemon's YAML config file")
	flags.String("pidfile", "/var/run/sshlogd/sshlogd.pid", "path to the daemon's PID lockfile")
	flags.String("logfile", "", "path to a rotating log file (default: stderr only)")
	flags.Bool("debug", false, "enable debug-level logging")
	flags.Bool("enable-diagnostic-web", false, "expose a diagnostics HTTP endpoint")
	flags.String("diagnostic-web-ip", "127.0.0.1", "diagnostics HTTP bind address")
	flags.Int("diagnostic-web-port", 9090, "diagnostics HTTP bind port")
	flags.Bool("enable-session-injection", false, "allow SHELL_SENDKEYS_REQUEST to inject keystrokes into live sessions")

	v.SetEnvPrefix("SSHLOGD")
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return err
	}

	if v.GetString("logfile") != "" {
		cfg.LogFile = v.GetString("logfile")
	}
	if v.GetBool("debug") {
		cfg.Debug = true
	}
	if v.GetBool("enable-diagnostic-web") {
		cfg.EnableDiagnosticWeb = true
	}
	if v.IsSet("diagnostic-web-ip") {
		cfg.DiagnosticWebIP = v.GetString("diagnostic-web-ip")
	}
	if v.IsSet("diagnostic-web-port") {
		cfg.DiagnosticWebPort = v.GetInt("diagnostic-web-port")
	}
	if v.GetBool("enable-session-injection") {
		cfg.EnableSessionInjection = true
	}

	log, err := logger.New(logger.Options{Debug: cfg.Debug, LogFile: cfg.LogFile})
	if err != nil {
		return err
	}

	reg := plugin.NewRegistry()
	filter.Register(reg)
	action.Register(reg, log)

	rules, err := loadPluginDir(cfg.PluginDir, reg)
	if err != nil {
		return err
	}

	d := daemon.New(daemon.Options{
		Config:                  cfg,
		Log:                     log,
		Registry:                reg,
		SessionInjectionEnabled: func() bool { return cfg.EnableSessionInjection },
		LoadRules: func() ([]plugin.Rule, error) {
			return loadPluginDir(cfg.PluginDir, reg)
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		log.Info("sshlogd: received shutdown signal", nil)
		cancel()
	}()

	return d.Run(runCtx, v.GetString("pidfile"), rules)
}

// loadPluginDir reads every *.yaml/*.yml file directly under dir and
// accumulates their rules, matching plugin_manager.py's behavior of
// loading every file in the plugins config directory rather than one
// combined document.
func loadPluginDir(dir string, reg *plugin.Registry) ([]plugin.Rule, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plugin directory %q: %w", dir, err)
	}

	var rules []plugin.Rule
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading plugin file %q: %w", path, err)
		}

		fileRules, errsList := plugin.LoadRules(raw, reg)
		if len(errsList) > 0 {
			return nil, fmt.Errorf("loading plugin file %q: %v", path, errsList)
		}
		rules = append(rules, fileRules...)
	}
	return rules, nil
}
