package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kraklabs/cmx/backupstore"
	"github.com/kraklabs/cmx/dispatcher"
	"github.com/kraklabs/cmx/exec2"
	"github.com/kraklabs/cmx/pathguard"
	"github.com/kraklabs/cmx/registry"
	"github.com/kraklabs/cmx/router"
)

const shutdownGrace = 10 * time.Second

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the configuration-management HTTP agent",
		RunE:  runCmdRun,
	}
}

func runCmdRun(*cobra.Command, []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := setupLogging(c)
	defer closeLog()

	reg := registry.New(c.BackupDir, c.ConfigsPath)
	if err := reg.ReloadFromDisk(logger); err != nil {
		logger.WithError(err).Warn("run: initial configs.json load failed, starting with an empty registry")
	}

	guard := pathguard.New(c.GuardMode(), c.AllowedRoots, logger)
	backups := backupstore.New(c.MaxBackups, c.AutoCreateBackups, backupstore.RealClock)
	concurrency := c.ExecConcurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU() * 4
	}
	executor := exec2.New(concurrency)
	defer executor.Stop()

	systemctlFlags := strings.Fields(c.SystemctlFlags)
	disp := dispatcher.New(executor, dispatcher.Config{
		SystemctlBin:   c.Systemctl,
		SystemctlFlags: systemctlFlags,
	})

	engine := router.Configure(&router.Deps{
		Config:     *c,
		Registry:   reg,
		Guard:      guard,
		Backups:    backups,
		Dispatcher: disp,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:    c.Listen,
		Handler: engine,
	}

	serveErr := make(chan error, 1)
	go func() {
		if c.SSLEnable {
			serveErr <- srv.ListenAndServeTLS(c.SSLCertFile, c.SSLKeyFile)
			return
		}
		serveErr <- srv.ListenAndServe()
	}()
	logger.WithField("listen", c.Listen).WithField("tls", c.SSLEnable).Info("run: listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case s := <-sig:
		logger.WithField("signal", s.String()).Info("run: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("run: graceful shutdown failed")
		}
	}
	return nil
}
