package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/opportunity-report/internal/api"
	anthropicpkg "github.com/sells-group/opportunity-report/pkg/anthropic"
	"github.com/sells-group/opportunity-report/pkg/ghl"
	"github.com/sells-group/opportunity-report/pkg/openai"
	"github.com/sells-group/opportunity-report/pkg/supabase"
)

const (
	shutdownTimeout    = 30 * time.Second
	writeTimeoutMargin = 30 * time.Second
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		p, err := initPipeline("serve")
		if err != nil {
			return err
		}

		srv := newServer(api.NewRouter(p, api.Options{
			PublicDir:          cfg.Server.PublicDir,
			CORSOrigins:        cfg.Server.CORSOrigins,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		}))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})

		return g.Wait()
	},
}

// runBudget is the longest a report run can take when every upstream call
// uses its full client timeout: website fetch, completion, contact and
// message calls, and the upload.
func runBudget() time.Duration {
	llm := openai.DefaultTimeout
	if cfg.LLM.Provider == "anthropic" {
		llm = anthropicpkg.DefaultTimeout
	}
	var website time.Duration
	if cfg.Report.FetchWebsite {
		website = time.Duration(cfg.Report.WebsiteTimeoutSecs) * time.Second
	}
	return website + llm + 2*ghl.DefaultTimeout + supabase.DefaultTimeout
}

// writeTimeout never cuts a response before a detached run can finish.
func writeTimeout() time.Duration {
	configured := time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second
	minimum := runBudget() + writeTimeoutMargin
	if configured < minimum {
		zap.L().Warn("server.write_timeout_secs is below the run budget, raising it",
			zap.Duration("configured", configured),
			zap.Duration("effective", minimum),
		)
		return minimum
	}
	return configured
}

func newServer(h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout:      writeTimeout(),
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
