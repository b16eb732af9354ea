package cli

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/adapters/driving/httpapi"
	"github.com/oliverbatey/forager/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over HTTP",
	Long: `Start the HTTP chat API.

Endpoints:
  POST   /v1/sessions/{id}/messages  send {"message": "..."} to the agent
  DELETE /v1/sessions/{id}           forget a conversation
  GET    /v1/status                  knowledge base and session counts
  GET    /healthz                    liveness
  GET    /metrics                    Prometheus metrics

Example:
  forager serve --addr :8080
  curl -d '{"message":"what is new in r/golang?"}' localhost:8080/v1/sessions/me/messages`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := serveAddr
	var metricsHandler http.Handler

	if agentService == nil {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if addr == "" {
			addr = a.Config().Server.Addr
		}
		// Services built after this point report to Prometheus.
		metricsHandler = a.EnableMetrics().Handler()
	}

	agent, err := getAgent()
	if err != nil {
		return err
	}
	search, err := getSearch()
	if err != nil {
		logger.Warn("status without chunk count: %v", err)
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Agent:   agent,
		Search:  search,
		Metrics: metricsHandler,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reloads := watchPrompts(ctx); reloads != nil {
		go func() {
			for name := range reloads {
				logger.Info("reloaded %s prompt", name)
			}
		}()
	}

	if addr == "" {
		addr = ":8080"
	}
	cmd.PrintErrf("Forager API listening on %s\n", addr)
	return server.Run(ctx, addr)
}
