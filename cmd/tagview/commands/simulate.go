package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	tagview "tagview/engine/core"
	"tagview/pkg/devicesim"
)

var SimulateCmd = &cobra.Command{
	Use:     "simulate",
	Aliases: []string{"sim"},
	Short:   "Run a simulated device",
	Long: `Serves a device model on GET/POST /api and /ws so a host can be tried without
hardware. Pressed commands are released and counters advance on every tick.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		model := devicesim.DefaultModel()
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			var err error
			if model, err = loadSnapshot(file, cmd.InOrStdin()); err != nil {
				return err
			}
		}
		tick, _ := cmd.Flags().GetDuration("tick")
		port, _ := cmd.Flags().GetInt("port")

		sim := devicesim.NewServer(model, tick)
		sim.Start()
		defer sim.Stop()

		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: sim.Router(),
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			log.Println("Shutting down simulator...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()

		log.Printf("Simulated device on %s with %d elements\n", httpServer.Addr, len(model.Elements))
		log.Println("  GET  /api  - current model")
		log.Println("  POST /api  - write tags")
		log.Println("  GET  /ws   - model stream")
		tagview.DebugLog("[SIM] tick %s\n", tick)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("simulator failed: %w", err)
		}
		return nil
	},
}

func init() {
	SimulateCmd.Flags().StringP("file", "f", "", "model file (.json, .yaml); default is a demo heater and door")
	SimulateCmd.Flags().IntP("port", "p", 8081, "port to listen on")
	SimulateCmd.Flags().Duration("tick", time.Second, "simulation step interval")
}
