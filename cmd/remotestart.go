package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/evroam/roaminghub/app"
	"github.com/evroam/roaminghub/config"
	"github.com/evroam/roaminghub/core/collaborator"
	"github.com/evroam/roaminghub/core/model"
	"github.com/evroam/roaminghub/infra/logger"
	"github.com/evroam/roaminghub/simulator"
)

var remoteStartCmd = &cobra.Command{
	Use:   "remotestart",
	Short: "Run a start/stop round-trip against a simulated operator",
	RunE:  remoteStartDemo,
}

func init() {
	rootCmd.AddCommand(remoteStartCmd)
}

func remoteStartDemo(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	logg := logger.New("remotestart-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	loc := model.Location{OperatorID: "sim-operator", PoolID: "pool-1", StationID: "station-1", EVSEID: "evse-1"}
	op := simulator.New("sim-operator", collaborator.RoleOperator)
	op.Delay = 50 * time.Millisecond
	if err := svc.Registry.RegisterOperator(op, loc.Refs()...); err != nil {
		return fmt.Errorf("register operator: %w", err)
	}

	sessionID := uuid.NewString()
	startRes := svc.Dispatcher.RemoteStart(ctx, model.RemoteStartRequest{
		Location:   loc,
		SessionID:  sessionID,
		ProviderID: "sim-provider",
	})
	logg.Infof("remote start: %s via %s (%s)", startRes.Kind, startRes.Collaborator, startRes.Description)
	if !startRes.Kind.IsPositive() {
		return fmt.Errorf("remote start failed: %s", startRes.Kind)
	}

	stopRes := svc.Dispatcher.RemoteStop(ctx, model.RemoteStopRequest{SessionID: sessionID})
	logg.Infof("remote stop: %s via %s (%s)", stopRes.Kind, stopRes.Collaborator, stopRes.Description)
	return nil
}
