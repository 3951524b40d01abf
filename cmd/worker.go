package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shifterhq/shifter/internal/reminder"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the scheduler worker",
	Long: `Start the background worker: hourly shift reminders, per-store
evening reports and the quiet-hours notification flush.`,
	Run: func(cmd *cobra.Command, args []string) {
		startWorker()
	},
}

func startWorker() {
	core, err := buildCore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	loc := core.Config.Scheduler.Location()
	scanner := reminder.NewScanner(core.ScheduleRepo, core.UserRepo, core.StoreRepo,
		core.Queue, core.Logger, loc)

	core.Logger.Info("worker started",
		"timezone", core.Config.Scheduler.Timezone,
		"quiet_start", core.Config.Scheduler.QuietStartHour,
		"quiet_end", core.Config.Scheduler.QuietEndHour)

	// Everything runs off one minute ticker: evening reports and the
	// pending flush every minute, shift reminders at the top of the hour.
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case tick := <-ticker.C:
			scanner.SendEveningReports()
			scanner.FlushDueNotifications()
			if tick.In(loc).Minute() == 0 {
				scanner.ScanAndRemind()
			}
		case sig := <-sigChan:
			core.Logger.Info("received signal, shutting down worker", "signal", sig)
			if err := core.DB.Close(); err != nil {
				core.Logger.Error("database close error", "error", err)
			}
			core.Logger.Info("worker stopped")
			return
		}
	}
}
