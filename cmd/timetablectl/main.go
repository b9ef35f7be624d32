// Command timetablectl runs a single timetable sync against the configured
// store and reports the per-source outcome.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/sqrlplanner/timetable-sync/internal/artsci"
	"github.com/sqrlplanner/timetable-sync/internal/models"
	"github.com/sqrlplanner/timetable-sync/internal/repository"
	"github.com/sqrlplanner/timetable-sync/internal/service"
	"github.com/sqrlplanner/timetable-sync/pkg/config"
	"github.com/sqrlplanner/timetable-sync/pkg/database"
	"github.com/sqrlplanner/timetable-sync/pkg/export"
	"github.com/sqrlplanner/timetable-sync/pkg/logger"
)

func main() {
	session := flag.String("session", "", "sync an explicit session code instead of discovering the current one")
	verify := flag.Bool("verify", false, "verify the discovered session with a probe query")
	file := flag.String("file", "", "sync from a raw JSON course dump instead of the network")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	reportCSV := flag.String("report-csv", "", "write the per-organisation outcome to a CSV file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if *session != "" {
		if _, err := models.ParseSessionCode(*session); err != nil {
			fmt.Fprintf(os.Stderr, "invalid -session: %v\n", err)
			os.Exit(2)
		}
	}

	if !*yes && !confirm("This will modify the timetable store. Continue?") {
		fmt.Println("Aborted.")
		return
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	client := artsci.NewClient(artsci.ClientConfig{
		RootURL:       cfg.Source.RootURL,
		Timeout:       cfg.Source.Timeout,
		RetryAttempts: cfg.Source.RetryAttempts,
		RetryDelay:    cfg.Source.RetryDelay,
		ProbeCourse:   cfg.Source.ProbeCourse,
		CrawlWorkers:  cfg.Sync.CrawlWorkers,
		Logger:        logr,
	})

	sessionCode := cfg.Source.SessionCode
	if *session != "" {
		sessionCode = *session
	}

	timetable := service.NewTimetableSyncService(client, service.TimetableSyncConfig{
		SessionCode:     sessionCode,
		VerifySession:   *verify || cfg.Source.VerifySession,
		DuplicatePolicy: artsci.DuplicatePolicy(cfg.Sync.DuplicatePolicy),
	}, nil, logr)

	store := service.WrapStore(repository.NewStore(db))

	start := time.Now()
	var report *models.SyncReport
	if *file != "" {
		report, err = timetable.SyncFile(context.Background(), store, *file)
	} else {
		report, err = timetable.Sync(context.Background(), store)
	}
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Syncing %s failed after %.2f seconds: %v\n", timetable.Name(), elapsed.Seconds(), err)
		os.Exit(1)
	}

	printReport(timetable.Name(), report, elapsed)

	if *reportCSV != "" {
		if err := writeReportCSV(*reportCSV, report); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write report CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote per-organisation outcome to %s\n", *reportCSV)
	}
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}

func printReport(name string, report *models.SyncReport, elapsed time.Duration) {
	fmt.Printf("Synced %s in %.2f seconds\n", name, elapsed.Seconds())
	if report.SessionCode != "" {
		fmt.Printf("  session:              %s\n", report.SessionCode)
	}
	fmt.Printf("  organisations:        %d attempted, %d failed\n",
		report.OrganisationsTotal, report.FailedOrganisations())
	fmt.Printf("  courses synced:       %d\n", report.CoursesSynced)
	fmt.Printf("  course failures:      %d\n", len(report.CourseFailures))
	fmt.Printf("  duplicates skipped:   %d\n", report.DuplicatesSkipped)

	for _, outcome := range report.Organisations {
		if outcome.Error != "" {
			fmt.Printf("  organisation %s failed: %s\n", outcome.Code, outcome.Error)
		}
	}
	for _, failure := range report.CourseFailures {
		fmt.Printf("  course %s failed: %s\n", failure.CourseCode, failure.Reason)
	}
}

func writeReportCSV(path string, report *models.SyncReport) error {
	data, err := export.NewCSVExporter().Render(service.ReportDataset(report))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
