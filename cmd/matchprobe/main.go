package main

// Run the whole pipeline locally on one document and print the ranked tenders:
//   go run ./cmd/matchprobe -doc profile.pdf -tenders tenders.yaml

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"tender-backend/internal/bootstrap"
	"tender-backend/internal/jobs"
	"tender-backend/internal/matching"
	"tender-backend/internal/shared/config"
	"tender-backend/internal/tenders"
)

const probeUser = "probe"

// inlineDispatcher runs the job before Dispatch returns.
type inlineDispatcher struct {
	proc jobs.Processor
}

func (d inlineDispatcher) Dispatch(ctx context.Context, jobID string) error {
	_, err := d.proc.Run(ctx, jobID)
	return err
}

func main() {
	cfg := config.Load()

	docPath := flag.String("doc", "", "Path to a company profile PDF")
	tenderPath := flag.String("tenders", "", "Path to a tender file (.json, .yaml or .xlsx)")
	limit := flag.Int("limit", matching.DefaultLimit, "Maximum number of results")
	category := flag.String("category", "", "Only match tenders in this category")
	flag.Parse()

	if strings.TrimSpace(*docPath) == "" || strings.TrimSpace(*tenderPath) == "" {
		exitErr("doc and tenders are required")
	}

	// Everything stays in memory and on local disk.
	cfg.DatabaseURL = ""
	cfg.QueueURL = ""
	cfg.ObjectStoreType = "local"
	cfg.Env = "local"
	if dir, err := os.MkdirTemp("", "matchprobe-"); err == nil {
		cfg.LocalStoreDir = dir
		defer os.RemoveAll(dir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	app, err := bootstrap.BuildWith(ctx, cfg, bootstrap.Options{Inline: true})
	if err != nil {
		exitErr(fmt.Sprintf("bootstrap: %v", err))
	}
	defer app.Close(ctx)
	app.Jobs.Dispatcher = inlineDispatcher{proc: app.Jobs}

	if err := loadTenders(ctx, app, *tenderPath); err != nil {
		exitErr(err.Error())
	}

	data, err := os.ReadFile(*docPath)
	if err != nil {
		exitErr(fmt.Sprintf("read document: %v", err))
	}
	res, err := app.Jobs.Submit(ctx, probeUser, filepath.Base(*docPath), data)
	if err != nil {
		exitErr(fmt.Sprintf("submit: %v", err))
	}
	st, err := app.Jobs.Status(ctx, probeUser, res.JobID)
	if err != nil {
		exitErr(fmt.Sprintf("job status: %v", err))
	}
	if st.State != jobs.StateCompleted {
		exitErr(fmt.Sprintf("job ended in %s: %s", st.State, st.ErrorMessage))
	}

	profile, err := app.Profiles.Get(ctx, probeUser)
	if err != nil {
		exitErr(fmt.Sprintf("load profile: %v", err))
	}
	results, err := app.Engine.Match(ctx, profile, matching.MatchOptions{Limit: *limit, Category: *category})
	if err != nil {
		exitErr(fmt.Sprintf("match: %v", err))
	}

	bold := color.New(color.Bold).SprintFunc()
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Printf("%s %s (completeness %d%%)\n", bold("Profile:"), profile.BusinessType, profile.CompletenessScore)
	fmt.Printf("%s %s\n", bold("Industries:"), strings.Join(profile.MainIndustries, ", "))
	fmt.Printf("%s %d\n\n", bold("Keywords:"), len(profile.Keywords))

	if len(results) == 0 {
		fmt.Println(faint("no matching tenders"))
		return
	}
	for _, r := range results {
		fmt.Printf("%s %s %s\n", boldCyan(fmt.Sprintf("#%d", r.Rank)), boldGreen(fmt.Sprintf("%6.2f", r.Score)), r.Tender.Title)
		fmt.Printf("      %s %s\n", faint(r.Tender.Agency), faint(r.Tender.Category))
		if len(r.MatchedTerms) > 0 {
			fmt.Printf("      matched: %s\n", strings.Join(r.MatchedTerms, ", "))
		}
	}
}

func loadTenders(ctx context.Context, app *bootstrap.App, path string) error {
	batch, err := tenders.LoadFile(path, "probe")
	if err != nil {
		return fmt.Errorf("parse tenders: %w", err)
	}
	if _, err := app.Tenders.Upsert(ctx, batch); err != nil {
		return fmt.Errorf("load tenders: %w", err)
	}
	return nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, color.RedString(msg))
	os.Exit(1)
}
