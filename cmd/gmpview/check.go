package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fenilmodi00/gmp-tracker/models"
	"github.com/fenilmodi00/gmp-tracker/services"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// checkCmd loads the upstream feed and reports how much of it the pipeline understands
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the upstream GMP feed is reachable and parseable",
	Long: `Fetch the feed once and run a few sanity checks over it:

  upstream  - the feed answers and decodes into records
  records   - the feed is not empty
  dates     - every non-placeholder open/close date parses
  premiums  - every non-placeholder GMP value is numeric

Exits non-zero unless every check passes.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
}

func runCheck(cmd *cobra.Command, args []string) error {
	gateway, err := newGateway()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	start := time.Now()
	snapshot, err := gateway.Load(ctx)
	results := []checkResult{upstreamCheck(err, time.Since(start))}
	if err == nil {
		results = append(results, inspectSnapshot(snapshot, services.NewUtilityService(), services.NewDateNormalizer(), time.Now())...)
	}

	if !renderChecks(cmd.OutOrStdout(), results) {
		return fmt.Errorf("%d of %d checks failed", countFailed(results), len(results))
	}
	return nil
}

func upstreamCheck(err error, elapsed time.Duration) checkResult {
	if err != nil {
		return checkResult{Name: "upstream", Detail: err.Error()}
	}
	return checkResult{Name: "upstream", Passed: true, Detail: elapsed.Round(time.Millisecond).String()}
}

// inspectSnapshot checks the decoded records without touching the network
func inspectSnapshot(snapshot *models.Snapshot, utility *services.UtilityService, dates *services.DateNormalizer, now time.Time) []checkResult {
	records := checkResult{Name: "records", Passed: len(snapshot.Offerings) > 0, Detail: fmt.Sprintf("%d records", len(snapshot.Offerings))}

	var dateFields, badDates int
	var premiums, badPremiums int
	for _, o := range snapshot.Offerings {
		for _, raw := range []*string{o.OpenDate, o.CloseDate} {
			if raw == nil || utility.IsPlaceholder(*raw) {
				continue
			}
			dateFields++
			if dates.Parse(raw, now) == nil {
				badDates++
			}
		}

		if utility.IsPlaceholder(o.Premium) {
			continue
		}
		premiums++
		if _, ok := utility.ParseLeadingNumber(utility.DecodeEntities(o.Premium)); !ok {
			badPremiums++
		}
	}

	return []checkResult{
		records,
		{Name: "dates", Passed: badDates == 0, Detail: fmt.Sprintf("%d of %d unparsable", badDates, dateFields)},
		{Name: "premiums", Passed: badPremiums == 0, Detail: fmt.Sprintf("%d of %d non-numeric", badPremiums, premiums)},
	}
}

func renderChecks(w io.Writer, results []checkResult) bool {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Check", "Result", "Detail"})

	for _, r := range results {
		verdict := "OK"
		if !r.Passed {
			verdict = "FAILED"
		}
		t.AppendRow(table.Row{r.Name, verdict, r.Detail})
	}

	failed := countFailed(results)
	health := "HEALTHY"
	switch {
	case failed == len(results):
		health = "UNHEALTHY"
	case failed > 0:
		health = "DEGRADED"
	}
	t.AppendFooter(table.Row{health, fmt.Sprintf("%d/%d", len(results)-failed, len(results))})
	t.Render()

	return failed == 0
}

func countFailed(results []checkResult) int {
	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	return failed
}
