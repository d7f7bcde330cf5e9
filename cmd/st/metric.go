package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/symtrack/symtrack/internal/domain"
	"github.com/symtrack/symtrack/internal/store"
)

var metricCmd = &cobra.Command{
	Use:     "metric",
	GroupID: "track",
	Short:   "Record and browse metrics",
}

var (
	metricIntensity string
	metricLevel     int
	metricDate      string
	metricNotes     string
)

// parseMetricDate accepts RFC3339 or natural language ("yesterday
// 9pm", "2 hours ago"). An empty input means now.
func parseMetricDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	result, err := w.Parse(raw, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", raw, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("could not understand date %q", raw)
	}
	return result.Time, nil
}

// metricIntensityFromFlags resolves --level / --intensity into the
// categorical intensity and the notes prefix, if any.
func metricIntensityFromFlags(notes string) (domain.Intensity, string, error) {
	if metricLevel != 0 {
		intensity, err := domain.IntensityForLevel(metricLevel)
		if err != nil {
			return "", "", err
		}
		_, rest, _ := domain.ParseNumericIntensity(notes)
		return intensity, domain.FormatNumericNotes(metricLevel, rest), nil
	}
	intensity, err := domain.ParseIntensity(metricIntensity)
	if err != nil {
		return "", "", fmt.Errorf("intensity must be low, medium, or high (or use --level 1..10)")
	}
	return intensity, notes, nil
}

var metricAddCmd = &cobra.Command{
	Use:   "add <symptom>",
	Short: "Record a metric for a symptom",
	Long: `Record one observation of a symptom. The symptom may be given
by id or by a unique search prefix.

  st metric add headache --level 7 --notes "behind the eyes"
  st metric add sym_abc123 --intensity low --date "yesterday 9pm"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		symptom, err := resolveSymptom(app, args[0])
		if err != nil {
			return err
		}
		date, err := parseMetricDate(metricDate, time.Now())
		if err != nil {
			return err
		}
		intensity, notes, err := metricIntensityFromFlags(metricNotes)
		if err != nil {
			return err
		}

		created := app.metrics.Create(symptom.ID, intensity, date, notes)
		fmt.Printf("%s Recorded %s for %s at %s\n",
			renderPass("✓"), string(created.Intensity), symptom.Name,
			created.Date.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var metricListCmd = &cobra.Command{
	Use:   "list",
	Short: "List metrics, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		printMetrics(app, app.metrics.All())
		return nil
	},
}

var metricLastDays int

var metricLastCmd = &cobra.Command{
	Use:   "last",
	Short: "List metrics from the last N days",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		printMetrics(app, app.metrics.MetricsOfLastNDays(metricLastDays))
		return nil
	},
}

var metricDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a metric",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		if _, ok := app.metrics.Get(args[0]); !ok {
			return fmt.Errorf("no metric with id %s", args[0])
		}
		app.metrics.Delete(args[0])
		fmt.Printf("%s Deleted %s\n", renderPass("✓"), args[0])
		return nil
	},
}

var (
	editIntensity string
	editLevel     int
	editDate      string
	editNotes     string
)

var metricEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a metric's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		metric, ok := app.metrics.Get(args[0])
		if !ok {
			return fmt.Errorf("no metric with id %s", args[0])
		}

		if cmd.Flags().Changed("notes") {
			metric.Notes = editNotes
		}
		if cmd.Flags().Changed("date") {
			date, err := parseMetricDate(editDate, time.Now())
			if err != nil {
				return err
			}
			metric.Date = date
		}
		if cmd.Flags().Changed("level") {
			if err := metric.SetNumericIntensity(editLevel); err != nil {
				return err
			}
		} else if cmd.Flags().Changed("intensity") {
			intensity, err := domain.ParseIntensity(editIntensity)
			if err != nil {
				return err
			}
			metric.Intensity = intensity
		}

		if _, err := app.metrics.Update(metric); err != nil {
			return err
		}
		fmt.Printf("%s Updated %s\n", renderPass("✓"), metric.ID)
		return nil
	},
}

var metricSetLevelCmd = &cobra.Command{
	Use:   "set-level <id> <1..10>",
	Short: "Set a metric's numeric intensity",
	Long: `Set the 1..10 numeric intensity on an existing metric. The
categorical intensity is rebucketed (1-3 low, 4-6 medium, 7-10 high)
and the notes prefix is rewritten, keeping any free-form tail.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		level, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("level must be a number between 1 and 10")
		}
		metric, ok := app.metrics.Get(args[0])
		if !ok {
			return fmt.Errorf("no metric with id %s", args[0])
		}
		if err := metric.SetNumericIntensity(level); err != nil {
			return err
		}
		if _, err := app.metrics.Update(metric); err != nil {
			return err
		}
		fmt.Printf("%s Set %s to %d/10\n", renderPass("✓"), metric.ID, level)
		return nil
	},
}

var suggestCmd = &cobra.Command{
	Use:     "suggest",
	GroupID: "track",
	Short:   "Suggest recently tracked symptoms",
	Long: `Show one entry per recently tracked symptom, flagged with
whether it was recorded today or on an earlier day in the window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		suggestions := app.metrics.SuggestedSymptoms(metricLastDays, app.symptoms)
		if len(suggestions) == 0 {
			fmt.Println("Nothing tracked recently.")
			return nil
		}
		for _, s := range suggestions {
			flags := ""
			if s.RecordedToday {
				flags += renderPass(" today")
			}
			if s.RecordedInPast {
				flags += renderDim(" earlier")
			}
			fmt.Printf("  %s%s\n", s.Name, flags)
		}
		return nil
	},
}

func printMetrics(app *app, metrics []domain.Metric) {
	if len(metrics) == 0 {
		fmt.Println("No metrics recorded.")
		return
	}
	for _, m := range metrics {
		name := store.UnknownSymptomName
		if symptom, ok := app.symptoms.Get(m.SymptomID); ok {
			name = symptom.Name
		}
		line := fmt.Sprintf("  %s  %s  %-7s %s",
			renderDim(m.ID),
			m.Date.Local().Format("2006-01-02 15:04"),
			string(m.Intensity),
			name)
		if m.Notes != "" {
			line += renderDim("  " + m.Notes)
		}
		fmt.Println(line)
	}
}

func init() {
	metricAddCmd.Flags().StringVar(&metricIntensity, "intensity", "medium", "categorical intensity: low, medium, high")
	metricAddCmd.Flags().IntVar(&metricLevel, "level", 0, "numeric intensity 1..10 (overrides --intensity)")
	metricAddCmd.Flags().StringVar(&metricDate, "date", "", "when it happened (RFC3339 or natural language)")
	metricAddCmd.Flags().StringVar(&metricNotes, "notes", "", "free-form notes")

	metricEditCmd.Flags().StringVar(&editIntensity, "intensity", "", "categorical intensity: low, medium, high")
	metricEditCmd.Flags().IntVar(&editLevel, "level", 0, "numeric intensity 1..10 (overrides --intensity)")
	metricEditCmd.Flags().StringVar(&editDate, "date", "", "when it happened (RFC3339 or natural language)")
	metricEditCmd.Flags().StringVar(&editNotes, "notes", "", "free-form notes")

	metricLastCmd.Flags().IntVar(&metricLastDays, "days", 7, "window size in days")
	suggestCmd.Flags().IntVar(&metricLastDays, "days", 7, "window size in days")

	metricCmd.AddCommand(metricAddCmd, metricListCmd, metricLastCmd, metricDeleteCmd, metricEditCmd, metricSetLevelCmd)
	rootCmd.AddCommand(metricCmd, suggestCmd)
}
