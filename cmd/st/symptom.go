package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/symtrack/symtrack/internal/domain"
)

var symptomCmd = &cobra.Command{
	Use:     "symptom",
	GroupID: "track",
	Short:   "Manage tracked symptoms",
}

var symptomOtherNames []string

var symptomAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new symptom",
	Long: `Add a new symptom to track.

Alternate names make the symptom findable under other spellings:

  st symptom add "headache" --other-name migraine --other-name "head pain"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		created := app.symptoms.Create(args[0], symptomOtherNames)
		fmt.Printf("%s Added %s %s\n", renderPass("✓"), created.Name, renderDim("("+created.ID+")"))
		return nil
	},
}

var symptomListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all symptoms alphabetically",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		all := app.symptoms.All()
		if len(all) == 0 {
			fmt.Println("No symptoms tracked yet. Add one with 'st symptom add'.")
			return nil
		}
		for _, s := range all {
			line := s.Name
			if len(s.OtherNames) > 0 {
				line += renderDim(" (also: " + strings.Join(s.OtherNames, ", ") + ")")
			}
			fmt.Printf("  %s  %s\n", renderDim(s.ID), line)
		}
		return nil
	},
}

var symptomSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search symptoms by word prefixes",
	Long: `Search symptoms by prefix. Multi-word queries require every
word to match:

  st symptom search "back pa"   # matches "lower back pain"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		matched := app.symptoms.Search(strings.Join(args, " "))
		if len(matched) == 0 {
			fmt.Println("No matches.")
			return nil
		}
		for _, s := range matched {
			fmt.Printf("  %s  %s\n", renderDim(s.ID), s.Name)
		}
		return nil
	},
}

var symptomRenameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Rename a symptom",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		symptom, ok := app.symptoms.Get(args[0])
		if !ok {
			return fmt.Errorf("no symptom with id %s", args[0])
		}
		symptom.Name = args[1]
		if cmd.Flags().Changed("other-name") {
			symptom.OtherNames = symptomOtherNames
		}
		updated, err := app.symptoms.Update(symptom)
		if err != nil {
			return err
		}
		fmt.Printf("%s Renamed to %s\n", renderPass("✓"), updated.Name)
		return nil
	},
}

var symptomDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a symptom",
	Long: `Delete a symptom. Deletion is blocked while any metric still
references the symptom; delete those metrics first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		id := args[0]
		if _, ok := app.symptoms.Get(id); !ok {
			return fmt.Errorf("no symptom with id %s", id)
		}
		if app.metrics.IsSymptomUsedInHistory(id) {
			return fmt.Errorf("symptom %s still has recorded metrics; delete those first", id)
		}
		app.symptoms.Delete(id)
		fmt.Printf("%s Deleted %s\n", renderPass("✓"), id)
		return nil
	},
}

func init() {
	symptomAddCmd.Flags().StringArrayVar(&symptomOtherNames, "other-name", nil, "alternate name (repeatable)")
	symptomRenameCmd.Flags().StringArrayVar(&symptomOtherNames, "other-name", nil, "replace alternate names (repeatable)")

	symptomCmd.AddCommand(symptomAddCmd, symptomListCmd, symptomSearchCmd, symptomRenameCmd, symptomDeleteCmd)
	rootCmd.AddCommand(symptomCmd)
}

// resolveSymptom finds a symptom by exact id or by a unique search
// match, so commands accept either form.
func resolveSymptom(app *app, ref string) (domain.Symptom, error) {
	if symptom, ok := app.symptoms.Get(ref); ok {
		return symptom, nil
	}
	matched := app.symptoms.Search(ref)
	switch len(matched) {
	case 0:
		return domain.Symptom{}, fmt.Errorf("no symptom matches %q", ref)
	case 1:
		return matched[0], nil
	default:
		names := make([]string, 0, len(matched))
		for _, s := range matched {
			names = append(names, s.Name)
		}
		return domain.Symptom{}, fmt.Errorf("%q is ambiguous: %s", ref, strings.Join(names, ", "))
	}
}
