package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mwantia/linkfilter/pkg/filter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewFilterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Work with query expressions",
		Long:  "Parse, format and build query expressions without touching the link store.",
	}

	cmd.PersistentFlags().Bool("json", false, "Print JSON instead of YAML")

	cmd.AddCommand(NewFilterParseCommand())
	cmd.AddCommand(NewFilterFormatCommand())
	cmd.AddCommand(NewFilterPresetCommand())
	cmd.AddCommand(NewFilterItemsCommand())

	return cmd
}

func NewFilterParseCommand() *cobra.Command {
	var tags bool

	cmd := &cobra.Command{
		Use:   "parse <expression>...",
		Short: "Parse a query expression into conditions",
		Long:  "Parse a query expression into conditions. Text that is not a clause becomes a title match.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conds := filter.Parse(strings.Join(args, " "))
			if tags {
				for _, tag := range filter.Tags(conds) {
					fmt.Fprintln(cmd.OutOrStdout(), tag)
				}
				return nil
			}
			return printValue(cmd, conds)
		},
	}

	cmd.Flags().BoolVarP(&tags, "tags", "t", false, "Print one tag per condition")

	return cmd
}

func NewFilterFormatCommand() *cobra.Command {
	var shim bool

	cmd := &cobra.Command{
		Use:   "format [conditions]",
		Short: "Format conditions as a query expression",
		Long:  "Format a JSON condition list, read from the argument or stdin, as a query expression.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			if len(args) == 1 {
				data = []byte(args[0])
			} else {
				var err error
				if data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("failed to read conditions: %w", err)
				}
			}

			var conds []filter.Condition
			if err := json.Unmarshal(data, &conds); err != nil {
				return fmt.Errorf("invalid conditions: %w", err)
			}

			search := filter.Format(conds)
			if shim {
				search = filter.FormatShim(conds, time.Now())
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), search)
			return err
		},
	}

	cmd.Flags().BoolVar(&shim, "shim", false, "Rewrite days_not_visit into last_visited_at bounds")

	return cmd
}

func NewFilterPresetCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "preset <label>",
		Short: "Translate a preset label into a condition",
		Long:  `Translate a preset label such as "Last 7 Days", "10GB - 50GB" or ">10000" into a condition.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if key == "" {
				return printValue(cmd, filter.Translate(args[0], now))
			}

			item, ok := filter.FindItem(filter.Key(key))
			if !ok {
				return fmt.Errorf("unknown key %q", key)
			}
			return printValue(cmd, filter.Apply(item, args[0], now))
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Apply the preset to the advanced item of this key")

	return cmd
}

type itemOutput struct {
	filter.ItemView `yaml:",inline"`
	Selected        string `json:"selected" yaml:"selected"`
}

func NewFilterItemsCommand() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "items",
		Short: "List the advanced filter items",
		Long:  "List the advanced filter items and, for a search, what each item currently shows.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conds := filter.Collapse(filter.Parse(search))

			var items []itemOutput
			for _, item := range filter.AdvancedItems() {
				items = append(items, itemOutput{
					ItemView: filter.Describe(item),
					Selected: filter.Selected(item, conds),
				})
			}
			return printValue(cmd, items)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Query expression to show the selection of")

	return cmd
}

func printValue(cmd *cobra.Command, v any) error {
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
