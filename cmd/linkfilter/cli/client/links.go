package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/linkfilter/pkg/db/models"
	"github.com/mwantia/linkfilter/pkg/db/store"
	"github.com/mwantia/linkfilter/pkg/filter"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	config "github.com/mwantia/linkfilter/internal/config/server"
)

func NewLinksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage shared links",
		Long:  "List, add, edit and remove shared links in the configured link store.",
	}

	cmd.PersistentFlags().StringP("user", "u", "", "Owner of the links (default is http.default_user)")

	cmd.AddCommand(NewLinksListCommand())
	cmd.AddCommand(NewLinksAddCommand())
	cmd.AddCommand(NewLinksRemoveCommand())
	cmd.AddCommand(NewLinksVisitCommand())
	cmd.AddCommand(NewLinksEditCommand())

	return cmd
}

// openStore opens the configured store and resolves the acting user
func openStore(cmd *cobra.Command) (*store.SQLiteStore, string, error) {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return nil, "", fmt.Errorf("failed to load server configuration: %w", err)
	}

	level := logger.Silent
	if cfg.Metadata.SQLite.Debug {
		level = logger.Info
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.Metadata.SQLite.Path, LogLevel: level})
	if err != nil {
		return nil, "", err
	}
	if err := st.Connect(cmd.Context()); err != nil {
		return nil, "", err
	}
	if err := st.Migrate(cmd.Context()); err != nil {
		st.Close()
		return nil, "", err
	}

	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		user = cfg.HTTP.DefaultUser
	}
	return st, user, nil
}

func NewLinksListCommand() *cobra.Command {
	var limit, page int
	var filters string
	var humanReadable bool

	cmd := &cobra.Command{
		Use:   "ls [expression]...",
		Short: "List shared links",
		Long:  `List the shared links matching a query expression, e.g. 'ls size>"10GB" days_not_visit>30'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, user, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			query := store.LinkQuery{
				UserID:    user,
				Search:    strings.Join(args, " "),
				Limit:     limit,
				PageIndex: page,
				Now:       time.Now(),
				Location:  time.Local,
			}
			if filters != "" {
				if err := json.Unmarshal([]byte(filters), &query.Filters); err != nil {
					return fmt.Errorf("invalid filter: %w", err)
				}
			}

			result, err := st.QueryLinks(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printLinks(cmd, result, humanReadable)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultPageSize, "Links per page")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page to list, starting at 1")
	cmd.Flags().StringVarP(&filters, "filter", "f", "", "JSON condition list applied before the expression")
	cmd.Flags().BoolVarP(&humanReadable, "human", "H", false, "Enable human-readable format")

	return cmd
}

func printLinks(cmd *cobra.Command, page *store.LinkPage, humanReadable bool) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATE\tSIZE\tVISITOR\tLAST VISIT\tORIGINAL LINK")

	for _, l := range page.Links {
		size := fmt.Sprint(l.Size)
		visited := l.LastVisitedAt.Local().Format(filter.ShimLayout)
		if humanReadable {
			size = humanize.IBytes(uint64(max(l.Size, 0)))
			visited = humanize.Time(l.LastVisitedAt)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.AutoID, l.Title, l.State, size, humanize.Comma(l.Visitor), visited, l.OriginalLink)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	if page.Total > 0 {
		fmt.Fprintf(out, "%d of %d links\n", len(page.Links), page.Total)
	}
	for _, c := range page.Ignored {
		fmt.Fprintf(out, "ignored condition %s\n", c.Tag())
	}
	return nil
}

func NewLinksAddCommand() *cobra.Command {
	var link models.SharedLink
	var size string

	cmd := &cobra.Command{
		Use:   "add <original-link>",
		Short: "Add a shared link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, user, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if size != "" {
				bytes, err := humanize.ParseBytes(size)
				if err != nil {
					return fmt.Errorf("invalid size: %w", err)
				}
				link.Size = int64(bytes)
			}

			link.UserID = user
			link.OriginalLink = args[0]
			if link.CreatedBy == "" {
				link.CreatedBy = user
			}

			if err := st.CreateLink(cmd.Context(), &link); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added link %d\n", link.AutoID)
			return err
		},
	}

	cmd.Flags().StringVar(&link.Title, "title", "", "Link title")
	cmd.Flags().StringVar(&link.Host, "host", "", "Host the link is shared through")
	cmd.Flags().StringVar(&link.HostSharedLink, "shared-link", "", "Link on the host")
	cmd.Flags().StringVar(&link.CreatedBy, "created-by", "", "Creator (default is the user)")
	cmd.Flags().StringVar(&size, "size", "", `Size, e.g. "1.5 GiB" or "200MB"`)

	return cmd
}

func NewLinksRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <original-link>...",
		Short: "Remove shared links by their original link",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, user, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			n, err := st.DeleteLinks(ctx, user, args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d links\n", n)
			return err
		},
	}

	return cmd
}

func parseLinkID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid link id %q", arg)
	}
	return uint(id), nil
}

func NewLinksVisitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit <id>...",
		Short: "Record a visit of shared links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, user, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			now := time.Now()
			for _, arg := range args {
				id, err := parseLinkID(arg)
				if err != nil {
					return err
				}
				if err := st.RecordVisit(cmd.Context(), user, id, now); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Visited link %d\n", id)
			}
			return nil
		},
	}

	return cmd
}

func NewLinksEditCommand() *cobra.Command {
	var title, state, sharedLink, size string
	var stored int64

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a shared link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseLinkID(args[0])
			if err != nil {
				return err
			}

			st, user, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			link, err := st.GetLink(cmd.Context(), user, id)
			if err != nil {
				return fmt.Errorf("link %d: %w", id, err)
			}

			flags := cmd.Flags()
			if flags.Changed("title") {
				link.Title = title
			}
			if flags.Changed("state") {
				if strings.TrimSpace(state) == "" {
					return fmt.Errorf("state must not be empty")
				}
				link.State = state
			}
			if flags.Changed("shared-link") {
				link.HostSharedLink = sharedLink
			}
			if flags.Changed("stored") {
				link.Stored = stored
			}
			if flags.Changed("size") {
				bytes, err := humanize.ParseBytes(size)
				if err != nil {
					return fmt.Errorf("invalid size: %w", err)
				}
				link.Size = int64(bytes)
			}

			if err := st.UpdateLink(cmd.Context(), link); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated link %d\n", id)
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Link title")
	cmd.Flags().StringVar(&state, "state", "", `State, e.g. "Expired"`)
	cmd.Flags().StringVar(&sharedLink, "shared-link", "", "Link on the host")
	cmd.Flags().Int64Var(&stored, "stored", 0, "Times the link was stored")
	cmd.Flags().StringVar(&size, "size", "", `Size, e.g. "1.5 GiB" or "200MB"`)

	return cmd
}
