package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/barangay/egov/internal/config"
	"github.com/barangay/egov/internal/domain/account"
	"github.com/barangay/egov/internal/domain/profiling"
	"github.com/barangay/egov/internal/domain/waste"
	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/auth"
	"github.com/barangay/egov/internal/platform/db"
	"github.com/barangay/egov/internal/platform/listview"
	"github.com/barangay/egov/internal/platform/wizard"
	"github.com/barangay/egov/migrations"
)

// console is what one CLI invocation runs with: the services, backed by the
// configured stores and authenticated with CONSOLE_TOKEN, and an app context
// for a console operator.
type console struct {
	cfg    *config.Config
	logger zerolog.Logger
	stores stores
	svcs   services
	ac     *appctx.Context
}

func openConsole(ctx context.Context) (*console, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b, err := newBackends(cfg, auth.StaticToken(cfg.ConsoleToken), logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	s := auth.Session{UserID: "console", StaffID: "console", Roles: []string{auth.RoleAdmin}}
	return &console{
		cfg:    cfg,
		logger: logger,
		stores: st,
		svcs:   newServices(b, st.cooldowns, cfg.OTPCooldown),
		ac:     appctx.New(s, nil, newQueryClient(cfg, logger), logger),
	}, nil
}

func (c *console) Close() { c.stores.Close() }

// flushToasts prints the notifications raised so far.
func (c *console) flushToasts(w io.Writer) {
	for _, t := range c.ac.Toasts.Drain() {
		fmt.Fprintf(w, "[%s] %s\n", t.Level, t.Message)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations for the draft and cooldown tables",
	}

	openMigrator := func(cmd *cobra.Command) (*db.Migrator, func(), error) {
		schema, _ := cmd.Flags().GetString("schema")
		dir, _ := cmd.Flags().GetString("dir")

		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if !cfg.UsePostgres() {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for migrations")
		}
		pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		var fsys fs.FS = migrations.FS
		if dir != "" {
			fsys = os.DirFS(dir)
		}
		return db.NewMigrator(pool, fsys, schema), pool.Close, nil
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := m.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := openMigrator(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrations(cmd.OutOrStdout(), statuses)
			return nil
		},
	}

	for _, c := range []*cobra.Command{upCmd, statusCmd} {
		c.Flags().String("schema", db.DefaultSchema, "Target schema for migrations")
		c.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
		cmd.AddCommand(c)
	}
	return cmd
}

func printMigrations(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func trucksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trucks",
		Short: "Manage waste collection trucks",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List trucks",
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			archived, _ := cmd.Flags().GetBool("archived")
			page, _ := cmd.Flags().GetInt("page")

			con, err := openConsole(cmd.Context())
			if err != nil {
				return err
			}
			defer con.Close()

			p := listview.NewPager(listview.ModeReplace, 10)
			p.Page = page
			s := con.svcs.waste.Trucks(cmd.Context(), con.ac, listview.Filter{Search: search, Archived: archived}, p)
			if s.Err != nil {
				return s.Err
			}
			printTrucks(cmd.OutOrStdout(), s)
			return nil
		},
	}
	listCmd.Flags().String("search", "", "Match plate number or model")
	listCmd.Flags().Bool("archived", false, "List archived trucks")
	listCmd.Flags().Int("page", 1, "Page number")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a truck",
		RunE: func(cmd *cobra.Command, args []string) error {
			var f waste.TruckForm
			f.PlateNum, _ = cmd.Flags().GetString("plate")
			f.Model, _ = cmd.Flags().GetString("model")
			f.Capacity, _ = cmd.Flags().GetString("capacity")
			f.Status, _ = cmd.Flags().GetString("status")
			f.LastMaint, _ = cmd.Flags().GetString("last-maint")

			con, err := openConsole(cmd.Context())
			if err != nil {
				return err
			}
			defer con.Close()
			defer con.flushToasts(cmd.ErrOrStderr())

			t, err := con.svcs.waste.CreateTruck(cmd.Context(), con.ac, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created truck %d (%s)\n", t.ID, t.PlateNum)
			return nil
		},
	}
	createCmd.Flags().String("plate", "", "Plate number")
	createCmd.Flags().String("model", "", "Truck model")
	createCmd.Flags().String("capacity", "", "Capacity in tons")
	createCmd.Flags().String("status", waste.StatusOperational, "Truck status")
	createCmd.Flags().String("last-maint", "", "Last maintenance date (YYYY-MM-DD)")

	rowCmd := func(use, short string, run func(con *console, ctx context.Context, id int) error) *cobra.Command {
		c := &cobra.Command{
			Use:   use + " <truck-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid truck id %q", args[0])
				}
				if yes, _ := cmd.Flags().GetBool("yes"); !yes {
					return fmt.Errorf("%s truck %d: pass --yes to confirm", use, id)
				}
				con, err := openConsole(cmd.Context())
				if err != nil {
					return err
				}
				defer con.Close()
				defer con.flushToasts(cmd.ErrOrStderr())
				return run(con, cmd.Context(), id)
			},
		}
		c.Flags().Bool("yes", false, "Confirm the action")
		return c
	}

	cmd.AddCommand(listCmd, createCmd,
		rowCmd("archive", "Archive a truck", func(con *console, ctx context.Context, id int) error {
			return con.svcs.waste.ArchiveTruck(ctx, con.ac, id)
		}),
		rowCmd("restore", "Restore an archived truck", func(con *console, ctx context.Context, id int) error {
			return con.svcs.waste.RestoreTruck(ctx, con.ac, id)
		}),
		rowCmd("delete", "Delete a truck permanently", func(con *console, ctx context.Context, id int) error {
			return con.svcs.waste.DeleteTruck(ctx, con.ac, id)
		}),
	)
	return cmd
}

func printTrucks(w io.Writer, s listview.State[waste.Truck]) {
	if s.Empty {
		fmt.Fprintln(w, "No trucks found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLATE\tMODEL\tCAPACITY\tSTATUS\tLAST MAINTENANCE")
	for _, t := range s.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.PlateNum, t.Model, t.Capacity, t.Status, t.LastMaint)
	}
	tw.Flush()
	fmt.Fprintf(w, "Page %d, %d of %d trucks\n", s.Page, len(s.Items), s.Total)
}

// residentsCmd searches the resident registry interactively: every input line
// replaces the search text, and a search runs once typing pauses.
func residentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "residents",
		Short: "Search the resident registry",
	}
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search residents as you type (one line per edit, Ctrl-D to quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := openConsole(cmd.Context())
			if err != nil {
				return err
			}
			defer con.Close()
			return searchResidents(cmd.Context(), con, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(searchCmd)
	return cmd
}

// searchResidents prints the matches each time a search commits. End of input
// commits whatever was typed last.
func searchResidents(ctx context.Context, con *console, in io.Reader, out io.Writer) error {
	var mu sync.Mutex
	view := con.svcs.profiling.Directory(con.ac, listview.Filter{}, listview.NewPager(listview.ModeLoadMore, profiling.PageStep))
	box := view.Watch(ctx, con.cfg.SearchDebounce, func(s listview.State[profiling.Resident]) {
		mu.Lock()
		defer mu.Unlock()
		if s.Err != nil {
			fmt.Fprintf(out, "search %q failed: %v\n", s.Filter.Search, s.Err)
			return
		}
		fmt.Fprintf(out, "%d resident(s) match %q\n", s.Total, s.Filter.Search)
		for _, r := range s.Items {
			fmt.Fprintf(out, "  %s  %s\n", r.ID, r.FullName())
		}
	})
	defer box.Close()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		box.Type(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	box.Flush()
	return nil
}

func otpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Send and check phone verification codes",
	}

	sendCmd := &cobra.Command{
		Use:   "send <phone>",
		Short: "Text a verification code to a phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := openConsole(cmd.Context())
			if err != nil {
				return err
			}
			defer con.Close()
			defer con.flushToasts(cmd.ErrOrStderr())

			sent, err := con.svcs.account.SendCode(cmd.Context(), con.ac, account.SendRequest{Phone: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Code sent to %s; next code available in %ds\n", sent.Phone, sent.RetryAfterSecs)
			return nil
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <phone> <code>",
		Short: "Check a verification code with the backend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			con, err := openConsole(cmd.Context())
			if err != nil {
				return err
			}
			defer con.Close()
			defer con.flushToasts(cmd.ErrOrStderr())

			v, err := con.svcs.account.VerifyCode(cmd.Context(), con.ac, account.VerifyRequest{Phone: args[0], Code: args[1]})
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(v)
		},
	}

	cmd.AddCommand(sendCmd, verifyCmd)
	return cmd
}

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Maintain saved wizard drafts",
	}
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete drafts untouched for longer than DRAFT_TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			con, err := openConsole(cmd.Context())
			if err != nil {
				return err
			}
			defer con.Close()
			if ttl <= 0 {
				ttl = con.cfg.DraftTTL
			}
			mgr := wizard.NewManager(newRegistry(con.svcs), con.stores.drafts, wizard.WithDraftTTL(ttl))
			n, err := mgr.Purge(cmd.Context())
			if err != nil {
				return err
			}
			con.logger.Info().Int("purged", n).Dur("ttl", ttl).Msg("purged expired drafts")
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d draft(s) older than %s\n", n, ttl.Round(time.Second))
			return nil
		},
	}
	purgeCmd.Flags().Duration("ttl", 0, "Override DRAFT_TTL")
	cmd.AddCommand(purgeCmd)
	return cmd
}
