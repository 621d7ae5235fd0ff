package cli

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workhours/database"
)

func newMigrateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, closeDB, err := app.openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			app.log.Info("database migrated")
			fmt.Fprintln(cmd.OutOrStdout(), "Database schema is up to date.")
			return nil
		},
	}
}

func newSeedCommand(app *App) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo employees and work entries",
		Long: `Create three demo employees and one entry per employee for each of the
last seven days. Running it again only adds entries for slots that are
still free.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := app.openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			rnd := rand.New(rand.NewPCG(seed, seed>>1))

			report, err := database.SeedDemo(cmd.Context(), store, time.Now(), rnd, app.log)
			if err != nil {
				return err
			}

			app.log.Info("demo data seeded",
				zap.Int("employees_created", report.EmployeesCreated),
				zap.Int("entries_created", report.EntriesCreated),
				zap.Int("entries_skipped", report.EntriesSkipped))
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo data: %d employees, %d entries created, %d skipped.\n",
				report.EmployeesCreated, report.EntriesCreated, report.EntriesSkipped)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for the generated shifts (default: time based)")
	return cmd
}

func newCreateUserCommand(app *App) *cobra.Command {
	var (
		username   string
		password   string
		fullName   string
		mustChange bool
	)

	cmd := &cobra.Command{
		Use:   "createuser",
		Short: "Create a staff account that can sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := app.openStore()
			if err != nil {
				return err
			}
			defer closeDB()

			user, err := database.NewStaffUser(username, fullName, password, mustChange)
			if err != nil {
				return err
			}
			if err := store.CreateUser(cmd.Context(), user); err != nil {
				return err
			}

			app.log.Info("user created", zap.String("username", user.Username))
			fmt.Fprintf(cmd.OutOrStdout(), "User %q created.\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Login name (at least 3 characters)")
	cmd.Flags().StringVar(&password, "password", "", "Password (at least 5 characters)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Name shown in the navigation bar")
	cmd.Flags().BoolVar(&mustChange, "must-change-password", false, "Require a new password at first sign-in")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
