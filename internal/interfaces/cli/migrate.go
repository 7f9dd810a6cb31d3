package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

// MigrationRunner is the part of postgres.Migrator the migrate command uses.
type MigrationRunner interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Force(version int) error
	Close() error
}

// NewMigrationRunner opens the runner used by migrate.  Tests replace it.
var NewMigrationRunner = func(cliCtx *CLIContext) (MigrationRunner, error) {
	return postgres.NewMigrator(cliCtx.Config.Database, cliCtx.Logger)
}

// NewMigrateCmd manages the record store schema.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, _ []string) error {
				if err := m.Up(); err != nil {
					return err
				}
				return printMigrationVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "down N",
			Short: "Roll back N migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, args []string) error {
				steps, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.New(errors.ErrCodeValidation, "steps must be an integer").WithDetail("steps=" + args[0])
				}
				if err := m.Down(steps); err != nil {
					return err
				}
				return printMigrationVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, _ []string) error {
				return printMigrationVersion(cmd, m)
			}),
		},
		&cobra.Command{
			Use:   "force V",
			Short: "Set the schema version without migrating, clearing a dirty state",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m MigrationRunner, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.New(errors.ErrCodeValidation, "version must be an integer").WithDetail("version=" + args[0])
				}
				if err := m.Force(v); err != nil {
					return err
				}
				return printMigrationVersion(cmd, m)
			}),
		},
	)
	return cmd
}

func withMigrator(fn func(*cobra.Command, MigrationRunner, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return err
		}
		m, err := NewMigrationRunner(cliCtx)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(cmd, m, args)
	}
}

// MigrationVersion is what every migrate subcommand prints.
type MigrationVersion struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (v MigrationVersion) String() string {
	if v.Dirty {
		return fmt.Sprintf("schema version %d (dirty)", v.Version)
	}
	return fmt.Sprintf("schema version %d", v.Version)
}

func printMigrationVersion(cmd *cobra.Command, m MigrationRunner) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	return PrintResult(cmd, MigrationVersion{Version: v, Dirty: dirty})
}
