package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Rotichtonny/TenaRentals/internal/app"
	"github.com/Rotichtonny/TenaRentals/internal/domain"
	"github.com/Rotichtonny/TenaRentals/internal/featureflags"
	"github.com/Rotichtonny/TenaRentals/internal/infrastructure/logger"
	"github.com/Rotichtonny/TenaRentals/internal/service"
	"github.com/Rotichtonny/TenaRentals/pkg/config"
)

// operator acts on behalf of whoever runs the CLI against the store directly
var operator = &domain.User{ID: "cli-operator", FullName: "CLI", Role: domain.RoleAdmin}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "tenarentals",
		Short:         "Operate the TenaRentals rental lifecycle engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged under the environment")

	open := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		return app.New(cmd.Context(), cfg, featureflags.Load(), logger.New(cmd.ErrOrStderr(), cfg.LogLevel))
	}

	root.AddCommand(
		migrateCmd(open),
		seedCmd(open),
		reconcileCmd(open),
		userCmd(open),
	)
	return root
}

type opener func(cmd *cobra.Command) (*app.App, error)

func migrateCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.DB == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "memory storage has no schema; nothing to do")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func seedCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo users and listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := service.Seed(cmd.Context(), a.Store, time.Now(), a.Logger)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "demo data already present")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users and %d properties (password %q)\n", res.Users, res.Properties, service.DemoPassword)
			return nil
		},
	}
}

func reconcileCmd(open opener) *cobra.Command {
	var autoPublish bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply due agreement activations and expiries once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Agreements.Reconcile(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			out := map[string]any{"agreements": res}
			if autoPublish {
				n, err := a.Properties.AutoPublish(cmd.Context())
				if err != nil {
					return err
				}
				out["published"] = n
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&autoPublish, "auto-publish", false, "also publish every approved property")
	return cmd
}

func userCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var in service.RegisterInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with any role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			u, err := a.Identity.CreateUser(cmd.Context(), operator, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email")
	create.Flags().StringVar(&in.Password, "password", "", "initial password, at least 8 characters")
	create.Flags().StringVar(&in.FullName, "name", "", "full name")
	create.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	create.Flags().StringVar(&in.Role, "role", string(domain.RoleTenant), "admin, evaluator, landlord or tenant")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")
	_ = create.MarkFlagRequired("name")

	setRole := &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change the role of an existing account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			target, err := a.Store.Users().GetByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			u, err := a.Identity.ChangeRole(cmd.Context(), operator, target.ID, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}

	var role string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			users, err := a.Identity.ListUsers(cmd.Context(), operator, role)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, u.FullName, u.Role)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&role, "role", "", "only this role")

	cmd.AddCommand(create, setRole, list)
	return cmd
}
