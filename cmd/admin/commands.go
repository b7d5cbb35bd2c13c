package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"civicdesk/backend/internal/auth"
	"civicdesk/backend/internal/category"
	"civicdesk/backend/internal/config"
	"civicdesk/backend/internal/models"
	"civicdesk/backend/internal/stats"
	"civicdesk/backend/internal/storage"

	"github.com/spf13/cobra"
)

type app struct {
	cfg  *config.Config
	open func(ctx context.Context, migrate bool) (storage.Storage, error)
}

// withStore opens the store for one command and closes it afterwards.
func (a *app) withStore(ctx context.Context, migrate bool, fn func(storage.Storage) error) error {
	s, err := a.open(ctx, migrate)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator commands for the civicdesk backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables (Postgres) or indexes (Mongo)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), true, func(storage.Storage) error {
				cmd.Printf("schema is up to date (%s)\n", a.cfg.StoreDriver)
				return nil
			})
		},
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default categories and the admin account from ADMIN_EMAIL/ADMIN_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), false, func(s storage.Storage) error {
				return seed(cmd, a.cfg, s)
			})
		},
	}

	var department string
	setRoleCmd := &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change a user's role (citizen, official, admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), false, func(s storage.Storage) error {
				u, err := setRole(cmd.Context(), s, args[0], models.Role(args[1]), department)
				if err != nil {
					return err
				}
				cmd.Printf("%s is now %s\n", u.Email, u.Role)
				return nil
			})
		},
	}
	setRoleCmd.Flags().StringVar(&department, "department", "", "department for officials")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dashboard reports",
	}
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the complaint summary as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), false, func(s storage.Storage) error {
				sum, err := stats.NewService(s, nil, 0).Summary(cmd.Context())
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(sum, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(out))
				return nil
			})
		},
	}
	statsCmd.AddCommand(summaryCmd)

	root.AddCommand(migrateCmd, seedCmd, setRoleCmd, statsCmd)
	return root
}

func seed(cmd *cobra.Command, cfg *config.Config, s storage.Storage) error {
	ctx := cmd.Context()
	n, err := category.NewService(s).SeedDefaults(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("categories added: %d\n", n)

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		cmd.Println("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin account")
		return nil
	}
	authSvc := auth.NewService(s, auth.NewTokens(cfg.JWTSecret, time.Hour))
	u, err := authSvc.EnsureAdmin(ctx, "Administrator", cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return err
	}
	cmd.Printf("admin account: %s\n", u.Email)
	return nil
}

// setRole is the operator path for promotions; it does not need an admin
// actor, unlike the HTTP endpoint.
func setRole(ctx context.Context, s storage.UserStore, email string, role models.Role, department string) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	u, err := s.GetUserByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", email, err)
	}
	if u == nil {
		return nil, errors.New("user not found")
	}
	u.Role = role
	if department != "" {
		u.Department = department
	}
	if err := s.SaveUser(ctx, u); err != nil {
		return nil, fmt.Errorf("save %s: %w", email, err)
	}
	return u, nil
}
