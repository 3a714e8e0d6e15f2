package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/yukikurage/taskdesk/internal/access"
	"github.com/yukikurage/taskdesk/internal/constants"
	"github.com/yukikurage/taskdesk/internal/repository"
	"github.com/yukikurage/taskdesk/internal/seed"
	"github.com/yukikurage/taskdesk/internal/utils"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(db *gorm.DB) error {
				fmt.Println("migrations applied")
				return nil
			})
		},
	}
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users that do not exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx, err := seed.Default()
			if file != "" {
				fx, err = seed.Load(file)
			}
			if err != nil {
				return err
			}

			return withDB(func(db *gorm.DB) error {
				results, err := seed.Seed(cmd.Context(), repository.NewUserRepository(db), fx)
				if err != nil {
					return err
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Company", "Result"})
				for _, r := range results {
					result := "exists"
					if r.Created {
						result = "created"
					}
					tw.AppendRow(table.Row{r.User.ID, r.User.Name, r.User.Email, r.User.Role, r.User.CompanyName(), result})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML fixtures file (defaults to the built-in demo users)")
	return cmd
}

func usersCmd() *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Inspect user accounts"}
	users.AddCommand(usersListCmd())
	return users
}

func usersListCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := utils.NewPaginationParams(page, limit)

			return withDB(func(db *gorm.DB) error {
				scope := access.Scope{Kind: access.KindUser, Predicate: access.PredicateAll}
				users, total, err := repository.NewUserRepository(db).List(cmd.Context(), scope, params)
				if err != nil {
					return err
				}

				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role", "Company", "Created"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role, u.CompanyName(), u.CreatedAt.Format("2006-01-02")})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "Total", total})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", constants.DefaultPageSize, "page size")
	return cmd
}
