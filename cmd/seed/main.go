package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"libris/internal/auth"
	"libris/internal/config"
	"libris/internal/db"
	"libris/internal/repository"
	"libris/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		fixturePath string
		reset       bool
		tokens      bool
		tokenTTL    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and books into the library database",
		Long: "seed creates the users and books of a JSON fixture through the library services.\n" +
			"Existing users (by email) and books (by title and author) are skipped.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("Starting seed script...")
			cfg := config.Load()

			fx, err := loadFixture(fixturePath)
			if err != nil {
				return err
			}

			gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			log.Println("Connected to database")

			if err := db.Migrate(gormDB, reset || cfg.ResetDB); err != nil {
				return err
			}
			log.Println("Database migrations completed")

			store := repository.NewStore(gormDB)
			ctx := context.Background()
			res, err := seed(ctx, store, service.NewCatalogService(store, nil), service.NewUserService(store, nil), fx)
			if err != nil {
				return err
			}

			log.Printf("Seed completed successfully!")
			log.Printf("  - Users created: %d (skipped %d)", res.UsersCreated, res.UsersSkipped)
			log.Printf("  - Books created: %d (skipped %d)", res.BooksCreated, res.BooksSkipped)
			log.Printf("  - Copies added: %d", res.CopiesAdded)

			if tokens {
				return printTokens(cmd.OutOrStdout(), auth.NewJWTService(cfg.JWTSecret), res.Users, tokenTTL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&fixturePath, "file", "f", "", "fixture JSON file (defaults to the built-in fixture)")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate every table first")
	cmd.Flags().BoolVar(&tokens, "tokens", false, "print a development bearer token per seeded user")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", auth.AccessTokenExpiry, "lifetime of printed tokens")
	return cmd
}
