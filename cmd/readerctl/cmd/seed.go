package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/audioreader/internal/auth"
	"github.com/nikhilbhutani/audioreader/internal/config"
	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/store"
)

var (
	seedEmail    string
	seedPassword string
	seedAdmin    bool
)

var seedUserCmd = &cobra.Command{
	Use:   "seed-user",
	Short: "Create a user directly in Redis",
	Long:  `seed-user writes a user record using REDIS_ADDR, REDIS_PASSWORD and REDIS_DB. It does not go through the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		hash, err := auth.HashPassword(seedPassword)
		if err != nil {
			return err
		}

		u := &models.User{
			ID:           uuid.NewString(),
			Email:        seedEmail,
			PasswordHash: hash,
			IsAdmin:      seedAdmin,
			CreatedAt:    models.Timestamp(time.Now()),
		}
		if err := store.New(rdb).CreateUser(cmd.Context(), u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), u.ID)
		return nil
	},
}

func init() {
	seedUserCmd.Flags().StringVar(&seedEmail, "email", "", "user email")
	seedUserCmd.Flags().StringVar(&seedPassword, "password", "", "user password")
	seedUserCmd.Flags().BoolVar(&seedAdmin, "admin", false, "grant admin access")
	_ = seedUserCmd.MarkFlagRequired("email")
	_ = seedUserCmd.MarkFlagRequired("password")
}
