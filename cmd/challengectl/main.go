// challengectl is the operator tool for the daily challenge schedule.
//
//	challengectl import --file schedule.json
//	challengectl award --id 42
//	challengectl award-pending
//	challengectl create-admin --username ops --password '...'
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"lingoquest/config"
	"lingoquest/database"
	"lingoquest/events"
	"lingoquest/models"
	"lingoquest/services"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	cfgFile string
	db      *gorm.DB
	svc     *services.Challenges
	pub     *events.NATSPublisher
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "challengectl",
		Short: "Operator tool for the daily challenge schedule",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if pub != nil {
				pub.Close()
			}
			if db != nil {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_FILE"), "config file path")

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(awardCmd())
	rootCmd.AddCommand(awardPendingCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err = database.Open(cfg.Database, gormlogger.Warn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	cal, err := services.NewCalendar(cfg.Challenge.Timezone)
	if err != nil {
		return fmt.Errorf("challenge timezone: %w", err)
	}
	policy := services.Policy{
		MaxAttempts:  cfg.Challenge.MaxAttempts,
		PassingScore: cfg.Challenge.PassingScore,
		Tiers: services.TierPolicy{
			IntermediateLevel: cfg.Challenge.IntermediateLevel,
			AdvancedLevel:     cfg.Challenge.AdvancedLevel,
		},
		LeaderboardTTL: cfg.Challenge.LeaderboardTTL,
	}

	var publisher events.Publisher = events.Nop()
	if cfg.NATS.URL != "" {
		if np, err := events.NewNATSPublisher(cfg.NATS.URL, nil); err == nil {
			pub = np
			publisher = np
		} else {
			log.Printf("Warning: NATS unavailable, events not published: %v", err)
		}
	}
	svc = services.NewChallenges(db, cal, policy, nil, publisher, nil)
	return nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 10*time.Minute)
}

func importCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Batch-create challenge days from a JSON schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return runImport(ctx, svc.Catalog, file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "schedule.json", "JSON array of challenge days")
	return cmd
}

func awardCmd() *cobra.Command {
	var id uint

	cmd := &cobra.Command{
		Use:   "award",
		Short: "Award the podium of one challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == 0 {
				return errors.New("--id is required")
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return runAward(ctx, svc.Prizes, id)
		},
	}
	cmd.Flags().UintVar(&id, "id", 0, "challenge id")
	return cmd
}

func awardPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "award-pending",
		Short: "Award every closed challenge still waiting for prizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return runAwardPending(ctx, svc.Prizes)
		},
	}
}

func createAdminCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an operator account or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			user, err := createAdmin(ctx, db, username, password)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Admin %s ready (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "admin password (min 12 characters)")
	return cmd
}

func runImport(ctx context.Context, catalog *services.Catalog, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open schedule: %w", err)
	}
	defer f.Close()

	days, err := loadSchedule(f)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d challenge days\n\n", len(days))

	report := importSchedule(ctx, catalog, days)
	fmt.Printf("\n✓ Created %d challenges, skipped %d existing days, %d failed\n",
		report.Created, report.Skipped, len(report.Failed))
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d days failed to import", len(report.Failed))
	}
	return nil
}

// loadSchedule decodes a JSON array of batch inputs, one per day
func loadSchedule(r io.Reader) ([]services.BatchInput, error) {
	var days []services.BatchInput
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&days); err != nil {
		return nil, fmt.Errorf("parse schedule: %w", err)
	}
	return days, nil
}

type importReport struct {
	Created int
	Skipped int
	Failed  map[string]error
}

// importSchedule creates each day atomically. Days that already exist are skipped.
func importSchedule(ctx context.Context, catalog *services.Catalog, days []services.BatchInput) importReport {
	report := importReport{Failed: map[string]error{}}
	for _, day := range days {
		created, err := catalog.BatchCreate(ctx, day)
		switch {
		case errors.Is(err, services.ErrDuplicateChallenge):
			fmt.Printf("Skipping %s: already scheduled\n", day.Date)
			report.Skipped++
		case err != nil:
			log.Printf("Error importing %s: %v\n", day.Date, err)
			report.Failed[day.Date] = err
		default:
			fmt.Printf("Scheduled %s (%d tiers)\n", day.Date, len(created))
			report.Created += len(created)
		}
	}
	return report
}

func runAward(ctx context.Context, prizes *services.Prizes, id uint) error {
	res, err := prizes.AwardWinners(ctx, id)
	if err != nil {
		return err
	}
	if res.AlreadyAwarded {
		fmt.Printf("Challenge %d was already awarded\n", id)
		return nil
	}
	for _, p := range res.Awarded {
		fmt.Printf("#%d user %d (score %d, %ds): +%d XP, +%d gems\n",
			p.Rank, p.UserID, p.Score, p.TimeSpent, p.XPAwarded, p.GemsAwarded)
	}
	fmt.Printf("✓ Awarded %d winners for challenge %d\n", len(res.Awarded), id)
	return nil
}

func runAwardPending(ctx context.Context, prizes *services.Prizes) error {
	report, err := prizes.AwardPending(ctx)
	if err != nil {
		return err
	}
	for _, r := range report.Awarded {
		fmt.Printf("Challenge %d: %d winners\n", r.ChallengeID, len(r.Awarded))
	}
	for _, f := range report.Failures {
		log.Printf("Challenge %d failed: %s\n", f.ChallengeID, f.Error)
	}
	fmt.Printf("✓ Sweep for %s: %d awarded, %d failed\n", report.Today, len(report.Awarded), len(report.Failures))
	if len(report.Failures) > 0 {
		return fmt.Errorf("%d challenges failed", len(report.Failures))
	}
	return nil
}

// createAdmin creates the account, or promotes and re-keys an existing one
func createAdmin(ctx context.Context, db *gorm.DB, username, password string) (*models.User, error) {
	if username == "" || len(password) < 12 {
		return nil, errors.New("username is required and password must be at least 12 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Username: username, DisplayName: username, Password: string(hash), IsAdmin: true, Level: 1}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := db.WithContext(ctx).Model(&user).Updates(map[string]any{"password": string(hash), "is_admin": true}).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}
