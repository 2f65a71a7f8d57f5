package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aitrainer/trainer-backend/internal/bank"
	"github.com/aitrainer/trainer-backend/internal/config"
	"github.com/aitrainer/trainer-backend/internal/database"
	"github.com/aitrainer/trainer-backend/internal/kvstore"
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/repository"
)

var (
	assetBase    string
	snapshotOut  string
	importDryRun bool
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect and import the question bank",
}

var bankNormalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize the bundled assets and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		assets := bank.NewAssetStore(assetDir())
		theory, err := assets.FetchTheory(ctx)
		if err != nil {
			return err
		}
		code, err := assets.FetchOperational(ctx)
		if err != nil {
			return err
		}
		snap := bank.Normalize(theory, code, time.Now())

		for _, c := range bank.NewPool(snap).Listing() {
			fmt.Printf("%-32s %-12s %4d\n", c.ID, c.Section, c.QuestionCount)
		}
		fmt.Printf("\n%d categories, %d theory, %d operational\n",
			len(snap.Categories), len(snap.TheoryQuestions), len(snap.CodeQuestions))

		if snapshotOut == "" {
			return nil
		}
		raw, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(snapshotOut, raw, 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		fmt.Printf("Snapshot written to %s\n", snapshotOut)
		return nil
	},
}

var bankImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert the bundled theory questions into the question_bank table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		theory, err := bank.NewAssetStore(assetDir()).FetchTheory(ctx)
		if err != nil {
			return err
		}
		rows := make([]model.QuestionBankRow, 0, len(theory))
		for _, rec := range theory {
			if rec.ID == "" {
				log.Warn().Str("question", rec.Question).Msg("Skipping question without id")
				continue
			}
			rows = append(rows, bank.ToBankRow(rec))
		}

		if importDryRun {
			fmt.Printf("%d rows would be imported\n", len(rows))
			return nil
		}

		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		n, err := repository.NewQuestionBankRepository(pool).Import(ctx, rows)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		log.Info().Int64("rows", n).Msg("Question bank imported")
		fmt.Printf("Imported %d rows. Run 'trainerctl bank clear-cache' or send SIGHUP to the server to pick them up.\n", n)
		return nil
	},
}

var bankClearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Drop the cached bank snapshot so the next load reads the sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer rdb.Close()

		if err := kvstore.NewRedisStore(rdb).Remove(ctx, config.CacheKey.BankSnapshotKey()); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Println("Bank snapshot cache cleared")
		return nil
	},
}

func init() {
	bankCmd.PersistentFlags().StringVar(&assetBase, "assets", "", "Asset directory or URL (defaults to ASSET_BASE_URL)")
	bankNormalizeCmd.Flags().StringVarP(&snapshotOut, "out", "o", "", "Write the normalized snapshot as JSON to this file")
	bankImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Only count the rows that would be imported")

	bankCmd.AddCommand(bankNormalizeCmd, bankImportCmd, bankClearCacheCmd)
}

func assetDir() string {
	if assetBase != "" {
		return assetBase
	}
	return cfg.AssetBaseURL
}
