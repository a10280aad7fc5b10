package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/janyojana/sahayak/internal/ai/gemini"
	"github.com/janyojana/sahayak/internal/catalog"
	"github.com/janyojana/sahayak/internal/logger"
	"github.com/janyojana/sahayak/internal/orchestrator"
	"github.com/janyojana/sahayak/internal/profile"
	"github.com/janyojana/sahayak/internal/secrets"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Match a profile against the scheme catalog and analyze eligibility with AI",
	Run: func(cmd *cobra.Command, _ []string) {
		discover(cmd)
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().String("state", "", "state of residence (e.g. maharashtra)")
	discoverCmd.Flags().String("income", "", "annual income range (e.g. 50000-100000)")
	discoverCmd.Flags().String("education", "", "education level (e.g. graduate)")
	discoverCmd.Flags().String("occupation", "", "occupation (e.g. self-employed)")
	discoverCmd.Flags().String("category", "", "social category (e.g. general)")
	discoverCmd.Flags().String("language", "", "result language, en or hi")
	discoverCmd.Flags().BoolP("interactive", "i", false, "ask for missing profile attributes interactively")
}

func discover(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting sahayak", zap.String("version", version))

	store, err := catalog.Load(config.CatalogFile, logger)
	if err != nil {
		logger.Fatal("loading the scheme catalog", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config, logger)
	if err != nil {
		logger.Fatal(
			"building the reasoning client",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	userProfile, err := buildProfile(cmd, config)
	if err != nil {
		logger.Fatal("building the profile", zap.Error(err))
	}

	service := orchestrator.New(store, generator, orchestratorConfig(config), logger)

	outcome, err := service.Discover(ctx, userProfile)
	if err != nil {
		logger.Fatal("discovery failed", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		logger.Fatal("rendering the outcome", zap.Error(err))
	}
	fmt.Println(string(pretty))

	if outcome.Status == orchestrator.StatusFailed {
		os.Exit(1)
	}
}

func newGenerator(ctx context.Context, config *Config, log *zap.Logger) (*gemini.Client, error) {
	aiConfig := config.AI
	if aiConfig == nil {
		aiConfig = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(aiConfig.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", aiConfig.Provider)
	}

	geminiConfig := aiConfig.Gemini
	if geminiConfig == nil {
		geminiConfig = &GeminiConfig{}
	}

	keyFile := geminiConfig.APIKeyFile
	if keyFile == "" {
		keyFile = viper.GetString("ai.gemini.api-key-file")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, err
	}

	opts := gemini.Options{
		Model:      geminiConfig.Model,
		MaxRetries: geminiConfig.MaxRetries,
	}
	if config.Timeouts != nil {
		opts.CallTimeout = config.Timeouts.Call
	}

	return gemini.New(ctx, apiKey, opts, log)
}

func orchestratorConfig(config *Config) orchestrator.Config {
	cfg := orchestrator.Config{Concurrency: config.Concurrency}
	if config.Timeouts != nil {
		cfg.RequestTimeout = config.Timeouts.Request
		cfg.MatchingTimeout = config.Timeouts.Matching
	}
	return cfg
}

// buildProfile assembles the profile from flags, falling back to config
// defaults and, with --interactive, to prompts for anything still missing.
func buildProfile(cmd *cobra.Command, config *Config) (profile.Profile, error) {
	flagValue := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return strings.TrimSpace(v)
	}

	p := profile.Profile{
		State:          flagValue("state"),
		IncomeRange:    flagValue("income"),
		EducationLevel: flagValue("education"),
		Occupation:     flagValue("occupation"),
		Category:       flagValue("category"),
		Language:       flagValue("language"),
	}

	if p.Language == "" {
		p.Language = strings.TrimSpace(config.Language)
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	if interactive {
		if err := fillInteractively(&p); err != nil {
			return p, err
		}
	}

	if p.Language == "" {
		p.Language = profile.LanguageEnglish
	}

	return p, nil
}

func fillInteractively(p *profile.Profile) error {
	ask := func(label string, target *string) error {
		if *target != "" {
			return nil
		}
		entry := promptui.Prompt{
			Label: label,
			Validate: func(input string) error {
				if strings.TrimSpace(input) == "" {
					return fmt.Errorf("a value is required")
				}
				return nil
			},
		}
		value, err := entry.Run()
		if err != nil {
			return err
		}
		*target = strings.TrimSpace(value)
		return nil
	}

	if err := ask("State of residence", &p.State); err != nil {
		return err
	}
	if err := ask("Annual income range", &p.IncomeRange); err != nil {
		return err
	}
	if err := ask("Education level", &p.EducationLevel); err != nil {
		return err
	}
	if err := ask("Occupation", &p.Occupation); err != nil {
		return err
	}
	if err := ask("Social category", &p.Category); err != nil {
		return err
	}

	if p.Language == "" {
		languagePrompt := promptui.Select{
			Label: "Result language",
			Items: []string{profile.LanguageEnglish, profile.LanguageHindi},
		}
		_, language, err := languagePrompt.Run()
		if err != nil {
			return err
		}
		p.Language = language
	}

	return nil
}
