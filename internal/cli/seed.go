package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"quiz-platform-service/internal/app"
)

// NewSeedCmd creates a published sample quiz owned by an instructor.
func NewSeedCmd(configPath *string) *cobra.Command {
	var instructorID string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a sample quiz",
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructorID == "" {
				return fmt.Errorf("--instructor is required")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.RequirePostgres(); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			detail, err := svc.quizzes.CreateQuiz(cmd.Context(), instructorID, sampleQuiz())
			if err != nil {
				return err
			}
			log.Info().Str("quizID", detail.Quiz.ID).Int("questions", len(detail.Questions)).Msg("sample quiz created")
			fmt.Fprintln(cmd.OutOrStdout(), detail.Quiz.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&instructorID, "instructor", "", "instructor user id that owns the quiz")
	return cmd
}

func sampleQuiz() app.QuizInput {
	return app.QuizInput{
		Title:       "General Knowledge Warm-up",
		Description: "One question of every kind.",
		Category:    "General Knowledge",
		TimeLimit:   10,
		Published:   true,
		Settings: &app.SettingsInput{
			ShuffleOptions: true,
			ShowResults:    "after-submission",
			AllowRetakes:   true,
			MaxRetakes:     2,
			PassingScore:   60,
		},
		Questions: []app.QuestionInput{
			{
				Type:   "multiple-choice",
				Text:   "What is 2 + 2?",
				Points: 1,
				Options: []app.OptionInput{
					{Text: "3"},
					{Text: "4", Correct: true},
					{Text: "5"},
				},
			},
			{Type: "true-false", Text: "Water boils at 100°C at sea level.", Answer: "true"},
			{Type: "short-answer", Text: "Which planet is known as the Red Planet?", Answer: "Mars"},
			{Type: "fill-blank", Text: "The chemical symbol for gold is ___.", Answer: "Au"},
			{
				Type:   "matching",
				Text:   "Match each country with its capital.",
				Points: 3,
				Options: []app.OptionInput{
					{Text: "France", MatchText: "Paris"},
					{Text: "Japan", MatchText: "Tokyo"},
					{Text: "Kenya", MatchText: "Nairobi"},
				},
			},
		},
	}
}
