package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"quiz-platform-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
