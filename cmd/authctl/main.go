package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/authctl"
	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, authctl.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("authctl: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args, nil)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.NewJSONLogger(os.Stderr, "warn")

	svc, closeRepo, err := server.NewUserService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	app := authctl.NewApp(svc, os.Stdin, os.Stdout)
	return app.Run(ctx, flagx.StripArgs(args, config.FlagNames()))
}
