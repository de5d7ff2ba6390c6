package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"browser-query/internal/adapter/clicmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := clicmds.NewApp(&clicmds.Runner{Out: os.Stdout})
	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
