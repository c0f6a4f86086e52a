package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"steam-provider/cmd/steamscrape/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commands.ExecuteContext(ctx)
	cancel()
	os.Exit(code)
}
