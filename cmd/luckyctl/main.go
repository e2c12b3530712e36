package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const releaseVersion = "0.1.0"

func main() {
	log.SetFlags(0)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := &Config{}
	cmd := newCmd(cfg)
	cmd.SetOut(os.Stdout)
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
