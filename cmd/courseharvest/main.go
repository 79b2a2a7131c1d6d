package main

import (
	"courseharvest/cmd/courseharvest/commands"
	"courseharvest/lib/serviceutil"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
