// main.go

package main

import (
	"fmt"
	"os"

	"github.com/serverforge/n8nctl/cmd"
	"github.com/serverforge/n8nctl/pkg/logger"
	"github.com/serverforge/n8nctl/pkg/telemetry"
)

func main() {
	logger.InitializeWithFallback()

	if err := telemetry.Init("n8nctl"); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
	}

	cmd.Execute()
}
