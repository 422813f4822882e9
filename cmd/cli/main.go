package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/accountkeeper/internal/client/cli"
	"github.com/dmitrijs2005/accountkeeper/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	log.SetFlags(0)
	log.SetPrefix("accountkeeper: ")

	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("cannot start: %v", err)
	}

	fmt.Printf("Server %s, session file %s\n", cfg.ServerEndpointAddr, cfg.SessionFile)

	app.Run(context.Background())
}
