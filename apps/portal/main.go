package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/trezcool/stage/core"
	logsvc "github.com/trezcool/stage/services/logger"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "PORTAL : ", log.LstdFlags), conf)

	p := portal{
		apiURL:     conf.APIBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	err := p.run(context.Background(), os.Args)
	logger.Close()
	if err != nil {
		if err != errHelp {
			log.Printf("error: %s\n", err)
		}
		os.Exit(1)
	}
}
