package main

import (
	"log"
	"os"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/user"
	logsvc "github.com/trezcool/stage/services/logger"
	"github.com/trezcool/stage/storage/database"
	sqlxrepos "github.com/trezcool/stage/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Ping(db.DB, 10); err != nil {
		logger.Fatal("pinging database", err)
	}

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db)),
		validate:   validate,
		translator: translator,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			log.Printf("error: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
