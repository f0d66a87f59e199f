package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/unbfeelings/backend/core"
	"github.com/unbfeelings/backend/core/user"
	emailsvc "github.com/unbfeelings/backend/services/email"
	logsvc "github.com/unbfeelings/backend/services/logger"
	"github.com/unbfeelings/backend/storage/database"
	sqlxrepos "github.com/unbfeelings/backend/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Ping(context.Background(), db); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db: db.DB,
		usrSvc: user.NewService(
			sqlxrepos.NewUserRepository(db),
			sqlxrepos.NewSchoolRepository(db),
			emailsvc.NewConsoleService(conf, logger),
			conf,
		),
	}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Error(fmt.Sprintf("error: %v", err), err)
	}
	_ = db.Close()
	logger.Close()

	if err != nil {
		os.Exit(1)
	}
}
