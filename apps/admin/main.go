package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Printf("setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewZap(std.Named("ADMIN"))

	// set up DB
	var db *sql.DB
	var usrRepo user.Repository
	if conf.Database.InMemory() {
		usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	} else {
		if err = database.CreateIfNotExist(conf); err != nil {
			logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
		}
		sqlxDB, err := database.Open(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() { _ = sqlxDB.Close() }()
		db = sqlxDB.DB
		usrRepo = sqlxrepos.NewUserRepository(sqlxDB)
	}

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: usrRepo,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		_ = std.Sync()
		os.Exit(1)
	}
}
