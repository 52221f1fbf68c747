package run

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v6"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cyberkelysoatra/bazarkely-sub000/api"
	"github.com/cyberkelysoatra/bazarkely-sub000/family"
	"github.com/cyberkelysoatra/bazarkely-sub000/service"
	db2 "github.com/cyberkelysoatra/bazarkely-sub000/storage/db"
	"github.com/cyberkelysoatra/bazarkely-sub000/txlog"
)

type Config struct {
	API        api.Config
	Handler    service.Config
	Family     family.Config
	TxLog      txlog.Config
	DBLocation string `env:"DB_LOCATION" envDefault:"/var/sqlite/ledger.db"`
}

func (c Config) String() string {
	res, _ := json.Marshal(&c)
	return string(res)
}

func Run() error {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("Starting with options: %s\n", cfg.String())

	db, err := sqlx.Connect("sqlite3", cfg.DBLocation)
	if err != nil {
		return fmt.Errorf("connect DB: %w", err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("new sqlite3 migration driver: %w", err)
	}
	dbStorage, err := db2.New(db, driver, "")
	if err != nil {
		return fmt.Errorf("new dbStorage: %w", err)
	}

	var members service.MemberDirectory
	if cfg.Family.BaseAddr != "" {
		members, err = family.New(cfg.Family)
		if err != nil {
			return fmt.Errorf("new family client: %w", err)
		}
	}

	var transactionLog service.TransactionLog
	if cfg.TxLog.BaseAddr != "" {
		txLogClient, err := txlog.New(cfg.TxLog)
		if err != nil {
			return fmt.Errorf("new txlog client: %w", err)
		}
		transactionLog = txLogClient
	}

	serviceHandler, err := service.New(cfg.Handler, dbStorage, dbStorage, members, transactionLog)
	if err != nil {
		return fmt.Errorf("new service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.New(cfg.API, serviceHandler)
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("ListenAndServe: %w", err)
	}

	return nil
}
