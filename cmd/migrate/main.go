package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"

	"jobboard-billing/internal/config"
	"jobboard-billing/internal/infra/db/migrations"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [-config config.yaml] up|down [N]|version|force V\n")
	os.Exit(2)
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	m, err := migrations.New(cfg.Database.URL)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	defer m.Close()

	switch flag.Arg(0) {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			if steps, err = strconv.Atoi(flag.Arg(1)); err != nil || steps <= 0 {
				log.Fatalf("down: N must be a positive integer")
			}
		}
		err = m.Steps(-steps)
	case "force":
		if flag.NArg() < 2 {
			usage()
		}
		v, convErr := strconv.Atoi(flag.Arg(1))
		if convErr != nil {
			log.Fatalf("force: invalid version %q", flag.Arg(1))
		}
		err = m.Force(v)
	case "version":
		v, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Println("no migrations applied")
			return
		}
		if verr != nil {
			log.Fatalf("version: %v", verr)
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
		return
	default:
		usage()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no change")
		return
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
	fmt.Println("ok")
}
