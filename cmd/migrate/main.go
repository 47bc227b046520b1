package main

import (
	"flag"
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/damoang/angple-qualitygate/internal/config"
	"github.com/damoang/angple-qualitygate/internal/migration"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	dryRun := flag.Bool("dry-run", false, "show which tables would be created without executing")
	verify := flag.Bool("verify", false, "verify quality gate data integrity")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	loaded, err := config.LoadDotEnv(".")
	if err != nil {
		log.Printf("Ignoring env files: %v", err)
	} else if len(loaded) == 0 {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	switch {
	case *dryRun:
		runDryRun(db)
	case *verify:
		if !runVerify(db) {
			sqlDB.Close()
			os.Exit(1)
		}
	default:
		if err := migration.Run(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration complete")
	}
}

func runDryRun(db *gorm.DB) {
	plan, err := migration.Plan(db)
	if err != nil {
		log.Fatalf("[dry-run] %v", err)
	}
	for _, st := range plan {
		if st.Exists {
			log.Printf("[dry-run] %-26s exists (%d rows), columns/indexes will be reconciled", st.Table, st.Rows)
		} else {
			log.Printf("[dry-run] %-26s will be created", st.Table)
		}
	}
}

func runVerify(db *gorm.DB) bool {
	problems, err := migration.Verify(db)
	if err != nil {
		log.Fatalf("[verify] %v", err)
	}
	if len(problems) == 0 {
		log.Println("[verify] OK")
		return true
	}
	for _, p := range problems {
		log.Printf("[verify] %s", p)
	}
	return false
}
