package config

import (
	"path/filepath"
	"time"

	flag "github.com/spf13/pflag"
)

var DataDir string
var DatabaseFile string
var ErrorLogFile string
var SkippedFile string
var MigrationsDir string
var ServeFlag *bool
var ListenAddr string

// Policy holds the knobs that pace the collector against stats.nba.com.
// Built once in LoadConfig and passed by value, so the loop can never
// mutate it mid-run.
type Policy struct {
	MaxRetries     int
	InitialTimeout time.Duration
	BackoffFactor  float64
	BatchSize      int
	Cooldown       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:     3,
		InitialTimeout: 20 * time.Second,
		BackoffFactor:  2,
		BatchSize:      500,
		Cooldown:       60 * time.Second,
	}
}

var CollectionPolicy Policy

func LoadConfig() error {
	dataDir := flag.String("data-dir", "./data", "directory for the database and log files")
	dbFile := flag.String("db", "", "database file path (defaults to <data-dir>/nba_career_stats.db)")
	batchSize := flag.Int("batch-size", 500, "players per batch before a cooldown pause")
	cooldown := flag.Int("cooldown", 60, "cooldown pause in seconds after each batch")
	maxRetries := flag.Int("max-retries", 3, "retry attempts per player on transient failures")
	ServeFlag = flag.BoolP("serve", "s", false, "serve collected stats instead of collecting")
	addr := flag.String("addr", ":8080", "listen address for --serve")
	flag.Parse()

	DataDir = *dataDir
	if *dbFile != "" {
		DatabaseFile = *dbFile
	} else {
		DatabaseFile = filepath.Join(DataDir, "nba_career_stats.db")
	}
	ErrorLogFile = filepath.Join(DataDir, "error_log.txt")
	SkippedFile = filepath.Join(DataDir, "skipped_players.txt")
	MigrationsDir = "db/migrations"
	ListenAddr = *addr

	CollectionPolicy = DefaultPolicy()
	CollectionPolicy.BatchSize = *batchSize
	CollectionPolicy.Cooldown = time.Duration(*cooldown) * time.Second
	CollectionPolicy.MaxRetries = *maxRetries
	return nil
}
