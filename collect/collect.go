// Package collect runs the sequential career-stats collection loop:
// roster in, one player at a time through a retrying fetch, rows out to
// storage, with jitter pacing between players and a cooldown after each
// batch.
package collect

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"runtime/debug"
	"time"

	"boxout/audit"
	"boxout/config"
	"boxout/db"
	"boxout/nba"
	"boxout/utils"
)

type Fetcher interface {
	CommonAllPlayers() ([]nba.Player, error)
	PlayerCareerStats(playerID int, timeout time.Duration) ([][]interface{}, error)
}

type Store interface {
	PlayerExists(playerID int) (bool, error)
	InsertCareerRows(playerID int, playerName string, rows [][]interface{}) error
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeEmpty
	outcomeFailed
)

type Collector struct {
	policy  config.Policy
	fetcher Fetcher
	store   Store
	errLog  *audit.ErrorLog
	skipped *audit.SkippedLog

	// swapped out in tests so runs are deterministic and fast
	sleep   func(time.Duration)
	uniform func(lo, hi float64) float64
}

func New(policy config.Policy, f Fetcher, s Store, errLog *audit.ErrorLog, skipped *audit.SkippedLog) *Collector {
	return &Collector{
		policy:  policy,
		fetcher: f,
		store:   s,
		errLog:  errLog,
		skipped: skipped,
		sleep:   time.Sleep,
		uniform: func(lo, hi float64) float64 {
			return lo + rand.Float64()*(hi-lo)
		},
	}
}

// Run processes the full roster once. Players with any stored row are
// skipped; everything else is fetched, persisted, and paced. Per-player
// failures never abort the run, only roster or storage-read errors do.
func (c *Collector) Run() error {
	players, err := c.fetcher.CommonAllPlayers()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	total := len(players)
	log.Printf("collecting career stats for %d players", total)

	processed := 0
	var elapsed time.Duration
	timed := 0

	for idx, p := range players {
		exists, err := c.store.PlayerExists(p.ID)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
		if exists {
			log.Printf("skipping %s (already collected)", p.Name)
			continue
		}

		start := time.Now()
		out := c.collectOne(p)
		if out == outcomeStored {
			elapsed += time.Since(start)
			timed++
			c.logProgress(idx+1, total, elapsed, timed)
		}
		processed++

		// Polite delay even after success.
		c.sleep(c.jitterDelay())

		if processed%c.policy.BatchSize == 0 {
			log.Printf("processed %d players, cooling down for %s", processed, c.policy.Cooldown)
			c.sleep(c.policy.Cooldown)
		}
	}
	return nil
}

// collectOne drives the per-player retry state machine. Transient network
// failures are retried with backoff up to the budget; HTTP-class and
// unexpected errors fail immediately.
func (c *Collector) collectOne(p nba.Player) outcome {
	retries := 0
	for {
		timeout := c.attemptTimeout(retries)
		log.Printf("fetching %s (timeout: %.1fs)...", p.Name, timeout.Seconds())

		rows, err := c.fetcher.PlayerCareerStats(p.ID, timeout)
		if err == nil {
			if len(rows) == 0 {
				log.Printf("no stats found for %s", p.Name)
				return outcomeEmpty
			}
			if err := c.store.InsertCareerRows(p.ID, p.Name, rows); err != nil {
				c.fail(p, fmt.Sprintf("failed to persist rows: %v", err))
				return outcomeFailed
			}
			return outcomeStored
		}

		var fe *nba.FetchError
		if !errors.As(err, &fe) {
			fe = &nba.FetchError{Kind: nba.FetchErrOther, Err: err}
		}
		switch fe.Kind {
		case nba.FetchErrTransient:
			retries++
			if retries > c.policy.MaxRetries {
				c.fail(p, fmt.Sprintf("timeout or connection error after %d retries: %v", c.policy.MaxRetries, err))
				log.Printf("failed %s after %d retries", p.Name, c.policy.MaxRetries)
				return outcomeFailed
			}
			wait := c.backoffDelay(retries)
			log.Printf("retry %d/%d for %s in %.1fs...", retries, c.policy.MaxRetries, p.Name, wait.Seconds())
			c.sleep(wait)
		case nba.FetchErrHTTP:
			c.fail(p, fmt.Sprintf("HTTP error: %v", err))
			log.Printf("HTTP error for %s: %v", p.Name, err)
			return outcomeFailed
		default:
			c.fail(p, fmt.Sprintf("%v\n%s", err, debug.Stack()))
			log.Printf("unexpected error for %s: %v", p.Name, err)
			return outcomeFailed
		}
	}
}

func (c *Collector) fail(p nba.Player, msg string) {
	if err := c.errLog.Append(p.ID, p.Name, msg); err != nil {
		log.Println(err)
	}
	if err := c.skipped.Append(p.ID, p.Name); err != nil {
		log.Println(err)
	}
}

// attemptTimeout grows the request timeout exponentially across retries,
// with a little noise so repeated runs do not hit the upstream in
// lockstep.
func (c *Collector) attemptTimeout(retries int) time.Duration {
	scale := math.Pow(c.policy.BackoffFactor, float64(retries)) * c.uniform(0.9, 1.1)
	return time.Duration(float64(c.policy.InitialTimeout) * scale)
}

func (c *Collector) backoffDelay(retries int) time.Duration {
	secs := c.uniform(0.6, 1.5) * math.Pow(c.policy.BackoffFactor, float64(retries))
	return time.Duration(secs * float64(time.Second))
}

func (c *Collector) jitterDelay() time.Duration {
	return time.Duration(c.uniform(0.6, 1.5) * float64(time.Second))
}

func (c *Collector) logProgress(done, total int, elapsed time.Duration, timed int) {
	remaining := total - done
	avg := elapsed / time.Duration(timed)
	cooldownsOwed := remaining / c.policy.BatchSize
	eta := avg*time.Duration(remaining) + c.policy.Cooldown*time.Duration(cooldownsOwed)
	percent := float64(done) / float64(total) * 100
	log.Printf("%d/%d players completed (%.2f%%) | ETA: %dm %ds",
		done, total, percent, int(eta.Minutes()), int(eta.Seconds())%60)
}

type apiFetcher struct{}

func (apiFetcher) CommonAllPlayers() ([]nba.Player, error) {
	return nba.CommonAllPlayers()
}

func (apiFetcher) PlayerCareerStats(playerID int, timeout time.Duration) ([][]interface{}, error) {
	return nba.PlayerCareerStats(playerID, timeout)
}

// NewAPIFetcher returns the production fetcher backed by stats.nba.com.
func NewAPIFetcher() Fetcher {
	return apiFetcher{}
}

type dbStore struct{}

func (dbStore) PlayerExists(playerID int) (bool, error) {
	return db.PlayerExists(playerID)
}

func (dbStore) InsertCareerRows(playerID int, playerName string, rows [][]interface{}) error {
	return db.InsertCareerRows(playerID, playerName, rows)
}

// NewDBStore returns the production store backed by the sqlite database.
func NewDBStore() Store {
	return dbStore{}
}
