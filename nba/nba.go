package nba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"boxout/utils"

	"golang.org/x/time/rate"
)

// BaseURL is a var so tests can point the client at an httptest server.
var BaseURL = "https://stats.nba.com"

// Hard floor on request rate, independent of the collector's jitter pacing.
var limiter = rate.NewLimiter(rate.Limit(5), 3)

func initNBAReq(url string) *http.Request {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		panic(err)
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Referer", "https://www.nba.com/")
	req.Header.Add("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	return req
}

type statsResp struct {
	ResultSets []struct {
		RowSet [][]interface{} `json:"rowSet"`
	} `json:"resultSets"`
}

type FetchErrKind int

const (
	FetchErrTransient FetchErrKind = iota
	FetchErrHTTP
	FetchErrOther
)

// FetchError is the only error type PlayerCareerStats returns, so the
// caller can branch exhaustively on Kind.
type FetchError struct {
	Kind       FetchErrKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrTransient:
		return fmt.Sprintf("transient network error: %v", e.Err)
	case FetchErrHTTP:
		return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
	default:
		return fmt.Sprintf("unexpected error: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classify sorts a transport failure into retriable vs not. Timeouts and
// connection-class failures are worth retrying; anything else is not.
func classify(err error) *FetchError {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: FetchErrTransient, Err: err}
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return &FetchError{Kind: FetchErrTransient, Err: err}
	}
	return &FetchError{Kind: FetchErrOther, Err: err}
}

type Player struct {
	ID   int
	Name string
}

// CommonAllPlayers returns the full historical roster, ordered as the
// upstream returns it.
func CommonAllPlayers() ([]Player, error) {
	url := BaseURL + "/stats/commonallplayers?LeagueID=00&Season=2024-25&IsOnlyCurrentSeason=0"
	req := initNBAReq(url)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, utils.ErrorWithTrace(fmt.Errorf("commonallplayers returned HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}

	unmarshalledBody := statsResp{}
	if err := json.Unmarshal(body, &unmarshalledBody); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	if len(unmarshalledBody.ResultSets) == 0 {
		return nil, utils.ErrorWithTrace(fmt.Errorf("commonallplayers response contained no result sets"))
	}

	players := make([]Player, 0, len(unmarshalledBody.ResultSets[0].RowSet))
	for _, raw := range unmarshalledBody.ResultSets[0].RowSet {
		if len(raw) < 3 {
			continue
		}
		id := maybe[float64](raw[0])
		name := maybe[string](raw[2])
		if id == nil && name != nil {
			log.Printf("%s missing PersonID\n", *name)
			continue
		} else if id != nil && name == nil {
			log.Printf("%d missing DisplayFirstLast\n", int(*id))
			continue
		} else if id == nil && name == nil {
			continue
		}
		players = append(players, Player{ID: int(*id), Name: *name})
	}
	return players, nil
}

// PlayerCareerStats fetches the raw per-season rowset for one player. The
// timeout is per-call because the collector scales it up across retries.
// Rows come back positional; width checking happens at the persistence
// layer.
func PlayerCareerStats(playerID int, timeout time.Duration) ([][]interface{}, error) {
	url := fmt.Sprintf("%s/stats/playercareerstats?LeagueID=00&PerMode=Totals&PlayerID=%d", BaseURL, playerID)
	req := initNBAReq(url)

	if err := limiter.Wait(context.Background()); err != nil {
		return nil, &FetchError{Kind: FetchErrOther, Err: err}
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: FetchErrHTTP, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}

	unmarshalledBody := statsResp{}
	if err := json.Unmarshal(body, &unmarshalledBody); err != nil {
		return nil, &FetchError{Kind: FetchErrOther, Err: err}
	}
	if len(unmarshalledBody.ResultSets) == 0 {
		return nil, &FetchError{Kind: FetchErrOther, Err: fmt.Errorf("playercareerstats response contained no result sets")}
	}
	return unmarshalledBody.ResultSets[0].RowSet, nil
}

func maybe[T any](x any) *T {
	if x, ok := x.(T); ok {
		return &x
	}
	return nil
}
