package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"boxout/config"
	"boxout/utils"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

// conn is held open for the whole run. The collector is the only writer.
var conn *sqlx.DB

type CareerStatsRow struct {
	PlayerID         int      `db:"player_id" json:"player_id"`
	PlayerName       string   `db:"player_name" json:"player_name"`
	SeasonID         *string  `db:"season_id" json:"season_id"`
	TeamID           *int64   `db:"team_id" json:"team_id"`
	TeamAbbreviation *string  `db:"team_abbreviation" json:"team_abbreviation"`
	LeagueID         *string  `db:"league_id" json:"league_id"`
	GP               *int64   `db:"gp" json:"gp"`
	GS               *int64   `db:"gs" json:"gs"`
	MIN              *string  `db:"min" json:"min"`
	FGM              *int64   `db:"fgm" json:"fgm"`
	FGA              *int64   `db:"fga" json:"fga"`
	FGPct            *float64 `db:"fg_pct" json:"fg_pct"`
	FG3M             *int64   `db:"fg3m" json:"fg3m"`
	FG3A             *int64   `db:"fg3a" json:"fg3a"`
	FG3Pct           *float64 `db:"fg3_pct" json:"fg3_pct"`
	FTM              *int64   `db:"ftm" json:"ftm"`
	FTA              *int64   `db:"fta" json:"fta"`
	FTPct            *float64 `db:"ft_pct" json:"ft_pct"`
	OREB             *int64   `db:"oreb" json:"oreb"`
	DREB             *int64   `db:"dreb" json:"dreb"`
	REB              *int64   `db:"reb" json:"reb"`
	AST              *int64   `db:"ast" json:"ast"`
	STL              *int64   `db:"stl" json:"stl"`
	BLK              *int64   `db:"blk" json:"blk"`
	TOV              *int64   `db:"tov" json:"tov"`
	PF               *int64   `db:"pf" json:"pf"`
	PTS              *int64   `db:"pts" json:"pts"`
}

// careerRowWidth is the exact width the upstream rowset must have.
// Index 0 repeats the player id and index 2 is an unused column; both are
// dropped during mapping.
const careerRowWidth = 27

func SetupDatabase() error {
	_, err := os.Stat(config.DatabaseFile)
	if os.IsNotExist(err) {
		log.Println("Database file not found. Creating a new database.")
		file, err := os.Create(config.DatabaseFile)
		if err != nil {
			return utils.ErrorWithTrace(err)
		}
		file.Close()
	} else if err != nil {
		return utils.ErrorWithTrace(err)
	}

	conn, err = sqlx.Open("sqlite3", config.DatabaseFile)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	return nil
}

func Close() error {
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return utils.ErrorWithTrace(err)
	}
	conn = nil
	return nil
}

func RunMigrations() error {
	m, err := migrate.New(
		"file://"+config.MigrationsDir,
		"sqlite3://"+config.DatabaseFile,
	)
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return utils.ErrorWithTrace(err)
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return utils.ErrorWithTrace(srcErr)
	}
	if dbErr != nil {
		return utils.ErrorWithTrace(dbErr)
	}
	return nil
}

func ValidateMigrations() error {
	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM pragma_table_info('player_stats')").Scan(&count); err != nil {
		return utils.ErrorWithTrace(err)
	}
	if count != 27 {
		return utils.ErrorWithTrace(fmt.Errorf("expected 27 columns on player_stats, found %d", count))
	}
	return nil
}

// PlayerExists reports whether any stat row is stored for the player.
// Presence of a single row counts as "collected".
func PlayerExists(playerID int) (bool, error) {
	var one int
	err := conn.QueryRow("SELECT 1 FROM player_stats WHERE player_id = ? LIMIT 1", playerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	} else if err != nil {
		return false, utils.ErrorWithTrace(err)
	}
	return true, nil
}

// InsertCareerRows upserts one player's career rows in a single
// transaction. Rows that are not exactly 27 fields wide are dropped with a
// warning; the rest of the batch still commits.
func InsertCareerRows(playerID int, playerName string, rows [][]interface{}) error {
	tx, err := conn.Beginx()
	if err != nil {
		return utils.ErrorWithTrace(err)
	}
	defer tx.Rollback()

	query := `
		REPLACE INTO player_stats (
			player_id, player_name, season_id, team_id, team_abbreviation, league_id,
			gp, gs, min, fgm, fga, fg_pct, fg3m, fg3a, fg3_pct,
			ftm, fta, ft_pct, oreb, dreb, reb, ast, stl, blk, tov, pf, pts
		) VALUES (
			:player_id, :player_name, :season_id, :team_id, :team_abbreviation, :league_id,
			:gp, :gs, :min, :fgm, :fga, :fg_pct, :fg3m, :fg3a, :fg3_pct,
			:ftm, :fta, :ft_pct, :oreb, :dreb, :reb, :ast, :stl, :blk, :tov, :pf, :pts
		)
	`
	for _, raw := range rows {
		if len(raw) != careerRowWidth {
			log.Printf("unexpected row length %d for player %d", len(raw), playerID)
			continue
		}
		row := mapCareerRow(playerID, playerName, raw)
		if _, err := tx.NamedExec(query, row); err != nil {
			return utils.ErrorWithTrace(err)
		}
	}

	return tx.Commit()
}

func mapCareerRow(playerID int, playerName string, raw []interface{}) CareerStatsRow {
	return CareerStatsRow{
		PlayerID:         playerID,
		PlayerName:       playerName,
		SeasonID:         asText(raw[1]),
		TeamID:           asInt(raw[3]),
		TeamAbbreviation: asText(raw[4]),
		LeagueID:         asText(raw[5]),
		GP:               asInt(raw[6]),
		GS:               asInt(raw[7]),
		MIN:              asText(raw[8]),
		FGM:              asInt(raw[9]),
		FGA:              asInt(raw[10]),
		FGPct:            asReal(raw[11]),
		FG3M:             asInt(raw[12]),
		FG3A:             asInt(raw[13]),
		FG3Pct:           asReal(raw[14]),
		FTM:              asInt(raw[15]),
		FTA:              asInt(raw[16]),
		FTPct:            asReal(raw[17]),
		OREB:             asInt(raw[18]),
		DREB:             asInt(raw[19]),
		REB:              asInt(raw[20]),
		AST:              asInt(raw[21]),
		STL:              asInt(raw[22]),
		BLK:              asInt(raw[23]),
		TOV:              asInt(raw[24]),
		PF:               asInt(raw[25]),
		PTS:              asInt(raw[26]),
	}
}

// JSON numbers arrive as float64. Minutes can be either a number or a
// fractional text format like "23:45", hence asText tolerates both.
func asInt(v interface{}) *int64 {
	if f, ok := v.(float64); ok {
		n := int64(f)
		return &n
	}
	return nil
}

func asReal(v interface{}) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func asText(v interface{}) *string {
	switch x := v.(type) {
	case string:
		return &x
	case float64:
		s := fmt.Sprintf("%g", x)
		return &s
	}
	return nil
}

func SelectCareerRowsByPlayer(playerID int) ([]CareerStatsRow, error) {
	rows := []CareerStatsRow{}
	err := conn.Select(&rows, "SELECT * FROM player_stats WHERE player_id = ? ORDER BY season_id", playerID)
	if err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return rows, nil
}

type CollectedPlayer struct {
	PlayerID   int    `db:"player_id" json:"player_id"`
	PlayerName string `db:"player_name" json:"player_name"`
	Seasons    int    `db:"seasons" json:"seasons"`
}

func SelectCollectedPlayers() ([]CollectedPlayer, error) {
	players := []CollectedPlayer{}
	query := `
		SELECT player_id, player_name, COUNT(*) AS seasons
		FROM player_stats
		GROUP BY player_id, player_name
		ORDER BY player_name;
	`
	if err := conn.Select(&players, query); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return players, nil
}

type Summary struct {
	Players  int `db:"players" json:"players"`
	StatRows int `db:"stat_rows" json:"stat_rows"`
}

func SelectSummary() (*Summary, error) {
	s := Summary{}
	query := "SELECT COUNT(DISTINCT player_id) AS players, COUNT(*) AS stat_rows FROM player_stats"
	if err := conn.Get(&s, query); err != nil {
		return nil, utils.ErrorWithTrace(err)
	}
	return &s, nil
}
