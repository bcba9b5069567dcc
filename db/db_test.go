package db

import (
	"path/filepath"
	"testing"

	"boxout/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDatabase(t *testing.T) {
	t.Helper()
	config.DatabaseFile = filepath.Join(t.TempDir(), "test.db")
	config.MigrationsDir = "migrations"
	require.NoError(t, SetupDatabase())
	require.NoError(t, RunMigrations())
	require.NoError(t, ValidateMigrations())
	t.Cleanup(func() {
		require.NoError(t, Close())
	})
}

func careerRow(season string, teamID, pts float64) []interface{} {
	row := make([]interface{}, 27)
	row[0] = float64(203500)
	row[1] = season
	row[2] = nil
	row[3] = teamID
	row[4] = "NYK"
	row[5] = "00"
	for i := 6; i < 27; i++ {
		row[i] = float64(i)
	}
	row[8] = "1912"
	row[26] = pts
	return row
}

func TestInsertCareerRowsUpsertsOnPlayerAndSeason(t *testing.T) {
	setupTestDatabase(t)

	require.NoError(t, InsertCareerRows(203500, "Steven Adams", [][]interface{}{careerRow("2013-14", 1610612760, 265)}))
	require.NoError(t, InsertCareerRows(203500, "Steven Adams", [][]interface{}{careerRow("2013-14", 1610612760, 300)}))

	rows, err := SelectCareerRowsByPlayer(203500)
	require.NoError(t, err)
	require.Len(t, rows, 1, "same (player_id, season_id) must replace, not duplicate")
	require.NotNil(t, rows[0].PTS)
	assert.Equal(t, int64(300), *rows[0].PTS)
	require.NotNil(t, rows[0].MIN)
	assert.Equal(t, "1912", *rows[0].MIN)
}

func TestInsertCareerRowsDropsMalformedRows(t *testing.T) {
	setupTestDatabase(t)

	good := careerRow("2015-16", 1610612752, 120)
	short := careerRow("2016-17", 1610612752, 130)[:26]
	long := append(careerRow("2017-18", 1610612752, 140), "extra")

	require.NoError(t, InsertCareerRows(1, "Test Player", [][]interface{}{short, good, long}))

	rows, err := SelectCareerRowsByPlayer(1)
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the 27-wide row should persist")
	require.NotNil(t, rows[0].SeasonID)
	assert.Equal(t, "2015-16", *rows[0].SeasonID)
}

func TestPlayerExists(t *testing.T) {
	setupTestDatabase(t)

	exists, err := PlayerExists(42)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, InsertCareerRows(42, "Somebody", [][]interface{}{careerRow("2001-02", 1610612738, 10)}))

	exists, err = PlayerExists(42)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSelectCollectedPlayersAndSummary(t *testing.T) {
	setupTestDatabase(t)

	require.NoError(t, InsertCareerRows(1, "Alpha", [][]interface{}{
		careerRow("2001-02", 1610612738, 10),
		careerRow("2002-03", 1610612738, 20),
	}))
	require.NoError(t, InsertCareerRows(2, "Beta", [][]interface{}{careerRow("2001-02", 1610612752, 30)}))

	players, err := SelectCollectedPlayers()
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "Alpha", players[0].PlayerName)
	assert.Equal(t, 2, players[0].Seasons)

	summary, err := SelectSummary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Players)
	assert.Equal(t, 3, summary.StatRows)
}
