// Package server exposes a read-only JSON view over the collected stats.
package server

import (
	"net/http"
	"strconv"

	"boxout/db"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func New() *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())

	e.GET("/summary", func(c echo.Context) error {
		summary, err := db.SelectSummary()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, summary)
	})

	e.GET("/players", func(c echo.Context) error {
		players, err := db.SelectCollectedPlayers()
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, players)
	})

	e.GET("/players/:id/stats", func(c echo.Context) error {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "player id must be numeric"})
		}
		rows, err := db.SelectCareerRowsByPlayer(id)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no stats collected for player"})
		}
		return c.JSON(http.StatusOK, rows)
	})

	return e
}

func Run(addr string) error {
	return New().Start(addr)
}
