package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prayertimes/models"
)

// Times returns a handler for GET /times?city=<name>&date=<YYYY-MM-DD>.
//
// Responds with the stored record as is. Parameters are used verbatim as
// lookup keys. The error messages are the ones existing clients match on.
func Times(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		city := c.Query("city")
		date := c.Query("date")
		if city == "" || date == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "Missing city or date parameter",
				Code:  models.ErrCodeInvalidInput,
			})
			return
		}

		rec, cityFound, dateFound := store.Aggregate().Lookup(city, date)
		switch {
		case !cityFound:
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "City not found",
				Code:  models.ErrCodeNotFound,
			})
		case !dateFound:
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Error: "Date not found",
				Code:  models.ErrCodeNotFound,
			})
		default:
			c.PureJSON(http.StatusOK, rec)
		}
	}
}

// Cities returns a handler for GET /cities: the city names in the order
// they were scraped.
func Cities(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.PureJSON(http.StatusOK, store.Aggregate().Cities())
	}
}
