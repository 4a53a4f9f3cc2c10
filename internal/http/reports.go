package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/doinghun/merlabot-public/internal/model"
	"github.com/doinghun/merlabot-public/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listDeliveriesHandler(deliveries repository.DeliveriesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var status string
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			if model.DeliveryStatus(raw).Valid() {
				status = raw
			}
		}

		recipientID := strings.TrimSpace(c.QueryParam("recipient_id"))

		events, err := deliveries.ListRecent(c.Request().Context(), recipientID, status, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(events),
			"results": events,
		})
	}
}
