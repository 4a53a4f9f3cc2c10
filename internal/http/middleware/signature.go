package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

// VerifySignature authenticates webhook callbacks by checking the
// X-Hub-Signature header (HMAC-SHA1 of the raw body keyed with the app
// secret). Requests that fail the check are rejected before any processing.
func VerifySignature(appSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("X-Hub-Signature")
			if header == "" {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "missing signature"})
			}

			method, gotHex, ok := strings.Cut(header, "=")
			if !ok || method != "sha1" {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "bad signature format"})
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))

			mac := hmac.New(sha1.New, []byte(appSecret))
			mac.Write(body)
			want := hex.EncodeToString(mac.Sum(nil))

			if !hmac.Equal([]byte(want), []byte(gotHex)) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "invalid signature"})
			}

			return next(c)
		}
	}
}
