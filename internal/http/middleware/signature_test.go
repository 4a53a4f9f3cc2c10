package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
)

const testSecret = "app-secret"

func sign(secret, body string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func runSigned(t *testing.T, body, signature string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	e := echo.New()

	var seenBody string
	next := func(c echo.Context) error {
		b, _ := io.ReadAll(c.Request().Body)
		seenBody = string(b)
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature", signature)
	}
	rec := httptest.NewRecorder()
	if err := VerifySignature(testSecret)(next)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	return rec, seenBody
}

func TestVerifySignatureAcceptsValid(t *testing.T) {
	body := `{"object":"page","entry":[]}`
	rec, seen := runSigned(t, body, sign(testSecret, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != body {
		t.Errorf("body must be restored for the handler, got %q", seen)
	}
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	rec, _ := runSigned(t, `{}`, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestVerifySignatureRejectsWrongDigest(t *testing.T) {
	rec, _ := runSigned(t, `{"object":"page"}`, sign("other-secret", `{"object":"page"}`))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	rec, _ := runSigned(t, `{"object":"evil"}`, sign(testSecret, `{"object":"page"}`))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestVerifySignatureRejectsBadFormat(t *testing.T) {
	rec, _ := runSigned(t, `{}`, "sha256=deadbeef")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestAdminTokenDisabledWhenUnset(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/deliveries", nil)
	req.Header.Set("X-Admin-Token", "anything")
	rec := httptest.NewRecorder()

	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	if err := AdminTokenMiddleware("")(next)(e.NewContext(req, rec)); err != nil {
		t.Fatalf("middleware error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no token configured, got %d", rec.Code)
	}
}

func TestAdminTokenChecksHeader(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"match", "s3cret", http.StatusOK},
		{"mismatch", "nope", http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/v1/reports/deliveries", nil)
			if tc.header != "" {
				req.Header.Set("X-Admin-Token", tc.header)
			}
			rec := httptest.NewRecorder()

			next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
			if err := AdminTokenMiddleware("s3cret")(next)(e.NewContext(req, rec)); err != nil {
				t.Fatalf("middleware error: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
