package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func TestActorAttribution(t *testing.T) {
	id := uuid.NewString()

	cases := []struct {
		name      string
		actorID   string
		actorName string
		want      string
	}{
		{"resolved actor", id, "Ana Ops", "Ana Ops (" + id + ")"},
		{"fallback identity", "system", "system", "system"},
		{"id only", id, "", id},
		{"nothing set", "", "", ""},
	}

	for _, tc := range cases {
		app := fiber.New()
		app.Get("/", func(c *fiber.Ctx) error {
			if tc.actorID != "" {
				c.Locals("actor_id", tc.actorID)
			}
			if tc.actorName != "" {
				c.Locals("actor_name", tc.actorName)
			}
			return c.SendString(actorAttribution(c))
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		if string(body) != tc.want {
			t.Errorf("%s: attribution = %q, want %q", tc.name, body, tc.want)
		}
	}
}
