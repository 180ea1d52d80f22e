package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/rainwatch/rain-monitor/internal/notify"
	"github.com/rainwatch/rain-monitor/internal/rain"
	"github.com/rainwatch/rain-monitor/internal/realtime"
)

var validate = validator.New()

// listLimit caps GET /api/data responses.
const listLimit = 1000

// Deps bundles the collaborators the HTTP handlers orchestrate.
type Deps struct {
	Service     *rain.Service
	Registry    *notify.Registry
	Hub         *realtime.Hub
	FrontendURL string
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Post("/api/data", handleIngest(deps.Service))
	app.Get("/api/data", handleListReadings(deps.Service))
	app.Get("/api/stats/month", handleMonthlyStats(deps.Service))

	app.Post("/subscribe", handleSubscribe(deps.Registry))
	app.Post("/unsubscribe", handleUnsubscribe(deps.Registry))

	app.Get("/health", handleHealth(deps.Service))
	app.Get("/qrcode", handleQRCode(deps.FrontendURL))

	registerWebSocket(app, deps.Hub)
}

func handleIngest(service *rain.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload map[string]any
		if err := json.Unmarshal(c.Body(), &payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}

		// Malformed temperature/humidity values are not an error: the
		// sample is accepted and simply never classifies as rain.
		sample := rain.Sample{
			Temperature: numberField(payload, "temperature"),
			Humidity:    numberField(payload, "humidity"),
			DeviceID:    stringField(payload, "device_id"),
		}

		_, newEpisode, err := service.Ingest(c.Context(), sample)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message":       "Data saved",
			"rain_detected": newEpisode,
		})
	}
}

func handleListReadings(service *rain.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		readings, err := service.Latest(c.Context(), listLimit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch readings")
		}
		if readings == nil {
			readings = []rain.Reading{}
		}
		return c.JSON(readings)
	}
}

func handleMonthlyStats(service *rain.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		stats, err := service.StatsLastMonth(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch monthly stats")
		}
		return c.JSON(stats)
	}
}

func handleSubscribe(registry *notify.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, err := parseSubscription(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		registry.Add(sub)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Subscribed",
		})
	}
}

func handleUnsubscribe(registry *notify.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sub, err := parseSubscription(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		// Removing a non-member is a no-op, never an error.
		registry.Remove(sub)
		return c.JSON(fiber.Map{
			"message": "Unsubscribed",
		})
	}
}

func handleHealth(service *rain.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := service.Healthy(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
			})
		}

		records, err := service.Records(c.Context())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
			})
		}

		return c.JSON(fiber.Map{
			"status":  "ok",
			"records": records,
		})
	}
}

func handleQRCode(frontendURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		png, err := qrcode.Encode(frontendURL, qrcode.Medium, 256)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to generate QR code")
		}

		page := fmt.Sprintf(`<html>
  <body style="text-align:center; font-family:Arial;">
    <h2>Scan to open the rain dashboard</h2>
    <img src="data:image/png;base64,%s" />
    <p><a href="%s" target="_blank">%s</a></p>
  </body>
</html>`, base64.StdEncoding.EncodeToString(png), frontendURL, frontendURL)

		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(page)
	}
}

func registerWebSocket(app *fiber.App, hub *realtime.Hub) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		events, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		// Reader loop only detects the client going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			case <-closed:
				return
			}
		}
	}))
}

func parseSubscription(c *fiber.Ctx) (notify.Subscription, error) {
	var sub notify.Subscription
	if err := json.Unmarshal(c.Body(), &sub); err != nil {
		return notify.Subscription{}, fmt.Errorf("invalid subscription body")
	}
	if err := validate.Struct(sub); err != nil {
		return notify.Subscription{}, fmt.Errorf("invalid subscription: %w", err)
	}
	return sub, nil
}

// numberField extracts a JSON number; anything else, including numeric
// strings, is treated as non-numeric and yields nil, mirroring the sensor
// firmware contract.
func numberField(payload map[string]any, key string) *float64 {
	value, ok := payload[key]
	if !ok {
		return nil
	}
	number, ok := value.(float64)
	if !ok {
		return nil
	}
	return &number
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	text, _ := value.(string)
	return text
}
