package parking

import "github.com/gofiber/fiber/v2"

// Rejection is a terminal, user-visible refusal of an entry, exit or
// registration attempt. It satisfies error so the service can short-circuit
// with it, and carries the screen payload the booth display renders. The
// barrier always stays closed on a rejection.
type Rejection struct {
	StatusCode    int                    `json:"-"`
	MessageType   string                 `json:"screen_message_type"`
	Title         string                 `json:"screen_title"`
	Message       string                 `json:"screen_message"`
	BarrierStatus string                 `json:"barrier_status"`
	Extra         map[string]interface{} `json:"-"`
}

func (r *Rejection) Error() string {
	return r.Title + ": " + r.Message
}

// Payload returns the JSON body for the HTTP response, folding in any extra
// fields (e.g. the tariff breakdown on a payment-required rejection).
func (r *Rejection) Payload() fiber.Map {
	m := fiber.Map{
		"screen_message_type": r.MessageType,
		"screen_title":        r.Title,
		"screen_message":      r.Message,
		"barrier_status":      r.BarrierStatus,
	}
	for k, v := range r.Extra {
		m[k] = v
	}
	return m
}

func reject(status int, title, message string) *Rejection {
	return &Rejection{
		StatusCode:    status,
		MessageType:   "error",
		Title:         title,
		Message:       message,
		BarrierStatus: BarrierClosed,
	}
}
