//go:build unit || e2e

package testutil

// BodyOption edits a request body before it is sent.
type BodyOption func(map[string]any)

// Without drops a field, e.g. to exercise binding:"required".
func Without(key string) BodyOption {
	return func(m map[string]any) { delete(m, key) }
}

// With sets or replaces a field.
func With(key string, value any) BodyOption {
	return func(m map[string]any) { m[key] = value }
}

// CreateBookingBody is the JSON body of POST /api/shows/:id/bookings.
func CreateBookingBody(seat string, opts ...BodyOption) map[string]any {
	body := map[string]any{"seat": seat}
	for _, opt := range opts {
		opt(body)
	}
	return body
}
