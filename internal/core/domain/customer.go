package domain

// Customer is pre-seeded and read-only; the service never creates or
// deletes customers.
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
