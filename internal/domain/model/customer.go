package model

// Customer is the provider-side projection of the paying user, not a full
// profile. It is created at the provider once per checkout and referenced by
// the order through CustomerRef.
type Customer struct {
	Name    string
	Email   string
	Phone   string
	Country string
}
