package services

// Actor is the acting user passed explicitly into every engine operation.
// The engines never read identity from ambient state; whoever calls them
// says who is acting.
type Actor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
