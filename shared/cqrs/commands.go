package cqrs

// SeedTransactionsCommand populates an empty record store from the seed source.
// RequestedBy is informational only ("startup", a JWT subject, or "anonymous").
type SeedTransactionsCommand struct {
	RequestedBy string
}
