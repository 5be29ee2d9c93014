package model

// Currency holds reference information
// on a currency tracked by the system
type Currency struct {
	Code        string // ISO 4217 3-letter code
	DisplayName string // human readable name
}
