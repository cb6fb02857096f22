// Package models contains GORM persistence models. Domain entities never carry
// GORM tags; the key-value table stores them as JSON and the run ledger stores
// only scheduling keys.
package models
