// Package aggregates implements the visit aggregate on top of the table repos
// in internal/data/repos.
//
// Every Upsert runs in one transaction taken from a TxRunner; payment numbers
// and cooler codes are allocated inside it and the unique indexes decide races.
package aggregates
