// Package aggregates defines domain-facing aggregate contracts.
//
// Contracts avoid persistence and transport details and mark the write
// boundaries where a visit and its child records must change atomically.
package aggregates
