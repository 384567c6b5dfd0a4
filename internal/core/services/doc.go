// Package services contains the core application services implementing the
// driving ports. Services depend only on domain types and driven ports, so
// storage and embedding backends swap without touching retrieval logic.
package services
