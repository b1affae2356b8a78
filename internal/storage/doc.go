package storage

// Package storage provides the delivery audit log.
//
// Every engine hand-off (register, activate, replacement, inline attach)
// appends one entry, so an operator can answer "what did we hand the host,
// and when" after the fact.
