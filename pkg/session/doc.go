// Package session owns transcripts on behalf of drivers. A Session holds
// one transcript and allows one run at a time; a Manager keeps sessions
// by id with optional LRU eviction.
package session
