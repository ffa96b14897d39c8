// Package jsonl writes extracted records as JSON Lines, one append-only
// file per source resource: <dir>/<source>/<resource>.jsonl.
package jsonl
