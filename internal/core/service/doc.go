// Package service orchestrates the codec, key store and counter store.
//
// TagService decodes tag URLs for the HTTP surface, adding metrics,
// logging and optional counter replay protection (CounterGuard), and
// issues new URLs the way tag firmware does.
package service
