// Package main provides the entry point for tagurl-cli.
//
// tagurl-cli builds and verifies NFC smart-tag URLs offline, manages key
// table files, drives a PC/SC reader as a tag base station and calls the
// tagurl-server admin API.
//
// Usage:
//
//	tagurl-cli keygen
//	tagurl-cli keys add --tag 0102030405060708 --label spare
//	tagurl-cli encode --tag-id 0102030405060708 --counter 1
//	tagurl-cli decode 'http://nfc-smart-tag.appspot.com/nfc?nv=...'
//	tagurl-cli station touch --tag-id 0102030405060708 --reader 0
//	tagurl-cli remote --server https://tags.example.com keys list --tag 0102030405060708
package main
