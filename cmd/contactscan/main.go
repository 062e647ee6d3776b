// Package main provides the entry point for the contactscan CLI.
//
// contactscan crawls websites breadth-first from one or more seed URLs and
// collects email addresses, social platform identifiers and page metadata.
//
// Usage:
//
//	contactscan scan https://example.com
//	contactscan scan --list seeds.txt --batch 8
//
// See --help for all available options.
package main

func main() {
	Execute()
}
