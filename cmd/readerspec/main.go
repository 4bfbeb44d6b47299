// Package main is the entry point for the readerspec CLI.
package main

func main() {
	Execute()
}
