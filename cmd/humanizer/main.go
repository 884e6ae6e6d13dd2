// Package main provides the entry point for the humanizer CLI.
package main

func main() {
	Execute()
}
