// Package main provides the plumbline CLI for architectural consistency gates.
package main

func main() {
	Execute()
}
