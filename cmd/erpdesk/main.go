// Package main is the entry point for the erpdesk terminal client.
package main

import "github.com/erpdesk/erpdesk/internal/cli"

func main() {
	cli.Execute()
}
