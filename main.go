// Command medscan is the command-line entry point for local image triage.
package main

import "github.com/medscan/medscan/cmd/medscan"

func main() {
	medscan.Execute()
}
