package main

import "github.com/AbazaSeif/cloudsync/internal/cli"

func main() {
	cli.Execute()
}
