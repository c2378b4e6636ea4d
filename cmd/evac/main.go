package main

import (
	"log"

	"github.com/chanyoung/evac/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
