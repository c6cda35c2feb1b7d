package main

import (
	"log"

	"github.com/talentsort/job-matcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
