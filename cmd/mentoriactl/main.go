package main

import (
	"os"

	"github.com/mentoria/mentoria-go/cmd/mentoriactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
