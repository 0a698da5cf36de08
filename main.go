package main

import (
	"github.com/AzielCF/az-aiwa/cmd"
)

func main() {
	cmd.Execute()
}
