package main

import (
	"github.com/mj1618/overlaywin/cmd"
)

func main() {
	cmd.Execute()
}
