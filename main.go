package main

import (
	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/cmd"
	_ "go.uber.org/automaxprocs"
)

func main() {
	cmd.Execute()
}
