package main

import (
	"fmt"
	"os"
	sys "os"
)

func helper() {
	os.Exit(3)
}

func main() {
	fmt.Println("starting")
	if len(os.Args) > 5 {
		os.Exit(1) // want "avoid using os.Exit in main.main"
	}
	sys.Exit(2) // want "avoid using os.Exit in main.main"
	helper()
}
