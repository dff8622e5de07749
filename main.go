package main

import "github.com/bimcvcovid19i/relman/cmd"

func main() {
	cmd.Execute()
}
