/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/enod/cmd/enod/cmd"

func main() {
	cmd.Execute()
}
