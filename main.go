package main

import "github.com/nextlevelbuilder/openclaw/cmd"

func main() {
	cmd.Execute()
}
