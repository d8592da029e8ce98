package main

import "github.com/colorful-bubbles/idb-keyval/cmd"

func main() {
	cmd.Execute()
}
