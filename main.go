// The main package for the vitibrasil-api executable.
package main

import "github.com/vitibrasil/vitibrasil-api/cmd"

func main() {
	cmd.Execute()
}
