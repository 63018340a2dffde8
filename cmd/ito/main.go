// Command ito is the entrypoint for the Ito workflow engine CLI.
package main

import "github.com/jamesonstone/ito/pkg/cli"

func main() {
	cli.Execute()
}
