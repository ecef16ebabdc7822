// Command ghcp mirrors files and folders from GitHub URLs onto local disk.
package main

import "github.com/cbout22/ghcp/internal/cli"

func main() {
	cli.Execute()
}
