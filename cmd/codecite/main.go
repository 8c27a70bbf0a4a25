// Command codecite answers building code questions with page-level citations.
package main

import "github.com/custodia-labs/codecite/internal/adapters/driving/cli"

func main() {
	cli.Execute()
}
