// Command quotabot is the weekly quota and sales ledger.
package main

import (
	_ "time/tzdata"

	"github.com/quotabot/quotabot/internal/cli"
)

func main() {
	cli.Execute()
}
