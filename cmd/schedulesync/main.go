// Command schedulesync is the admin CLI for the schedule ingestion core:
// preview a vendor URL, enroll a host, run one source's sync, or migrate
// the schema.
package main

import "github.com/teammeet/schedulesync/internal/cli"

func main() {
	cli.Execute()
}
