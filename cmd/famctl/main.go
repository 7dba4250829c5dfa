// Command famctl is a small interactive debug client: it opens a famd
// session, monitors a path, and prints every event it receives until
// interrupted. Grounded on original_source's famtest-style debug
// tooling referenced throughout libgamin/gam_api.c's own test harness.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nabbar/famd/client"
)

func main() {
	var dir bool
	var noExists bool
	var sessionID string

	cmd := &cobra.Command{
		Use:   "famctl <path>",
		Short: "monitor a path via famd and print events as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			c, err := client.Open(sessionID)
			if err != nil {
				return err
			}
			defer c.Close()

			var reqno uint16
			if dir {
				reqno, err = c.MonitorDirectory(path, noExists, nil)
			} else {
				reqno, err = c.MonitorFile(path, noExists, nil)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "monitoring %s (reqno %d)\n", path, reqno)

			for {
				ev, err := c.NextEvent()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "reqno=%d %s %q\n", ev.Reqno, ev.Code, ev.Path)
			}
		},
	}

	cmd.Flags().BoolVar(&dir, "dir", false, "monitor a directory instead of a single file")
	cmd.Flags().BoolVar(&noExists, "no-exists", false, "suppress the initial existence burst")
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (defaults to GAM_CLIENT_ID or a generated id)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
