package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"

	"github.com/soundlake/soundlake/lake"
)

// LakeMain is wrapped by NewLakeCommand and only exported for testing
// purposes.
var LakeMain *lake.Main

// NewLakeCommand returns a new cobra command wrapping lake.Main.
func NewLakeCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	LakeMain = lake.NewMain()
	lakeCommand := &cobra.Command{
		Use:   "lake",
		Short: "lake - build the songplay star schema from song and log data",
		Long: `Reads song metadata and activity logs from the input root, then writes the
songs, artists, users and time dimension tables and the songplays fact
table as partitioned parquet under the output root. The song catalog is
loaded first; the event log stage joins against it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err = LakeMain.Run()
			if err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := lakeCommand.Flags()
	err = commandeer.Flags(flags, LakeMain)
	if err != nil {
		panic(err)
	}
	return lakeCommand
}

func init() {
	subcommandFns["lake"] = NewLakeCommand
}
