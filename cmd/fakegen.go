package cmd

import (
	"io"

	"github.com/jaffee/commandeer/cobrafy"
	"github.com/spf13/cobra"

	"github.com/soundlake/soundlake/fakegen"
)

// FakegenMain is wrapped by NewFakegenCommand and only exported for testing
// purposes.
var FakegenMain *fakegen.Main

// NewFakegenCommand returns a new cobra command wrapping FakegenMain.
func NewFakegenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	FakegenMain = fakegen.NewMain()
	command, err := cobrafy.Command(FakegenMain)
	if err != nil {
		panic(err)
	}
	command.Use = "fakegen"
	command.Short = "fakegen - write a synthetic input tree for the lake loader"
	command.Long = `Generates a song catalog and an activity log drawn against it, laid out
on disk the way the real datasets are, so the lake command can be tried
locally without credentials.`
	return command
}

func init() {
	subcommandFns["fakegen"] = NewFakegenCommand
}
