package diagfmt

import (
	"fmt"
	"io"
	"strconv"

	"pascope/internal/diag"
	"pascope/internal/source"
)

// Short writes one line per diagnostic:
// <path>:<line>:<col>: <severity> <CODE>: <message>
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode) error {
	for _, d := range bag.Items() {
		if _, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			position(fs, d.Primary, mode), d.Severity.Label(), d.Code.ID(), d.Message); err != nil {
			return err
		}
	}
	return nil
}

func itoa(v uint32) string { return strconv.FormatUint(uint64(v), 10) }
