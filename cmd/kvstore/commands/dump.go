package commands

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ASHISH26940/kvstore/internal/persistence"
	"github.com/ASHISH26940/kvstore/internal/serializer"
)

func dumpCmd() *cobra.Command {
	var file, format string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the entries of a snapshot file in order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = cfg.DataPath()
			}
			if file == "" {
				return fmt.Errorf("no snapshot file: pass --file or configure the file backend")
			}
			return dump(cmd.OutOrStdout(), file, format)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "snapshot file (default: the configured file backend path)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default: from the file extension)")
	return cmd
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return serializer.FormatYAML
	default:
		return serializer.FormatJSON
	}
}

func dump(w io.Writer, path, format string) error {
	if format == "" {
		format = formatFor(path)
	}
	codec, err := serializer.New(format)
	if err != nil {
		return err
	}

	data, err := persistence.ReadFile(path)
	if err != nil {
		return err
	}
	items, err := codec.Deserialize(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "# %s: %d entries, %s\n", path, len(items), humanize.Bytes(uint64(len(data))))
	for _, it := range items {
		value, err := codec.Marshal(it.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\n", it.Key, strings.TrimSpace(string(value)))
	}
	return nil
}
