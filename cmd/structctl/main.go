package main

import (
	"fmt"
	"os"

	"voxelstruct/internal/block"
	"voxelstruct/internal/config"
	"voxelstruct/internal/structcodec"
	"voxelstruct/internal/structure"
)

const usage = `usage: structctl <command> [flags] [files]

commands:
  info     summarize structure files
  dump     print the palette, blocks and metadata of one file
  convert  re-encode structure files through a storage backend
  index    query the structure index database
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "info":
		infoCmd(os.Args[2:])
	case "dump":
		dumpCmd(os.Args[2:])
	case "convert":
		convertCmd(os.Args[2:])
	case "index":
		indexCmd(os.Args[2:])
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

// loadConfig reads the config and builds its registry, exiting on error.
func loadConfig(path string) (config.Config, *block.Registry) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	reg, err := cfg.Registry()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	return cfg, reg
}

func decodeOptions(kind structure.Kind, reg *block.Registry, opts structure.Options) structcodec.DecodeOptions {
	return structcodec.DecodeOptions{New: func(size structure.Size) (structure.Structure, error) {
		return structure.New(kind, size, reg, opts)
	}}
}
