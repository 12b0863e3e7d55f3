package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"voxelstruct/internal/nbt"
	"voxelstruct/internal/persistence/structfile"
	"voxelstruct/internal/structcodec"
	"voxelstruct/internal/structure"
)

func infoCmd(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfgPath := fs.String("config", "", "structctl.yaml path (optional)")
	_ = fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing input files")
		os.Exit(2)
	}
	_, reg := loadConfig(*cfgPath)

	failed := false
	for _, path := range fs.Args() {
		st, err := os.Stat(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
			continue
		}
		doc, c, err := structfile.ReadFile(path, decodeOptions(structure.KindHashMap, reg, structure.Options{}))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
			continue
		}
		s := structcodec.DocumentStats(doc.Structure)
		fmt.Printf("%s\n", path)
		fmt.Printf("  file:         %s (%s)\n", humanize.Bytes(uint64(st.Size())), c)
		fmt.Printf("  data version: %d\n", doc.DataVersion)
		if doc.Author != "" {
			fmt.Printf("  author:       %s\n", doc.Author)
		}
		fmt.Printf("  size:         %s (%s cells)\n", s.Size, humanize.Comma(int64(s.Size.Volume())))
		fmt.Printf("  palette:      %d entries (%d declared)\n", s.Palette, len(doc.Palette))
		fmt.Printf("  blocks:       %s (%.2f%% occupied)\n", humanize.Comma(int64(s.Blocks)), occupancy(s))
		fmt.Printf("  metadata:     %d\n", s.Metadata)
	}
	if failed {
		os.Exit(1)
	}
}

func occupancy(s structcodec.Stats) float64 {
	v := s.Size.Volume()
	if v == 0 {
		return 0
	}
	return 100 * float64(s.Blocks) / float64(v)
}

func dumpCmd(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	cfgPath := fs.String("config", "", "structctl.yaml path (optional)")
	limit := fs.Int("limit", 0, "max blocks to print (0 = all)")
	raw := fs.Bool("raw", false, "print the whole tag tree instead of the decoded structure")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "dump takes exactly one file")
		os.Exit(2)
	}
	path := fs.Arg(0)

	if *raw {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		root, _, err := nbt.Read(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
		fmt.Printf("%q: %s\n", root.Name, nbt.Stringify(root.Tag))
		return
	}

	_, reg := loadConfig(*cfgPath)
	doc, _, err := structfile.ReadFile(path, decodeOptions(structure.KindHashMap, reg, structure.Options{}))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("palette:")
	for i, k := range doc.Palette {
		fmt.Printf("  %4d %s\n", i, k)
	}
	fmt.Println("blocks:")
	n := 0
	for p, k := range doc.Structure.Blocks() {
		if *limit > 0 && n >= *limit {
			fmt.Println("  ...")
			break
		}
		line := fmt.Sprintf("  %-16s %s", p, k)
		if meta, ok := doc.Structure.Meta(p); ok {
			line += " " + nbt.Stringify(meta)
		}
		fmt.Println(line)
		n++
	}
}
