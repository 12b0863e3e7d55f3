package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"voxelstruct/internal/persistence/indexdb"
)

type indexRow struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Source      string `json:"source,omitempty"`
	Author      string `json:"author,omitempty"`
	Size        [3]int `json:"size"`
	Palette     int    `json:"palette"`
	Blocks      int    `json:"blocks"`
	Metadata    int    `json:"metadata"`
	Backend     string `json:"backend"`
	Compression string `json:"compression"`
	Bytes       int64  `json:"bytes"`
	SHA256      string `json:"sha256"`
	RecordedAt  string `json:"recorded_at"`
}

func toIndexRow(e indexdb.Entry) indexRow {
	return indexRow{
		ID:          e.ID,
		Path:        e.Path,
		Source:      e.Source,
		Author:      e.Author,
		Size:        [3]int{e.SizeX, e.SizeY, e.SizeZ},
		Palette:     e.Palette,
		Blocks:      e.Blocks,
		Metadata:    e.Metadata,
		Backend:     e.Backend,
		Compression: e.Compression,
		Bytes:       e.Bytes,
		SHA256:      e.SHA256,
		RecordedAt:  e.RecordedAt.Format(time.RFC3339),
	}
}

// indexCmd prints index rows as JSON lines: "list" (default) or "find <sha256>".
func indexCmd(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	cfgPath := fs.String("config", "", "structctl.yaml path (optional)")
	dbPath := fs.String("db", "", "sqlite index path (default from config)")
	limit := fs.Int("limit", 0, "max rows (0 = all)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		cfg, _ := loadConfig(*cfgPath)
		path = cfg.IndexDB
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing -db (or index_db in config)")
		os.Exit(2)
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	q := "list"
	if fs.NArg() > 0 {
		q = fs.Arg(0)
	}
	var rows []indexdb.Entry
	switch q {
	case "list":
		rows, err = idx.ListStructures(ctx)
	case "find":
		if fs.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "usage: structctl index find <sha256>")
			os.Exit(2)
		}
		rows, err = idx.FindByDigest(ctx, strings.ToLower(fs.Arg(1)))
	default:
		fmt.Fprintf(os.Stderr, "unknown index query %q\n", q)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	for i, e := range rows {
		if *limit > 0 && i >= *limit {
			break
		}
		_ = enc.Encode(toIndexRow(e))
	}
}
