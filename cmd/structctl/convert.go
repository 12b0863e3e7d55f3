package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"voxelstruct/internal/block"
	"voxelstruct/internal/config"
	"voxelstruct/internal/nbt"
	"voxelstruct/internal/persistence/indexdb"
	persistlog "voxelstruct/internal/persistence/log"
	"voxelstruct/internal/persistence/structfile"
	"voxelstruct/internal/structcodec"
	"voxelstruct/internal/structure"
)

type converter struct {
	outDir      string
	author      string
	kind        structure.Kind
	opts        structure.Options
	compression nbt.Compression
	reg         *block.Registry

	idx  *indexdb.SQLiteIndex         // optional
	clog *persistlog.ConversionLogger // optional

	converted atomic.Int64
	failed    atomic.Int64
	bytesIn   atomic.Int64
	bytesOut  atomic.Int64
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cfgPath := fs.String("config", "", "structctl.yaml path (optional)")
	outDir := fs.String("out", "", "output directory (required)")
	compression := fs.String("compression", "", "output envelope: none|gzip|zlib|zstd (default from config)")
	backend := fs.String("backend", "", "storage backend: dense|hashmap|octree (default from config)")
	author := fs.String("author", "", "author written into outputs (default: keep the input's, else config)")
	workers := fs.Int("workers", 0, "parallel conversions (default from config)")
	indexPath := fs.String("index", "", "sqlite index path (default from config; empty disables)")
	logDir := fs.String("log", "", "conversion log directory (default from config; empty disables)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*outDir) == "" {
		fmt.Fprintln(os.Stderr, "missing -out")
		os.Exit(2)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing input files")
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "[structctl] ", log.LstdFlags)
	cfg, reg := loadConfig(*cfgPath)
	if err := applyOverrides(&cfg, *compression, *backend, *author, *workers, *indexPath, *logDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &converter{
		outDir:      *outDir,
		author:      cfg.Author,
		kind:        cfg.Kind(),
		opts:        cfg.StructureOptions(),
		compression: cfg.CompressionMode(),
		reg:         reg,
	}
	if cfg.IndexDB != "" {
		idx, err := indexdb.OpenSQLite(cfg.IndexDB)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		if _, err := idx.UpsertCatalog(ctx, "blocks", cfg.Blocks); err != nil {
			logger.Printf("record block table: %v", err)
		}
		c.idx = idx
	}
	if cfg.LogDir != "" {
		c.clog = persistlog.NewConversionLogger(cfg.LogDir)
		defer func() {
			if err := c.clog.Close(); err != nil {
				logger.Printf("close conversion log: %v", err)
			}
		}()
	}

	start := time.Now()
	err := c.run(ctx, fs.Args(), cfg.Workers, logger)
	logger.Printf("converted %d, failed %d: %s -> %s in %s",
		c.converted.Load(), c.failed.Load(),
		humanize.Bytes(uint64(c.bytesIn.Load())), humanize.Bytes(uint64(c.bytesOut.Load())),
		time.Since(start).Round(time.Millisecond))
	if err != nil {
		logger.Printf("aborted: %v", err)
		os.Exit(1)
	}
	if c.failed.Load() > 0 {
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, compression, backend, author string, workers int, indexPath, logDir string) error {
	if compression != "" {
		cfg.Compression = compression
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if author != "" {
		cfg.Author = author
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if indexPath != "" {
		cfg.IndexDB = indexPath
	}
	if logDir != "" {
		cfg.LogDir = logDir
	}
	cfg.Normalize()
	return cfg.Validate()
}

// run converts inputs with at most workers in flight. A failed file is
// logged and counted; only cancellation stops the batch.
func (c *converter) run(ctx context.Context, inputs []string, workers int, logger *log.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			rec, err := c.convert(ctx, in)
			rec.DurationMS = time.Since(start).Milliseconds()
			if err != nil {
				c.failed.Add(1)
				rec.Error = err.Error()
				logger.Printf("%s: %v", in, err)
			} else {
				c.converted.Add(1)
				logger.Printf("%s -> %s (%s, %d blocks, %d palette)", in, rec.Output, humanize.Bytes(uint64(rec.Bytes)), rec.Blocks, rec.Palette)
			}
			if err := c.clog.WriteConversion(rec); err != nil {
				logger.Printf("conversion log: %v", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (c *converter) outputPath(in string) string {
	base := filepath.Base(in)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(c.outDir, base+".nbt")
}

func (c *converter) convert(ctx context.Context, in string) (persistlog.ConversionRecord, error) {
	rec := persistlog.ConversionRecord{
		Input:       in,
		Backend:     string(c.kind),
		Compression: c.compression.String(),
	}

	if st, err := os.Stat(in); err == nil {
		c.bytesIn.Add(st.Size())
	}
	doc, _, err := structfile.ReadFile(in, decodeOptions(c.kind, c.reg, c.opts))
	if err != nil {
		return rec, err
	}
	author := doc.Author
	if c.author != "" {
		author = c.author
	}

	out := c.outputPath(in)
	info, err := structfile.WriteFile(out, doc.Structure, structcodec.EncodeOptions{Author: author}, c.compression)
	if err != nil {
		return rec, err
	}
	c.bytesOut.Add(info.Bytes)

	size := doc.Structure.Size()
	rec.Output = out
	rec.Size = [3]int{size.X, size.Y, size.Z}
	rec.Palette = info.Stats.Palette
	rec.Blocks = info.Stats.Blocks
	rec.Bytes = info.Bytes
	rec.SHA256 = info.SHA256

	entry := indexdb.Entry{
		ID:          uuid.NewString(),
		Path:        absPath(out),
		Source:      absPath(in),
		Author:      author,
		SizeX:       size.X,
		SizeY:       size.Y,
		SizeZ:       size.Z,
		Palette:     info.Stats.Palette,
		Blocks:      info.Stats.Blocks,
		Metadata:    info.Stats.Metadata,
		Backend:     string(c.kind),
		Compression: c.compression.String(),
		Bytes:       info.Bytes,
		SHA256:      info.SHA256,
	}
	id, err := c.idx.RecordStructure(ctx, entry)
	if err != nil {
		return rec, fmt.Errorf("index %s: %w", out, err)
	}
	rec.ID = id
	return rec, nil
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
