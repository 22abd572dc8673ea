// Copyright 2020 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Command zstdcat decodes Zstandard-compressed files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/cosnicolaou/zstdcat"
	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"
)

var (
	decodeFlag      bool
	encodeFlag      bool
	progressFlag    bool
	concurrencyFlag int
)

func main() {
	root := &cobra.Command{
		Use:   "zstdcat [flags] path...",
		Short: "decode Zstandard-compressed files",
		Args:  cobra.ArbitraryArgs,
		RunE:  run,
	}
	root.Flags().BoolVarP(&decodeFlag, "decode", "d", false, "decode the input")
	root.Flags().BoolVarP(&encodeFlag, "encode", "e", false, "encode the input (not supported)")
	root.Flags().BoolVar(&progressFlag, "progress", true, "display a progress bar")
	root.Flags().IntVar(&concurrencyFlag, "concurrency", runtime.GOMAXPROCS(-1), "number of frames decoded concurrently")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if decodeFlag && encodeFlag {
		return fmt.Errorf("zstdcat: -d/--decode and -e/--encode are mutually exclusive")
	}
	if encodeFlag {
		return zstd.ErrEncodeUnsupported
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	cmdutil.HandleSignals(cancel, os.Interrupt)

	if len(args) == 0 {
		return decodeStream(ctx, cmd, os.Stdin, os.Stdout, 0)
	}

	errs := errors.M{}
	for _, path := range args {
		errs.Append(decodeFile(ctx, cmd, path))
	}
	return errs.Err()
}

func decodeFile(ctx context.Context, cmd *cobra.Command, path string) error {
	if !strings.HasSuffix(path, ".zst") {
		return fmt.Errorf("zstdcat: %s: decode input must have a .zst suffix", path)
	}
	outPath := strings.TrimSuffix(path, ".zst")

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := os.Stat(outPath); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "zstdcat: overwriting existing file %s\n", outPath)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	return decodeStream(ctx, cmd, in, out, info.Size())
}

func decodeStream(ctx context.Context, cmd *cobra.Command, in io.Reader, out io.Writer, size int64) error {
	decOpts := []zstd.DecompressorOption{zstd.WithConcurrency(concurrencyFlag)}

	isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
	var progressWg sync.WaitGroup
	if progressFlag && size > 0 {
		ch := make(chan zstd.Progress, concurrencyFlag)
		decOpts = append(decOpts, zstd.WithProgress(ch))
		progressWr := os.Stdout
		if !isTTY {
			progressWr = os.Stderr
		}
		progressWg.Add(1)
		go func() {
			defer progressWg.Done()
			renderProgress(ctx, progressWr, ch, size)
		}()
	}

	rd := zstd.NewReader(ctx, in, zstd.WithDecompressorOptions(decOpts...))
	_, err := io.Copy(out, rd)
	progressWg.Wait()
	return err
}

func renderProgress(ctx context.Context, w io.Writer, ch chan zstd.Progress, size int64) {
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				fmt.Fprintln(w)
				return
			}
			bar.Add(p.Compressed)
		case <-ctx.Done():
			return
		}
	}
}
