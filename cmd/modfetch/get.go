package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/datallboy/modfetch/internal/domain"
)

type getOptions struct {
	mirrors []string
	sha256  string
	md5     string
	crc32   string
	size    int64
	name    string
}

func newGetCmd(root *rootOptions) *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download a single file over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := root.setup(false)
			if err != nil {
				return err
			}
			defer teardown(appCtx)

			req, err := domain.NewRequest(domain.HTTPSource{URL: args[0]}).
				Into(appCtx.Config.Download.OutDir).
				Named(opts.name).
				WithMirror(opts.mirrors...).
				WithValidation(domain.ValidationSpec{
					SHA256: opts.sha256,
					MD5:    opts.md5,
					CRC32:  opts.crc32,
					Size:   opts.size,
				}).
				Build()
			if err != nil {
				return &exitError{code: ExitInvalidArgs, msg: err.Error()}
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res := appCtx.Downloader.Download(ctx, req, func(ev domain.Event) {
				if ev.Kind == domain.EventProgress && ev.Total > 0 {
					fmt.Printf("\r%s / %s (%s/s)      ",
						humanize.IBytes(uint64(ev.Downloaded)), humanize.IBytes(uint64(ev.Total)), humanize.IBytes(uint64(ev.SpeedBPS)))
				}
			})
			fmt.Println()

			if !res.OK() {
				fmt.Printf("Download failed after %d attempt(s): %s\n", res.Attempts, res.Reason())
				return exitFor([]domain.Result{res})
			}

			fmt.Printf("Saved %s (%s) in %s after %d attempt(s)\n",
				res.Path, humanize.IBytes(uint64(res.Size)), res.Elapsed.Truncate(time.Millisecond), res.Attempts)
			if res.Mirror != "" {
				fmt.Printf("Served by mirror %s\n", res.Mirror)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&opts.mirrors, "mirror", nil, "fallback URL, may be repeated")
	f.StringVar(&opts.sha256, "sha256", "", "expected SHA-256 (hex)")
	f.StringVar(&opts.md5, "md5", "", "expected MD5 (hex)")
	f.StringVar(&opts.crc32, "crc32", "", "expected CRC32 (hex)")
	f.Int64Var(&opts.size, "size", 0, "expected size in bytes")
	f.StringVar(&opts.name, "name", "", "file name (defaults to the last URL segment)")
	f.StringVarP(&root.outDir, "out", "o", "", "download directory (overrides download.out_dir)")

	return cmd
}
