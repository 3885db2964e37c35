package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	st "github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/localapi"
	"github.com/eringen/spacetraveling/publish"
	"github.com/eringen/spacetraveling/views"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		app := st.New(siteConfig(conf), views.Funcs(), st.WithLogger(log))
		defer app.Close()
		return app.Start(ctx)
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the site as static files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		m, err := export(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Built %d listing pages and %d posts into %s\n", m.Pages, len(m.Posts), conf.GetString("build.output_dir"))
		return nil
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Export the site and upload it to an S3-compatible bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		pub, err := publish.NewS3Publisher(ctx, publishConfig(conf))
		if err != nil {
			return err
		}
		if _, err := export(ctx); err != nil {
			return err
		}
		res, err := pub.Publish(ctx, conf.GetString("build.output_dir"))
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded %d files (%d bytes)\n", res.Files, res.Bytes)
		return nil
	},
}

func export(ctx context.Context) (*st.Manifest, error) {
	app := st.New(siteConfig(conf), views.Funcs(), st.WithLogger(log))
	defer app.Close()
	return app.Export(ctx)
}

var localAPICmd = &cobra.Command{
	Use:   "localapi",
	Short: "Run the local content API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()
		store, err := localapi.NewStore(conf.GetString("localapi.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		srv := localapi.NewServer(store, localapi.ServerConfig{
			Addr:        conf.GetString("localapi.addr"),
			MediaDir:    conf.GetString("localapi.media_dir"),
			AccessToken: conf.GetString("localapi.access_token"),
			Logger:      log,
		})
		return srv.Start(ctx)
	},
}

var seedWatch, seedServe bool

var seedCmd = &cobra.Command{
	Use:   "seed [dir]",
	Short: "Import a directory of markdown posts into the local content API",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := conf.GetString("localapi.content_dir")
		if len(args) == 1 {
			dir = args[0]
		}
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		store, err := localapi.NewStore(conf.GetString("localapi.db"))
		if err != nil {
			return err
		}
		defer store.Close()
		media := localapi.NewMedia(conf.GetString("localapi.media_dir"), conf.GetString("localapi.base_url")+"/media")
		im := localapi.NewImporter(store, media, conf.GetString("content.document_type"), log)

		res, err := im.ImportDir(ctx, dir)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d posts, removed %d\n", len(res.Imported), len(res.Deleted))
		if !seedWatch && !seedServe {
			return nil
		}

		g, ctx := errgroup.WithContext(ctx)
		if seedWatch {
			g.Go(func() error {
				return localapi.Watch(ctx, dir, localapi.DefaultDebounce, func(ctx context.Context) error {
					_, err := im.ImportDir(ctx, dir)
					return err
				}, log)
			})
		}
		if seedServe {
			srv := localapi.NewServer(store, localapi.ServerConfig{
				Addr:        conf.GetString("localapi.addr"),
				MediaDir:    conf.GetString("localapi.media_dir"),
				AccessToken: conf.GetString("localapi.access_token"),
				Logger:      log,
			})
			g.Go(func() error { return srv.Start(ctx) })
		}
		return g.Wait()
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedWatch, "watch", false, "re-import when files change")
	seedCmd.Flags().BoolVar(&seedServe, "serve", false, "also run the local content API")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("spacetraveling %s\n", version)
	},
}
