package main

import (
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/gribidx"
	"github.com/hupe1980/gribidx/blobstore"
	minioblob "github.com/hupe1980/gribidx/blobstore/minio"
	s3blob "github.com/hupe1980/gribidx/blobstore/s3"
)

// openStore builds the blob store selected by the global flags.
func openStore(c *cli.Context) (blobstore.BlobStore, gribidx.Backend, error) {
	switch kind := c.String("store"); kind {
	case "local":
		store := blobstore.NewLocalStore(c.String("root"))
		return store, gribidx.Local(c.String("root")), nil
	case "s3":
		var opts []s3blob.Option
		if p := c.String("prefix"); p != "" {
			opts = append(opts, s3blob.WithPrefix(p))
		}
		if r := c.String("region"); r != "" {
			opts = append(opts, s3blob.WithRegion(r))
		}
		if e := c.String("endpoint"); e != "" {
			opts = append(opts, s3blob.WithEndpoint(e))
		}
		store, err := s3blob.New(c.Context, c.String("bucket"), opts...)
		if err != nil {
			return nil, gribidx.Backend{}, fmt.Errorf("s3 store: %w", err)
		}
		return store, gribidx.Remote(store), nil
	case "minio":
		client, err := minio.New(c.String("endpoint"), &minio.Options{
			Creds:  credentials.NewStaticV4(c.String("access-key"), c.String("secret-key"), ""),
			Secure: !c.Bool("insecure"),
		})
		if err != nil {
			return nil, gribidx.Backend{}, fmt.Errorf("minio store: %w", err)
		}
		store := minioblob.NewStore(client, c.String("bucket"), c.String("prefix"))
		return store, gribidx.Remote(store), nil
	default:
		return nil, gribidx.Backend{}, fmt.Errorf("unknown store %q (want local, s3 or minio)", kind)
	}
}

func logLevel(c *cli.Context) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return 0, fmt.Errorf("--log-level: %w", err)
	}
	return l, nil
}

func indexArgs(c *cli.Context) (dir, name string, err error) {
	if c.NArg() != 2 {
		return "", "", fmt.Errorf("%s: want DIR NAME, got %d arguments", c.Command.Name, c.NArg())
	}
	return c.Args().Get(0), c.Args().Get(1), nil
}

// openIndex opens the index named by the command arguments with the
// configured logger.
func openIndex(c *cli.Context) (*gribidx.Collection, blobstore.BlobStore, error) {
	dir, name, err := indexArgs(c)
	if err != nil {
		return nil, nil, err
	}
	level, err := logLevel(c)
	if err != nil {
		return nil, nil, err
	}
	store, backend, err := openStore(c)
	if err != nil {
		return nil, nil, err
	}
	logger := gribidx.NewLogger(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
	idx, err := gribidx.Open(c.Context, backend, dir, name, gribidx.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return idx, store, nil
}
