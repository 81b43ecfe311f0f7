package importpipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	vaulterr "vaultfm/errors"
	"vaultfm/model"
)

// readItem is a block-size (or, for the release's last block, shorter)
// plaintext buffer read off the concatenated file stream, tagged with
// the release-wide block index it belongs to.
type readItem struct {
	index     int
	plaintext []byte
}

// encItem is a readItem after encryption, tagged with the freshly minted
// block id the upload stage will persist it under.
type encItem struct {
	index     int
	blockID   string
	encrypted []byte
}

// runReader walks files in the order the layout planner concatenated
// them, reading exactly blockSizeBytes at a time from the logical
// combined byte stream and carrying a partial buffer across a file
// boundary rather than padding it, so block boundaries never depend on
// individual file sizes. It sends one readItem per release-wide block
// index on out, then closes out — whether that return is success, a
// read error, or context cancellation.
func runReader(ctx context.Context, sourceDir string, files []*model.File, blockSizeBytes int64, out chan<- readItem) error {
	defer close(out)

	buf := make([]byte, 0, blockSizeBytes)
	index := 0

	flush := func(force bool) error {
		for len(buf) >= int(blockSizeBytes) || (force && len(buf) > 0) {
			n := int(blockSizeBytes)
			if n > len(buf) {
				n = len(buf)
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			buf = buf[n:]
			select {
			case out <- readItem{index: index, plaintext: chunk}:
				index++
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return vaulterr.Wrap(vaulterr.PipelineCancelled, "import cancelled", err)
		}

		path := filepath.Join(sourceDir, f.RelativePath)
		fh, err := os.Open(path)
		if err != nil {
			return vaulterr.Wrap(vaulterr.TransientIO, "open source file "+f.RelativePath, err)
		}

		readErr := func() error {
			defer fh.Close()
			chunk := make([]byte, 1<<20)
			for {
				n, err := fh.Read(chunk)
				if n > 0 {
					buf = append(buf, chunk[:n]...)
					if ferr := flush(false); ferr != nil {
						return ferr
					}
				}
				if err == io.EOF {
					return nil
				}
				if err != nil {
					return vaulterr.Wrap(vaulterr.TransientIO, "read source file "+f.RelativePath, err)
				}
			}
		}()
		if readErr != nil {
			return readErr
		}
	}

	if err := flush(true); err != nil {
		return err
	}
	if len(buf) != 0 {
		return vaulterr.New(vaulterr.Internal, fmt.Sprintf("reader left %d unflushed bytes", len(buf)))
	}
	return nil
}
