package organizer

import (
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"lectern/internal/fileutil"
)

// writeBundle stores audioPath as entryName inside a deflated zip at target.
func writeBundle(target, audioPath, entryName string) error {
	src, err := os.Open(audioPath)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}

	return fileutil.WriteAtomic(target, 0o644, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.BestCompression)
		})
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = entryName
		header.Method = zip.Deflate
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		if _, err := io.Copy(entry, src); err != nil {
			return err
		}
		return zw.Close()
	})
}
