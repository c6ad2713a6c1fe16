package docker

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

// payload is a file placed in the container workdir before start.
type payload struct {
	name string
	mode int64
	data []byte
}

func (p payload) header(modTime time.Time) *tar.Header {
	mode := p.mode
	if mode == 0 {
		mode = 0o644
	}
	return &tar.Header{
		Name:     p.name,
		Typeflag: tar.TypeReg,
		Mode:     mode,
		Size:     int64(len(p.data)),
		ModTime:  modTime,
	}
}

// tarPayloads packs files into the tar stream CopyToContainer expects.
func tarPayloads(files []payload) (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	tw := tar.NewWriter(buf)
	now := time.Now()
	for _, file := range files {
		if err := tw.WriteHeader(file.header(now)); err != nil {
			return nil, fmt.Errorf("archive %s: %w", file.name, err)
		}
		if _, err := tw.Write(file.data); err != nil {
			return nil, fmt.Errorf("archive %s: %w", file.name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf, nil
}

// extractFile returns the contents of the regular file whose base name is
// name. CopyFromContainer wraps a single path in a tar stream, but a directory
// path yields every entry beneath it.
func extractFile(r io.Reader, name string) ([]byte, error) {
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s not found in container archive", name)
		}
		if err != nil {
			return nil, fmt.Errorf("read container archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg || path.Base(header.Name) != name {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
}
