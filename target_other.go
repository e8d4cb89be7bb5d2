//go:build !unix

package blobpack

// pwrite falls back to (*os.File).WriteAt on platforms without pwrite(2).
func (t *FileTarget) pwrite(p []byte, off int64) (int, error) {
	return t.f.WriteAt(p, off)
}
