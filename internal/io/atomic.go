package io

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package io writes output files atomically: data goes to a buffered temporary file
next to the destination and is renamed into place only on Commit, so an
interrupted export never leaves a truncated file behind.
*/

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultBufferSize is the default buffer size for disk I/O
	DefaultBufferSize = 256 * 1024 // 256KB

	// TempSuffix is appended to the destination path while writing.
	TempSuffix = ".tmp"
)

var (
	// ErrBufferClosed is returned when attempting to write to a committed or aborted file
	ErrBufferClosed = errors.New("write buffer closed")
)

// AtomicFile is a buffered writer whose content becomes visible at its final
// path only after Commit.
type AtomicFile struct {
	mu        sync.Mutex
	file      *os.File
	bufWriter *bufio.Writer
	tmpPath   string
	finalPath string
	written   int64
	closed    bool
}

// CreateAtomic opens a temporary file for path, creating parent directories.
// A bufferSize of 0 selects DefaultBufferSize.
func CreateAtomic(path string, bufferSize int) (*AtomicFile, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	tmp := TempPath(path)
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	return &AtomicFile{
		file:      f,
		bufWriter: bufio.NewWriterSize(f, bufferSize),
		tmpPath:   tmp,
		finalPath: path,
	}, nil
}

// TempPath returns the temporary path used while writing path.
func TempPath(path string) string {
	return path + TempSuffix
}

// Write buffers p.
func (a *AtomicFile) Write(p []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, ErrBufferClosed
	}
	n, err := a.bufWriter.Write(p)
	a.written += int64(n)
	return n, err
}

// Written returns the number of bytes accepted so far.
func (a *AtomicFile) Written() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.written
}

// Commit flushes, syncs and renames the temporary file onto the destination.
// On failure the temporary file is removed.
func (a *AtomicFile) Commit() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrBufferClosed
	}
	a.closed = true

	if err := a.bufWriter.Flush(); err != nil {
		a.discard()
		return fmt.Errorf("flush %s: %w", a.tmpPath, err)
	}
	if err := a.file.Sync(); err != nil {
		a.discard()
		return fmt.Errorf("sync %s: %w", a.tmpPath, err)
	}
	if err := a.file.Close(); err != nil {
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("close %s: %w", a.tmpPath, err)
	}
	if err := os.Rename(a.tmpPath, a.finalPath); err != nil {
		_ = os.Remove(a.tmpPath)
		return fmt.Errorf("rename %s: %w", a.tmpPath, err)
	}
	return nil
}

// Abort drops everything written. It is safe to call after Commit.
func (a *AtomicFile) Abort() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.discard()
}

func (a *AtomicFile) discard() error {
	closeErr := a.file.Close()
	if err := os.Remove(a.tmpPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		return closeErr
	}
	return nil
}

// ReplaceFile renames a fully written temporary file onto path. It is used by
// writers that manage the temporary file themselves, such as database drivers.
func ReplaceFile(tmpPath, path string) error {
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}
