package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/stu2116Edward/dockman/util/common"
	"github.com/stu2116Edward/dockman/util/common/errors"
)

// Exists checks if a file or directory exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile checks if the path is a regular file
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// IsDir checks if the path is a directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// WriteFile writes data to a file, creating parent directories as needed.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewFileError(path, "create_dir", err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return errors.NewFileError(path, "write", err)
	}
	return nil
}

// CopyFile copies a file from src to dst, creating parent directories and
// preserving the given mode on the destination.
func CopyFile(src, dst string, perm os.FileMode) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return errors.NewFileError(src, "stat", err)
	}
	if srcInfo.IsDir() {
		return errors.NewFileError(src, "copy", fmt.Errorf("source is a directory"))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.NewFileError(dst, "create_dir", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return errors.NewFileError(src, "open", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.NewFileError(dst, "create", err)
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return errors.NewFileError(dst, "copy", err)
	}
	return nil
}

// MoveFile moves a file across possibly different filesystems: rename when
// possible, copy+remove otherwise.
func MoveFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.NewFileError(dst, "create_dir", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return os.Chmod(dst, perm)
	}
	if err := CopyFile(src, dst, perm); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return errors.NewFileError(src, "remove", err)
	}
	return nil
}

// Backup copies path to a timestamped sibling ("<path>.bak.<stamp>") and
// returns the backup path. A missing source is not an error; the returned
// path is empty in that case.
func Backup(path string, now time.Time) (string, error) {
	if !IsFile(path) {
		return "", nil
	}
	backupPath := fmt.Sprintf("%s.bak.%s", path, common.BackupStamp(now))
	if err := CopyFile(path, backupPath, 0644); err != nil {
		return "", err
	}
	return backupPath, nil
}
