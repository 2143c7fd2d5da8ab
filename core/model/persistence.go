package model

import (
	"io"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// WriteFileAtomic はwriteの出力を同じディレクトリの一時ファイルに書き、
// 成功した場合のみpathへリネームする。失敗時にpathは変更されない。
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temporary file in %s", dir)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temporary file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "close temporary file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// SaveForest はフォレストをバイナリ形式でファイルに保存する
//
// 使用例:
//
//	err := model.SaveForest(f, "forest.bin")
func SaveForest[F forest.WeakLearner, S forest.Aggregator[S]](f *forest.Forest[F, S], path string) error {
	if f == nil {
		return errors.NewValueError("SaveForest", "forest is nil")
	}
	return WriteFileAtomic(path, f.Serialize)
}

// LoadForest はSaveForestで保存したファイルからフォレストを読み込む
func LoadForest[F forest.WeakLearner, S forest.Aggregator[S]](path string, codec forest.Codec[F, S]) (*forest.Forest[F, S], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open forest file %s", path)
	}
	defer file.Close()

	return forest.Deserialize(file, codec)
}
