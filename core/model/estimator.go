// Package model はフォレスト推定器が共有するインターフェース、学習状態、永続化を提供します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は教師あり学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X mat.Matrix, y []float64) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データの各行に対する予測を返す
	Predict(X mat.Matrix) ([]float64, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	Score(X mat.Matrix, y []float64) (float64, error)
}

// Regressor は回帰モデルのインターフェース
type Regressor interface {
	Fitter
	Predictor
	Scorer
}

// Classifier は分類モデルのインターフェース
type Classifier interface {
	Fitter
	Predictor
	Scorer

	// PredictProba は各行について各クラスの確率を返す
	PredictProba(X mat.Matrix) (*mat.Dense, error)

	// NClasses は学習されたクラス数を返す
	NClasses() int
}

// DensityEstimator は教師なし密度推定モデルのインターフェース
type DensityEstimator interface {
	// Fit はラベルなしデータで学習する
	Fit(X mat.Matrix) error

	// LogProbability は各行の対数密度を返す
	LogProbability(X mat.Matrix) ([]float64, error)
}

// Persistable はファイルに保存・読み込みできるモデルのインターフェース
type Persistable interface {
	Save(path string) error
	Load(path string) error
}
