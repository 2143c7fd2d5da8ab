package metrics

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred []int) (float64, error) {
	if err := checkPair("Accuracy", len(yTrue), len(yPred)); err != nil {
		return 0, err
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// LogLoss は多クラスの対数損失を計算する。probs[i][k] は点 i がクラス k である確率。
// 確率は [eps, 1-eps] にクリップされる。
func LogLoss(yTrue []int, probs [][]float64) (float64, error) {
	if err := checkPair("LogLoss", len(yTrue), len(probs)); err != nil {
		return 0, err
	}

	const eps = 1e-15
	var sum float64
	for i, label := range yTrue {
		if label < 0 || label >= len(probs[i]) {
			return 0, errors.NewValueError("LogLoss",
				fmt.Sprintf("label %d of sample %d outside [0, %d)", label, i, len(probs[i])))
		}
		p := math.Min(math.Max(probs[i][label], eps), 1-eps)
		sum -= math.Log(p)
	}
	return sum / float64(len(yTrue)), nil
}
