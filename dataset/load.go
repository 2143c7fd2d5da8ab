package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Load reads tab-delimited points, one per line. With HasClassLabels the
// first column is a class label; labels are mapped to 0, 1, ... in order of
// first appearance and an empty label becomes UnknownLabel. With
// HasTargetValues the last column is a real-valued target. Blank lines are
// skipped.
func Load(r io.Reader, dims int, descriptor Descriptor) (*Collection, error) {
	if dims < 1 {
		return nil, errors.NewValidationError("dims", "must be at least 1", dims)
	}
	hasLabels := descriptor&HasClassLabels != 0
	hasTargets := descriptor&HasTargetValues != 0

	perLine := dims
	if hasLabels {
		perLine++
	}
	if hasTargets {
		perLine++
	}

	c := &Collection{dims: dims}
	labelIndex := map[string]int{}
	if hasLabels {
		c.labels = []int{}
		c.labelNames = []string{}
	}
	if hasTargets {
		c.targets = []float64{}
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != perLine {
			return nil, errors.NewValueError("dataset.Load",
				fmt.Sprintf("line %d has %d fields, want %d", lineNo, len(fields), perLine))
		}

		if hasLabels {
			name := strings.TrimSpace(fields[0])
			fields = fields[1:]
			if name == "" {
				c.labels = append(c.labels, UnknownLabel)
			} else {
				idx, ok := labelIndex[name]
				if !ok {
					idx = len(c.labelNames)
					labelIndex[name] = idx
					c.labelNames = append(c.labelNames, name)
				}
				c.labels = append(c.labels, idx)
			}
		}

		for d := 0; d < dims; d++ {
			v, err := parseValue(fields[d], lineNo)
			if err != nil {
				return nil, err
			}
			c.data = append(c.data, v)
		}

		if hasTargets {
			v, err := parseValue(fields[dims], lineNo)
			if err != nil {
				return nil, err
			}
			c.targets = append(c.targets, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "dataset: read")
	}
	if c.Count() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "dataset: no points read")
	}
	return c, nil
}

func parseValue(s string, lineNo int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errors.NewValueError("dataset.Load", fmt.Sprintf("line %d: %v", lineNo, err))
	}
	return v, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, dims int, descriptor Descriptor) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	c, err := Load(f, dims, descriptor)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: load %s", path)
	}
	return c, nil
}

// LoadNpy reads a 2-D float64 .npy array of points, one per row.
func LoadNpy(r io.Reader) (*Collection, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read npy header")
	}
	if len(nr.Header.Descr.Shape) != 2 {
		return nil, errors.NewValueError("dataset.LoadNpy",
			fmt.Sprintf("points array has shape %v, want 2 dimensions", nr.Header.Descr.Shape))
	}

	var m mat.Dense
	if err := nr.Read(&m); err != nil {
		return nil, errors.Wrap(err, "dataset: read npy points")
	}
	return FromMatrix(&m)
}

// ReadNpyVector reads a 1-D .npy array of float64, float32, int64 or int32
// values as float64.
func ReadNpyVector(r io.Reader) ([]float64, error) {
	nr, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read npy header")
	}
	if len(nr.Header.Descr.Shape) != 1 {
		return nil, errors.NewValueError("dataset.ReadNpyVector",
			fmt.Sprintf("array has shape %v, want 1 dimension", nr.Header.Descr.Shape))
	}

	switch strings.TrimLeft(nr.Header.Descr.Type, "<|=") {
	case "f8":
		var v []float64
		err = nr.Read(&v)
		return v, errors.Wrap(err, "dataset: read npy vector")
	case "f4":
		var v []float32
		if err := nr.Read(&v); err != nil {
			return nil, errors.Wrap(err, "dataset: read npy vector")
		}
		return widen(v), nil
	case "i8":
		var v []int64
		if err := nr.Read(&v); err != nil {
			return nil, errors.Wrap(err, "dataset: read npy vector")
		}
		return widen(v), nil
	case "i4":
		var v []int32
		if err := nr.Read(&v); err != nil {
			return nil, errors.Wrap(err, "dataset: read npy vector")
		}
		return widen(v), nil
	default:
		return nil, errors.NewValueError("dataset.ReadNpyVector",
			fmt.Sprintf("unsupported dtype %q", nr.Header.Descr.Type))
	}
}

func widen[T float32 | int64 | int32](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// ReadNpyLabels reads a 1-D .npy array of integer class labels.
func ReadNpyLabels(r io.Reader) ([]int, error) {
	v, err := ReadNpyVector(r)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(v))
	for i, x := range v {
		if x != float64(int(x)) {
			return nil, errors.NewValueError("dataset.ReadNpyLabels",
				fmt.Sprintf("label %v at %d is not an integer", x, i))
		}
		labels[i] = int(x)
	}
	return labels, nil
}

// WriteNpy writes m as a .npy array.
func WriteNpy(w io.Writer, m mat.Matrix) error {
	return errors.Wrap(npyio.Write(w, m), "dataset: write npy")
}
