package forest

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Binary format, little-endian:
//
//	magic          [len(binaryMagic)]byte
//	major, minor   int32
//	trees          int32
//	per tree:
//	  nodes        int32 (2^(D+1)-1)
//	  per node:
//	    kind       uint8
//	    learner    uint32 length + bytes   (split only)
//	    threshold  float64                 (split only)
//	    statistics uint32 length + bytes   (leaf and split)
const (
	binaryMagic = "decisionforest.Forest"

	// MajorVersion and MinorVersion identify the binary format written by
	// Serialize. Deserialize accepts the same major version and any minor
	// version up to MinorVersion.
	MajorVersion = 1
	MinorVersion = 0

	// maxPayload bounds a single learner or statistics payload so that a
	// corrupt length cannot trigger a huge allocation.
	maxPayload = 1 << 26
)

type binaryWriter struct {
	w   *bufio.Writer
	err error
}

func (bw *binaryWriter) write(v any) {
	if bw.err == nil {
		bw.err = binary.Write(bw.w, binary.LittleEndian, v)
	}
}

func (bw *binaryWriter) payload(data []byte) {
	bw.write(uint32(len(data)))
	if bw.err == nil {
		_, bw.err = bw.w.Write(data)
	}
}

// Serialize writes the forest to w. Nothing is reported as written until
// the internal buffer has been flushed successfully.
func (f *Forest[F, S]) Serialize(w io.Writer) error {
	bw := &binaryWriter{w: bufio.NewWriter(w)}

	if _, err := bw.w.WriteString(binaryMagic); err != nil {
		return errors.Wrap(err, "forest: write header")
	}
	bw.write(int32(MajorVersion))
	bw.write(int32(MinorVersion))
	bw.write(int32(len(f.trees)))

	for t, tree := range f.trees {
		bw.write(int32(len(tree.nodes)))
		for i := range tree.nodes {
			if err := encodeNode(bw, &tree.nodes[i]); err != nil {
				return errors.Wrapf(err, "forest: encode tree %d node %d", t, i)
			}
		}
		if bw.err != nil {
			return errors.Wrapf(bw.err, "forest: write tree %d", t)
		}
	}
	if bw.err != nil {
		return errors.Wrap(bw.err, "forest: write")
	}
	return errors.Wrap(bw.w.Flush(), "forest: flush")
}

func encodeNode[F WeakLearner, S Aggregator[S]](bw *binaryWriter, n *Node[F, S]) error {
	bw.write(uint8(n.Kind))
	if n.Kind == NullNode {
		return nil
	}
	if n.Kind == SplitNode {
		learner, err := n.Learner.MarshalBinary()
		if err != nil {
			return err
		}
		bw.payload(learner)
		bw.write(n.Threshold)
	}
	stats, err := n.Statistics.MarshalBinary()
	if err != nil {
		return err
	}
	bw.payload(stats)
	return nil
}

type binaryReader struct {
	r *bufio.Reader
}

func (br *binaryReader) read(what string, v any) error {
	if err := binary.Read(br.r, binary.LittleEndian, v); err != nil {
		return truncated(what, err)
	}
	return nil
}

func (br *binaryReader) payload(what string) ([]byte, error) {
	var n uint32
	if err := br.read(what+" length", &n); err != nil {
		return nil, err
	}
	if n > maxPayload {
		return nil, errors.NewFormatError(fmt.Sprintf("%s length %d exceeds limit %d", what, n, maxPayload), nil)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(br.r, data); err != nil {
		return nil, truncated(what, err)
	}
	return data, nil
}

func truncated(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewFormatError("truncated stream reading "+what, err)
	}
	return errors.Wrapf(err, "forest: read %s", what)
}

// Deserialize reads a forest written by Serialize. Learners and statistics
// are decoded with codec. Every tree is validated, and any error leaves the
// caller with no forest at all.
func Deserialize[F WeakLearner, S Aggregator[S]](r io.Reader, codec Codec[F, S]) (*Forest[F, S], error) {
	if codec.Learner == nil || codec.Statistics == nil {
		return nil, errors.NewValueError("Deserialize", "codec must decode both learners and statistics")
	}
	br := &binaryReader{r: bufio.NewReader(r)}

	magic := make([]byte, len(binaryMagic))
	if _, err := io.ReadFull(br.r, magic); err != nil {
		return nil, truncated("header", err)
	}
	if string(magic) != binaryMagic {
		return nil, errors.NewFormatError(fmt.Sprintf("unrecognized header %q", magic), nil)
	}

	var major, minor, nTrees int32
	if err := br.read("major version", &major); err != nil {
		return nil, err
	}
	if err := br.read("minor version", &minor); err != nil {
		return nil, err
	}
	if major != MajorVersion || minor < 0 || minor > MinorVersion {
		return nil, errors.NewFormatError(fmt.Sprintf("unsupported version %d.%d", major, minor), nil)
	}
	if err := br.read("tree count", &nTrees); err != nil {
		return nil, err
	}
	if nTrees < 0 {
		return nil, errors.NewFormatError(fmt.Sprintf("negative tree count %d", nTrees), nil)
	}

	f := NewForest[F, S]()
	for t := 0; t < int(nTrees); t++ {
		tree, err := decodeTree(br, codec)
		if err != nil {
			return nil, errors.Wrapf(err, "forest: tree %d", t)
		}
		if err := f.AddTree(tree); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeTree[F WeakLearner, S Aggregator[S]](br *binaryReader, codec Codec[F, S]) (*Tree[F, S], error) {
	var nNodes int32
	if err := br.read("node count", &nNodes); err != nil {
		return nil, err
	}
	depth := -1
	for d := 0; d <= MaxDepth; d++ {
		if NodeCountForDepth(d) == int(nNodes) {
			depth = d
			break
		}
	}
	if depth < 0 {
		return nil, errors.NewFormatError(fmt.Sprintf("node count %d is not 2^(D+1)-1 for D in [0, %d]", nNodes, MaxDepth), nil)
	}

	tree, err := NewTree[F, S](depth)
	if err != nil {
		return nil, err
	}
	for i := range tree.nodes {
		if err := decodeNode(br, codec, &tree.nodes[i]); err != nil {
			return nil, errors.Wrapf(err, "forest: node %d", i)
		}
	}
	return tree, nil
}

func decodeNode[F WeakLearner, S Aggregator[S]](br *binaryReader, codec Codec[F, S], n *Node[F, S]) error {
	var kind uint8
	if err := br.read("node kind", &kind); err != nil {
		return err
	}
	n.Kind = NodeKind(kind)

	switch n.Kind {
	case NullNode:
		return nil
	case SplitNode:
		data, err := br.payload("learner")
		if err != nil {
			return err
		}
		if n.Learner, err = codec.Learner(data); err != nil {
			return errors.NewFormatError("decode learner", err)
		}
		if err := br.read("threshold", &n.Threshold); err != nil {
			return err
		}
	case LeafNode:
	default:
		return errors.NewFormatError(fmt.Sprintf("unknown node kind %d", kind), nil)
	}

	data, err := br.payload("statistics")
	if err != nil {
		return err
	}
	if n.Statistics, err = codec.Statistics(data); err != nil {
		return errors.NewFormatError("decode statistics", err)
	}
	return nil
}
