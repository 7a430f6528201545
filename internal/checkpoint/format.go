package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/minigrad/internal/tensor"
)

const (
	metadataKey = "__metadata__"
	dtypeF64    = "F64"

	// Metadata keys written by Write.
	MetaFormat   = "format"
	MetaChecksum = "sha256"

	formatName = "minigrad"
)

// header is one tensor entry of the JSON header.
type header struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

type entry struct {
	name string
	header
}

func (e entry) begin() int64 { return e.DataOffsets[0] }
func (e entry) end() int64   { return e.DataOffsets[1] }

// Write encodes tensors (written in name order) and metadata to w.
func Write(w io.Writer, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	slices.Sort(names)

	var data bytes.Buffer
	hdr := make(map[string]any, len(names)+1)
	var offset int64
	for _, name := range names {
		t := tensors[name]
		shape := make([]int64, t.Rank())
		for i, dim := range t.Shape() {
			shape[i] = int64(dim)
		}
		size := int64(t.Len()) * 8
		hdr[name] = header{DType: dtypeF64, Shape: shape, DataOffsets: [2]int64{offset, offset + size}}
		offset += size
		if err := binary.Write(&data, binary.LittleEndian, t.Data()); err != nil {
			return errors.Wrapf(err, "encode tensor %q", name)
		}
	}

	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	sum := sha256.Sum256(data.Bytes())
	meta[MetaFormat] = formatName
	meta[MetaChecksum] = hex.EncodeToString(sum[:])
	hdr[metadataKey] = meta

	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "write header size")
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrap(err, "write header")
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return errors.Wrap(err, "write tensor data")
	}
	return nil
}

// Read decodes a file written by Write (or any SafeTensors file with only F64 tensors).
func Read(r io.Reader) (map[string]*tensor.Tensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidHeader, "read header size: %v", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}
	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidHeader, "read header: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidHeader, "parse header: %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read tensor data")
	}

	var metadata map[string]string
	entries := make([]entry, 0, len(raw))
	for name, msg := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &metadata); err != nil {
				return nil, nil, errors.Wrapf(ErrInvalidHeader, "metadata: %v", err)
			}
			continue
		}
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		e := entry{name: name}
		if err := json.Unmarshal(msg, &e.header); err != nil {
			return nil, nil, errors.Wrapf(ErrInvalidHeader, "tensor %q: %v", name, err)
		}
		if e.DType != dtypeF64 {
			return nil, nil, errors.Wrapf(ErrUnsupportedDType, "tensor %q has dtype %q, want %s", name, e.DType, dtypeF64)
		}
		entries = append(entries, e)
	}
	if err := validateOffsets(entries, int64(len(data))); err != nil {
		return nil, nil, err
	}
	if want, found := metadata[MetaChecksum]; found {
		sum := sha256.Sum256(data)
		if got := hex.EncodeToString(sum[:]); got != want {
			return nil, nil, errors.Wrapf(ErrChecksumMismatch, "got %s, header says %s", got, want)
		}
	}

	tensors := make(map[string]*tensor.Tensor, len(entries))
	for _, e := range entries {
		t, err := decodeTensor(e, data)
		if err != nil {
			return nil, nil, err
		}
		tensors[e.name] = t
	}
	return tensors, metadata, nil
}

func decodeTensor(e entry, data []byte) (*tensor.Tensor, error) {
	shape := make(tensor.Shape, len(e.Shape))
	for i, dim := range e.Shape {
		if dim <= 0 || dim > math.MaxInt32 {
			return nil, errors.Wrapf(ErrInvalidHeader, "tensor %q: dimension %d", e.name, dim)
		}
		shape[i] = int(dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrInvalidHeader, "tensor %q: %v", e.name, err)
	}
	size := e.end() - e.begin()
	if size%8 != 0 || int64(shape.NumElements()) != size/8 {
		return nil, errors.Wrapf(ErrInvalidHeader, "tensor %q: shape %v does not match %d data bytes",
			e.name, shape, e.end()-e.begin())
	}
	values := make([]float64, shape.NumElements())
	if err := binary.Read(bytes.NewReader(data[e.begin():e.end()]), binary.LittleEndian, values); err != nil {
		return nil, errors.Wrapf(err, "decode tensor %q", e.name)
	}
	return tensor.New(shape, values)
}
