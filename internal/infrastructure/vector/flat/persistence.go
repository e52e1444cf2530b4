package flat

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/shehbaz-7/Learnwave/internal/core/domain"
)

// Index file layout: magic, format version, dimension, entry count, then
// count entries of (int64 id, dim float32 components), all little-endian.
const (
	indexMagic   uint32 = 0x4C574958 // "LWIX"
	indexVersion uint32 = 1
)

func writeIndexFile(path string, x *IDIndex) error {
	return atomicWrite(path, func(w io.Writer) error {
		header := []uint32{indexMagic, indexVersion, uint32(x.dim), uint32(len(x.ids))}
		for _, v := range header {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
		for i, id := range x.ids {
			if err := binary.Write(w, binary.LittleEndian, id); err != nil {
				return fmt.Errorf("write id %d: %w", id, err)
			}
			row := x.data[i*x.dim : (i+1)*x.dim]
			for _, f := range row {
				if err := binary.Write(w, binary.LittleEndian, math.Float32bits(f)); err != nil {
					return fmt.Errorf("write vector %d: %w", id, err)
				}
			}
		}
		return nil
	})
}

func readIndexFile(path string) (*IDIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic, version, dim, count uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	if magic != indexMagic {
		return nil, fmt.Errorf("bad index magic %#x", magic)
	}
	if version != indexVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	if dim == 0 || dim > 1<<16 {
		return nil, fmt.Errorf("implausible index dimension %d", dim)
	}

	x := &IDIndex{
		dim:  int(dim),
		ids:  make([]int64, count),
		data: make([]float32, int(count)*int(dim)),
	}
	for i := range x.ids {
		if err := binary.Read(r, binary.LittleEndian, &x.ids[i]); err != nil {
			return nil, fmt.Errorf("read id %d: %w", i, err)
		}
		row := x.data[i*x.dim : (i+1)*x.dim]
		for j := range row {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return nil, fmt.Errorf("read vector %d: %w", i, err)
			}
			row[j] = math.Float32frombits(bits)
		}
	}
	return x, nil
}

func writeMetaFile(path string, meta map[int64]domain.UnitMeta) error {
	return atomicWrite(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode metadata map: %w", err)
		}
		return nil
	})
}

func readMetaFile(path string) (map[int64]domain.UnitMeta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata map: %w", err)
	}
	meta := make(map[int64]domain.UnitMeta)
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata map: %w", err)
	}
	return meta, nil
}

// atomicWrite writes to a temp sibling and renames into place so each file
// is individually never half-written. The one acknowledged inconsistency
// window is a crash between writing the index file and the metadata file.
func atomicWrite(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
