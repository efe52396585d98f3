package safetensors

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/lambentLogic/spectrum/internal/contract"
	"github.com/lambentLogic/spectrum/schema"
)

// singleFileName is the conventional name for an unsharded checkpoint.
const singleFileName = "model.safetensors"

// indexFileName points at the shard map of a sharded checkpoint.
const indexFileName = "model.safetensors.index.json"

// tensorEntry locates one tensor inside a shard file.
type tensorEntry struct {
	path string
	info tensorInfo
	off  int64 // absolute offset of the shard's byte buffer
}

// Catalog enumerates the tensors of a safetensors checkpoint. It indexes
// headers eagerly and loads tensor data lazily, so enumerating a 70B model
// costs a few JSON parses. Load is safe for concurrent use.
type Catalog struct {
	root        string
	names       []string
	entries     map[string]tensorEntry
	fingerprint string
}

var _ contract.TensorCatalog = (*Catalog)(nil) // Compile-time check

// OpenCatalog indexes a checkpoint given a .safetensors file or a model
// directory holding either a single checkpoint file or a sharded index.
func OpenCatalog(path string) (*Catalog, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var shards []string
	root := path
	switch {
	case !info.IsDir():
		shards = []string{path}
		root = filepath.Dir(path)
	default:
		shards, err = shardFiles(path)
		if err != nil {
			return nil, err
		}
	}

	c := &Catalog{root: root, entries: make(map[string]tensorEntry)}
	for _, shard := range shards {
		h, err := parseHeaderFile(shard)
		if err != nil {
			return nil, err
		}
		for _, name := range h.names {
			if _, dup := c.entries[name]; dup {
				return nil, fmt.Errorf("tensor %q appears in multiple shards", name)
			}
			c.names = append(c.names, name)
			c.entries[name] = tensorEntry{path: shard, info: h.tensors[name], off: h.dataOff}
		}
	}
	if len(c.names) == 0 {
		return nil, fmt.Errorf("no tensors found under %s", path)
	}

	c.fingerprint, err = fingerprintFiles(path, shards)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// shardFiles resolves the checkpoint files of a model directory. A shard
// index wins over globbing; shards are visited in sorted order so the
// catalog's registration order is stable.
func shardFiles(dir string) ([]string, error) {
	if _, err := os.Stat(filepath.Join(dir, indexFileName)); err == nil {
		return shardsFromIndex(dir)
	}
	if _, err := os.Stat(filepath.Join(dir, singleFileName)); err == nil {
		return []string{filepath.Join(dir, singleFileName)}, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.safetensors"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no .safetensors files in %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// shardsFromIndex reads the weight_map of a shard index and returns the
// unique shard files it references, in sorted order.
func shardsFromIndex(dir string) ([]string, error) {
	indexPath := filepath.Join(dir, indexFileName)
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, err
	}

	var index struct {
		WeightMap map[string]string `json:"weight_map"`
	}
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%s: %w", indexPath, err)
	}
	if len(index.WeightMap) == 0 {
		return nil, fmt.Errorf("%s has an empty weight_map", indexPath)
	}

	seen := make(map[string]bool)
	var shards []string
	for _, file := range index.WeightMap {
		if !seen[file] {
			seen[file] = true
			shards = append(shards, filepath.Join(dir, file))
		}
	}
	sort.Strings(shards)
	return shards, nil
}

// Names returns all tensor names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Fingerprint identifies the checkpoint contents for cache keying.
func (c *Catalog) Fingerprint() string {
	return c.fingerprint
}

// Load materializes the named tensor as a 2-D float64 matrix.
func (c *Catalog) Load(name string) (*schema.WeightMatrix, error) {
	entry, ok := c.entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown tensor %q", name)
	}

	count, err := numElements(entry.info.Shape)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}

	raw, err := readRange(entry.path, entry.off+int64(entry.info.Offsets[0]), entry.info.Offsets[1]-entry.info.Offsets[0])
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}

	data, err := decodeValues(raw, entry.info.DType, count)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", name, err)
	}

	rows, cols := matrixShape(entry.info.Shape)
	m := &schema.WeightMatrix{Name: name, Rows: rows, Cols: cols, Data: data}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// readRange reads length bytes starting at off from path.
func readRange(path string, off int64, length int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, length)
	if _, err := io.ReadFull(io.NewSectionReader(f, off, int64(length)), buf); err != nil {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", length, off, err)
	}
	return buf, nil
}

// fingerprintFiles hashes shard identities (path, size, mtime) into a cache
// key component. Content hashing would defeat the point of caching for
// multi-gigabyte checkpoints.
func fingerprintFiles(root string, shards []string) (string, error) {
	h := sha256.New()
	fmt.Fprintln(h, root)
	for _, shard := range shards {
		info, err := os.Stat(shard)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s|%d|%d\n", filepath.Base(shard), info.Size(), info.ModTime().UnixNano())
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
