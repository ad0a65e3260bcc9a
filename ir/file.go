package ir

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-cabsim/dsp/convolve"
)

// IRPK catalog file layout (all integers little-endian):
//
//	magic   [4]byte "IRPK"
//	version uint16
//	count   uint32
//	entries count times:
//	    id       uint16-length-prefixed UTF-8 string
//	    tapCount uint32
//	    taps     float32 * tapCount
//
// Taps are stored as float32, matching the precision of the firmware's
// embedded IR data, and widened on load.

// FileVersion is the IRPK format version written by this package.
const FileVersion uint16 = 1

var irpkMagic = [4]byte{'I', 'R', 'P', 'K'}

// Errors returned by the catalog file codec.
var (
	ErrInvalidMagic       = errors.New("ir: invalid magic number")
	ErrUnsupportedVersion = errors.New("ir: unsupported file version")
)

// ReadCatalog parses an IRPK stream into a catalog. Entry counts and tap
// counts are validated against the catalog and engine limits.
func ReadCatalog(r io.Reader) (*Catalog, error) {
	var magic [4]byte

	_, err := io.ReadFull(r, magic[:])
	if err != nil {
		return nil, fmt.Errorf("ir: reading magic: %w", err)
	}

	if magic != irpkMagic {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMagic, magic)
	}

	var version uint16

	err = binary.Read(r, binary.LittleEndian, &version)
	if err != nil {
		return nil, fmt.Errorf("ir: reading version: %w", err)
	}

	if version != FileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var count uint32

	err = binary.Read(r, binary.LittleEndian, &count)
	if err != nil {
		return nil, fmt.Errorf("ir: reading entry count: %w", err)
	}

	if count > MaxCatalogEntries {
		return nil, fmt.Errorf("%w: %d of %d", ErrCatalogFull, count, MaxCatalogEntries)
	}

	kernels := make([]Kernel, 0, count)

	for i := range int(count) {
		kernel, err := readEntry(r)
		if err != nil {
			return nil, fmt.Errorf("ir: entry %d: %w", i, err)
		}

		kernels = append(kernels, kernel)
	}

	return NewCatalog(kernels...)
}

// ReadCatalogFile loads an IRPK catalog from a file.
func ReadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ir: opening %s: %w", path, err)
	}
	defer f.Close()

	return ReadCatalog(f)
}

func readEntry(r io.Reader) (Kernel, error) {
	id, err := readString(r)
	if err != nil {
		return Kernel{}, fmt.Errorf("reading id: %w", err)
	}

	var tapCount uint32

	err = binary.Read(r, binary.LittleEndian, &tapCount)
	if err != nil {
		return Kernel{}, fmt.Errorf("reading tap count: %w", err)
	}

	if tapCount > convolve.MaxKernelLength {
		return Kernel{}, fmt.Errorf("%w: %d taps", convolve.ErrKernelTooLong, tapCount)
	}

	raw := make([]byte, int(tapCount)*4)

	_, err = io.ReadFull(r, raw)
	if err != nil {
		return Kernel{}, fmt.Errorf("reading taps: %w", err)
	}

	taps := make([]float64, tapCount)
	for i := range taps {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		taps[i] = float64(math.Float32frombits(bits))
	}

	return Kernel{ID: id, Taps: taps}, nil
}

// WriteCatalog serializes the catalog as an IRPK stream.
func WriteCatalog(w io.Writer, c *Catalog) error {
	_, err := w.Write(irpkMagic[:])
	if err != nil {
		return fmt.Errorf("ir: writing magic: %w", err)
	}

	err = binary.Write(w, binary.LittleEndian, FileVersion)
	if err != nil {
		return fmt.Errorf("ir: writing version: %w", err)
	}

	err = binary.Write(w, binary.LittleEndian, uint32(c.Len()))
	if err != nil {
		return fmt.Errorf("ir: writing entry count: %w", err)
	}

	for i := range c.Len() {
		err = writeEntry(w, c.Kernel(i))
		if err != nil {
			return fmt.Errorf("ir: entry %d: %w", i, err)
		}
	}

	return nil
}

// WriteCatalogFile writes the catalog to a file.
func WriteCatalogFile(path string, c *Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ir: creating %s: %w", path, err)
	}

	err = WriteCatalog(f, c)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func writeEntry(w io.Writer, k *Kernel) error {
	err := writeString(w, k.ID)
	if err != nil {
		return fmt.Errorf("writing id: %w", err)
	}

	err = binary.Write(w, binary.LittleEndian, uint32(len(k.Taps)))
	if err != nil {
		return fmt.Errorf("writing tap count: %w", err)
	}

	raw := make([]byte, len(k.Taps)*4)
	for i, v := range k.Taps {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], math.Float32bits(float32(v)))
	}

	_, err = w.Write(raw)
	if err != nil {
		return fmt.Errorf("writing taps: %w", err)
	}

	return nil
}

// readString reads a uint16-length-prefixed UTF-8 string from r.
func readString(r io.Reader) (string, error) {
	var length uint16

	err := binary.Read(r, binary.LittleEndian, &length)
	if err != nil {
		return "", fmt.Errorf("reading string length: %w", err)
	}

	if length == 0 {
		return "", nil
	}

	buf := make([]byte, length)

	_, err = io.ReadFull(r, buf)
	if err != nil {
		return "", fmt.Errorf("reading string bytes: %w", err)
	}

	return string(buf), nil
}

// writeString writes a uint16-length-prefixed UTF-8 string to w.
func writeString(w io.Writer, s string) error {
	err := binary.Write(w, binary.LittleEndian, uint16(len(s)))
	if err != nil {
		return fmt.Errorf("writing string length: %w", err)
	}

	_, err = io.WriteString(w, s)
	if err != nil {
		return fmt.Errorf("writing string bytes: %w", err)
	}

	return nil
}
