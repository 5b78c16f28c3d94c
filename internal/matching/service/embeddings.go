package service

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Matrix - матрица эмбеддингов каталога, строки заранее L2-нормированы,
// поэтому косинус сводится к одному MulVec.
type Matrix struct {
	dense *mat.Dense
	rows  int
	dim   int
}

// NewMatrix строит матрицу rows×dim из плоского row-major среза.
func NewMatrix(rows, dim int, data []float32) (*Matrix, error) {
	if rows < 0 || dim < 0 || len(data) != rows*dim {
		return nil, fmt.Errorf("matrix: %d values do not fit %dx%d", len(data), rows, dim)
	}
	m := &Matrix{rows: rows, dim: dim}
	if rows == 0 || dim == 0 {
		return m, nil
	}
	buf := make([]float64, len(data))
	for i, v := range data {
		buf[i] = float64(v)
	}
	m.dense = mat.NewDense(rows, dim, buf)
	for i := 0; i < rows; i++ {
		row := m.dense.RowView(i).(*mat.VecDense)
		if n := mat.Norm(row, 2); n > 0 {
			row.ScaleVec(1/n, row)
		}
	}
	return m, nil
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Dim() int  { return m.dim }

// Cosine - косинусная схожесть запроса со всеми строками матрицы.
func (m *Matrix) Cosine(query []float32) ([]float64, error) {
	if len(query) != m.dim {
		return nil, fmt.Errorf("query vector has %d dims, matrix has %d", len(query), m.dim)
	}
	out := make([]float64, m.rows)
	if m.dense == nil {
		return out, nil
	}
	q := mat.NewVecDense(m.dim, nil)
	for i, v := range query {
		q.SetVec(i, float64(v))
	}
	n := mat.Norm(q, 2)
	if n == 0 {
		return out, nil
	}
	q.ScaleVec(1/n, q)

	res := mat.NewVecDense(m.rows, out)
	res.MulVec(m.dense, q)
	return out, nil
}

var npyMagic = []byte("\x93NUMPY")

var (
	reDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']+)'`)
	reFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	reShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// ErrNPYFormat - файл не похож на двумерный .npy из float32/float64.
var ErrNPYFormat = errors.New("unsupported npy file")

// ReadNPY читает двумерный массив '<f4' или '<f8' (C-order) и возвращает
// размеры и плоские данные в float32.
func ReadNPY(r io.Reader) (rows, dim int, data []float32, err error) {
	br := bufio.NewReader(r)
	head := make([]byte, 8)
	if _, err = io.ReadFull(br, head); err != nil {
		return 0, 0, nil, fmt.Errorf("npy header: %w", err)
	}
	if !bytes.Equal(head[:6], npyMagic) {
		return 0, 0, nil, fmt.Errorf("%w: bad magic", ErrNPYFormat)
	}

	var hlen int
	switch head[6] {
	case 1:
		var l uint16
		if err = binary.Read(br, binary.LittleEndian, &l); err != nil {
			return 0, 0, nil, fmt.Errorf("npy header: %w", err)
		}
		hlen = int(l)
	case 2, 3:
		var l uint32
		if err = binary.Read(br, binary.LittleEndian, &l); err != nil {
			return 0, 0, nil, fmt.Errorf("npy header: %w", err)
		}
		hlen = int(l)
	default:
		return 0, 0, nil, fmt.Errorf("%w: version %d", ErrNPYFormat, head[6])
	}

	hdr := make([]byte, hlen)
	if _, err = io.ReadFull(br, hdr); err != nil {
		return 0, 0, nil, fmt.Errorf("npy header: %w", err)
	}
	descr, fortran, shape, err := parseNPYHeader(string(hdr))
	if err != nil {
		return 0, 0, nil, err
	}
	if fortran {
		return 0, 0, nil, fmt.Errorf("%w: fortran order", ErrNPYFormat)
	}
	switch len(shape) {
	case 1:
		rows, dim = shape[0], 1
	case 2:
		rows, dim = shape[0], shape[1]
	default:
		return 0, 0, nil, fmt.Errorf("%w: shape %v", ErrNPYFormat, shape)
	}

	n := rows * dim
	data = make([]float32, n)
	switch descr {
	case "<f4":
		if err = binary.Read(br, binary.LittleEndian, data); err != nil {
			return 0, 0, nil, fmt.Errorf("npy data: %w", err)
		}
	case "<f8":
		buf := make([]float64, n)
		if err = binary.Read(br, binary.LittleEndian, buf); err != nil {
			return 0, 0, nil, fmt.Errorf("npy data: %w", err)
		}
		for i, v := range buf {
			data[i] = float32(v)
		}
	default:
		return 0, 0, nil, fmt.Errorf("%w: dtype %s", ErrNPYFormat, descr)
	}
	return rows, dim, data, nil
}

func parseNPYHeader(h string) (descr string, fortran bool, shape []int, err error) {
	m := reDescr.FindStringSubmatch(h)
	if m == nil {
		return "", false, nil, fmt.Errorf("%w: no descr", ErrNPYFormat)
	}
	descr = m[1]
	if f := reFortran.FindStringSubmatch(h); f != nil {
		fortran = f[1] == "True"
	}
	s := reShape.FindStringSubmatch(h)
	if s == nil {
		return "", false, nil, fmt.Errorf("%w: no shape", ErrNPYFormat)
	}
	for _, part := range strings.Split(s[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, convErr := strconv.Atoi(part)
		if convErr != nil || v < 0 {
			return "", false, nil, fmt.Errorf("%w: shape %q", ErrNPYFormat, s[1])
		}
		shape = append(shape, v)
	}
	return descr, fortran, shape, nil
}

// WriteNPY пишет rows×dim float32 в формате .npy v1.0.
func WriteNPY(w io.Writer, rows, dim int, data []float32) error {
	if len(data) != rows*dim {
		return fmt.Errorf("npy: %d values do not fit %dx%d", len(data), rows, dim)
	}
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, dim)
	// magic(6) + version(2) + len(2) + dict + '\n' выравниваем на 64
	total := 10 + len(dict) + 1
	pad := (64 - total%64) % 64
	header := dict + strings.Repeat(" ", pad) + "\n"
	if len(header) > math.MaxUint16 {
		return fmt.Errorf("npy: header too long")
	}

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)
	if err := binary.Write(bw, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("npy data: %w", err)
	}
	return bw.Flush()
}

// LoadMatrix читает .npy с диска.
func LoadMatrix(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, dim, data, err := ReadNPY(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewMatrix(rows, dim, data)
}

// SaveMatrix пишет плоские эмбеддинги в .npy.
func SaveMatrix(path string, rows, dim int, data []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNPY(f, rows, dim, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
