package engine

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/viant/vec/search"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterFunctions registers kd_l2 and kd_dims with the driver so they are
// available on new connections opened after this call.
// Existing open connections will not see new functions.
func RegisterFunctions(_ *sql.DB) error {
	var err error
	registerOnce.Do(func() {
		if err = sqlite.RegisterDeterministicScalarFunction("kd_l2", 2, kdL2Impl); err != nil {
			return
		}
		err = sqlite.RegisterDeterministicScalarFunction("kd_dims", 1, kdDimsImpl)
	})
	return err
}

func asPoint(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodePoint(v)
	default:
		return nil, fmt.Errorf("kd: unsupported argument type %T for point; want BLOB", arg)
	}
}

func kdL2Impl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("kd_l2: expected 2 arguments, got %d", len(args))
	}
	a, err := asPoint(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asPoint(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	if len(a) != len(b) {
		return nil, fmt.Errorf("kd_l2: dimension mismatch %d vs %d", len(a), len(b))
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

func kdDimsImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("kd_dims: expected 1 argument, got %d", len(args))
	}
	p, err := asPoint(args[0])
	if err != nil {
		return nil, err
	}
	return int64(len(p)), nil
}

// Local copy of vector.DecodePoint; vector tests import this package.
func decodePoint(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("kd: invalid point blob length %d", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
