package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"
)

type Base struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

type Map map[string]any

func (m *Map) Scan(value any) error {
	switch t := value.(type) {
	case string:
		return json.Unmarshal([]byte(t), m)
	case []byte:
		return json.Unmarshal(t, m)
	default:
		return fmt.Errorf("cannot scan invalid data type %T", value)
	}
}

func (m Map) Value() (driver.Value, error) {
	bz, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	return string(bz), nil
}

// BigInt is an unbounded integer persisted as decimal text.
type BigInt struct {
	big.Int
}

func NewBigInt(x *big.Int) BigInt {
	var b BigInt
	if x != nil {
		b.Set(x)
	}

	return b
}

// Big returns a copy of the value.
func (b *BigInt) Big() *big.Int {
	return new(big.Int).Set(&b.Int)
}

func (b *BigInt) Scan(value any) error {
	var s string
	switch t := value.(type) {
	case nil:
		b.SetInt64(0)
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	case int64:
		b.SetInt64(t)
		return nil
	default:
		return fmt.Errorf("cannot scan invalid data type %T", value)
	}

	if s == "" {
		b.SetInt64(0)
		return nil
	}

	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid big integer %q", s)
	}

	return nil
}

func (b BigInt) Value() (driver.Value, error) {
	return b.String(), nil
}
