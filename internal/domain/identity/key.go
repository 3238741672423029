package identity

import (
	"bytes"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Size es el ancho fijo de una identidad (mismo formato que una dirección de wallet).
const Size = 20

var (
	ErrInvalidKey = errors.New("invalid identity key")
)

// Key identifica a un participante (paciente o médico).
// El valor cero significa "sin identidad" y nunca es un participante válido.
type Key [Size]byte

// Parse acepta 40 dígitos hex, con o sin prefijo 0x, sin distinguir mayúsculas.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	if len(s) != Size*2 {
		return Key{}, fmt.Errorf("%w: expected %d hex chars", ErrInvalidKey, Size*2)
	}

	var k Key
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return k, nil
}

// MustParse es para tests y constantes.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// FromBytes copia b en una Key; b debe medir exactamente Size.
func FromBytes(b []byte) (Key, error) {
	if len(b) != Size {
		return Key{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, Size, len(b))
	}
	var k Key
	copy(k[:], b)
	return k, nil
}

func (k Key) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// Hex devuelve la forma sin prefijo (útil como componente de claves de storage).
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) Compare(other Key) int {
	return bytes.Compare(k[:], other[:])
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value/Scan permiten usar Key directamente como BYTEA en database/sql.
func (k Key) Value() (driver.Value, error) {
	return k[:], nil
}

func (k *Key) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		parsed, err := FromBytes(v)
		if err != nil {
			return err
		}
		*k = parsed
		return nil
	case nil:
		*k = Key{}
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidKey, src)
	}
}
