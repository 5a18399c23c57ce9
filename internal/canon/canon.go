// Package canon implements deterministic canonical encoding and SHA-256
// hashing for everything the ledger puts into a hash chain. It
// deliberately does not hand this off to encoding/json: that package's map
// key ordering, while alphabetical since Go 1.12, is an implementation
// detail it does not contractually guarantee for hashing purposes, and it
// has no way to distinguish an absent field from an explicit null. See
// DESIGN.md for why no library in the example pack fits this narrow
// algorithm.
package canon

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Null is the sentinel for an explicitly-absent field. Encoding Null is
// different from omitting the field entirely: {"a":1} and {"a":1,"b":null}
// must hash differently, so optional fields are always emitted, using Null
// when unset.
type Null struct{}

// Bytes returns the canonical byte encoding of value.
//
// Supported value shapes: nil, Null, bool, string, int, int64, []byte
// (encoded as a hex string), map[string]interface{}, []interface{}, and
// []string. Floating-point values are rejected: the spec requires callers
// to widen to integers or strings before hashing.
func Bytes(value interface{}) ([]byte, error) {
	var b strings.Builder
	if err := encode(&b, value); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func encode(b *strings.Builder, value interface{}) error {
	switch v := value.(type) {
	case nil, Null:
		b.WriteString("null")
		return nil
	case bool:
		if v {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
		return nil
	case string:
		encodeString(b, v)
		return nil
	case int:
		b.WriteString(strconv.Itoa(v))
		return nil
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
		return nil
	case []byte:
		encodeString(b, hex.EncodeToString(v))
		return nil
	case float32, float64:
		return fmt.Errorf("canon: floating-point values must not appear in hashed payloads")
	case map[string]interface{}:
		return encodeMap(b, v)
	case []interface{}:
		return encodeSlice(b, v)
	case []string:
		anySlice := make([]interface{}, len(v))
		for i, s := range v {
			anySlice[i] = s
		}
		return encodeSlice(b, anySlice)
	default:
		return fmt.Errorf("canon: unsupported type %T", value)
	}
}

func encodeMap(b *strings.Builder, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, k)
		b.WriteByte(':')
		if err := encode(b, m[k]); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func encodeSlice(b *strings.Builder, s []interface{}) error {
	b.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := encode(b, v); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChainHash computes sha256(prevHash + ":" + entryData), the per-entry
// hash derivation the ledger chains on.
func ChainHash(prevHash string, entryData []byte) string {
	combined := make([]byte, 0, len(prevHash)+1+len(entryData))
	combined = append(combined, prevHash...)
	combined = append(combined, ':')
	combined = append(combined, entryData...)
	return SHA256Hex(combined)
}

// ConstantTimeEqual compares two hash strings in constant time. Every
// hash comparison in the ledger and the replay verifier goes through this,
// not ==.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ParamsHash computes the params_hash derivation: sha256(canonical(params)).
func ParamsHash(params map[string]interface{}) (string, error) {
	b, err := Bytes(params)
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}

// EvidenceHashOfRequest computes sha256(canonical({"evidence": evidence})).
func EvidenceHashOfRequest(evidence []string) (string, error) {
	b, err := Bytes(map[string]interface{}{"evidence": evidence})
	if err != nil {
		return "", err
	}
	return SHA256Hex(b), nil
}
