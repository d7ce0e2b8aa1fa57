package utils

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/mitchellh/hashstructure"
	"github.com/oklog/ulid"
	"github.com/spf13/cobra"
)

var (
	ulidMutex   = sync.Mutex{}
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

// Ternary returns a when cond holds, else b
func Ternary(cond bool, a, b any) any {
	if cond {
		return a
	}
	return b
}

// ArrayContains returns the index of the first element matching match
func ArrayContains[T any](set []T, match func(elem T) bool) (int, bool) {
	for idx, elem := range set {
		if match(elem) {
			return idx, true
		}
	}

	return -1, false
}

// IsValidSubcommand checks if the passed subcommand is supported by the parent command
func IsValidSubcommand(available []*cobra.Command, sub string) bool {
	for _, s := range available {
		if sub == s.CalledAs() || sub == s.Name() || strings.HasPrefix(sub, "-") {
			return true
		}
	}
	return false
}

// Unmarshal serializes and deserializes any from into the object
// return error if occurred
func Unmarshal(from, object any) error {
	reformatted, err := json.Marshal(from)
	if err != nil {
		return err
	}

	err = json.Unmarshal(reformatted, object)
	if err != nil {
		return fmt.Errorf("error occurred while unmarshalling: %s", err)
	}

	return nil
}

// UnmarshalFile reads a JSON file into dest; validation runs when dest implements Validate
func UnmarshalFile(file string, dest any, validate bool) error {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return fmt.Errorf("provided file[%s] does not exist", file)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("file not found : %s", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal file[%s]: %s", file, err)
	}

	if validate {
		if v, ok := dest.(interface{ Validate() error }); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("invalid %s: %s", filepath.Base(file), err)
			}
		}
	}

	return nil
}

// ULID returns a lexically sortable unique id
func ULID() string {
	ulidMutex.Lock()
	defer ulidMutex.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

func TimestampedFileName(extension string) string {
	return fmt.Sprintf("%d_%s.%s", time.Now().UTC().UnixNano(), strings.ToLower(ULID()), extension)
}

// GetKeysHash returns a stable hash of the given keys of data; missing keys hash as nil
func GetKeysHash(data map[string]any, keys ...string) (string, error) {
	subset := make(map[string]any, len(keys))
	for _, key := range keys {
		subset[key] = data[key]
	}

	hash, err := hashstructure.Hash(subset, nil)
	if err != nil {
		return "", fmt.Errorf("failed to hash keys %v: %s", keys, err)
	}

	return strconv.FormatUint(hash, 16), nil
}

// ToString renders ids decoded from JSON; integral floats lose their fraction
func ToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
